package watcher

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"itercheck/internal/config"
)

const defaultDebounce = 500 * time.Millisecond

type FileWatcher struct {
	watcher   *fsnotify.Watcher
	config    *config.Config
	logger    *zap.Logger
	debouncer *debouncer

	mu          sync.Mutex
	roots       []string
	watchedDirs map[string]bool
}

type FileChangeEvent struct {
	Path      string
	Operation string
	Timestamp time.Time
}

// FileChangeHandler receives the Python files that were created or written
// since the last call.
type FileChangeHandler func([]string) error

func NewFileWatcher(cfg *config.Config, logger *zap.Logger) (*FileWatcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &FileWatcher{
		watcher:     watcher,
		config:      cfg,
		logger:      logger,
		debouncer:   newDebouncer(defaultDebounce, logger),
		watchedDirs: make(map[string]bool),
	}, nil
}

// Watch registers every directory under paths and starts delivering
// debounced changes to handler. A file path watches its directory.
func (fw *FileWatcher) Watch(paths []string, handler FileChangeHandler) error {
	for _, path := range paths {
		root, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		if strings.HasSuffix(root, ".py") {
			root = filepath.Dir(root)
		}
		fw.mu.Lock()
		fw.roots = append(fw.roots, root)
		fw.mu.Unlock()
		if err := fw.addPath(root); err != nil {
			return fmt.Errorf("failed to watch path %s: %w", path, err)
		}
	}
	go fw.eventLoop(handler)
	return nil
}

func (fw *FileWatcher) addPath(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if walkPath != path && fw.shouldSkipDir(walkPath) {
			return filepath.SkipDir
		}

		fw.mu.Lock()
		defer fw.mu.Unlock()
		if !fw.watchedDirs[walkPath] {
			if err := fw.watcher.Add(walkPath); err != nil {
				return fmt.Errorf("failed to add directory %s to watcher: %w", walkPath, err)
			}
			fw.watchedDirs[walkPath] = true
			fw.logger.Debug("watching directory", zap.String("dir", walkPath))
		}
		return nil
	})
}

func (fw *FileWatcher) eventLoop(handler FileChangeHandler) {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event, handler)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event, handler FileChangeHandler) {
	if event.Has(fsnotify.Create) && !fw.shouldSkipDir(event.Name) {
		// New directories are watched too; addPath ignores plain files.
		if err := fw.addPath(event.Name); err != nil {
			fw.logger.Debug("not watching new path", zap.String("path", event.Name), zap.Error(err))
		}
	}
	if !fw.isPythonFile(event.Name) || fw.shouldSkipFile(event.Name) {
		return
	}
	fw.debouncer.add(FileChangeEvent{
		Path:      event.Name,
		Operation: fw.eventOpToString(event.Op),
		Timestamp: time.Now(),
	}, handler)
}

func (fw *FileWatcher) isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py")
}

// relative returns path relative to the watch root containing it, in
// slash form, for matching against files.exclude.
func (fw *FileWatcher) relative(path string) string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for _, root := range fw.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

func (fw *FileWatcher) excluded(path string) bool {
	rel := fw.relative(path)
	for _, pattern := range fw.config.Files.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) shouldSkipDir(path string) bool {
	defaultExclusions := []string{
		".git", ".hg", ".venv", "venv", "__pycache__", ".mypy_cache", ".pytest_cache", ".tox", "node_modules", ".idea", ".vscode",
	}
	dirName := filepath.Base(path)
	for _, excluded := range defaultExclusions {
		if dirName == excluded {
			return true
		}
	}
	return fw.excluded(path)
}

func (fw *FileWatcher) shouldSkipFile(path string) bool {
	filename := filepath.Base(path)
	if strings.HasPrefix(filename, ".") {
		return true
	}
	if strings.HasSuffix(filename, ".tmp") || strings.HasSuffix(filename, "~") {
		return true
	}
	if strings.HasSuffix(filename, ".swp") || strings.HasSuffix(filename, ".swo") {
		return true
	}
	return fw.excluded(path)
}

func (fw *FileWatcher) eventOpToString(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return "CREATE"
	case op&fsnotify.Write == fsnotify.Write:
		return "WRITE"
	case op&fsnotify.Remove == fsnotify.Remove:
		return "REMOVE"
	case op&fsnotify.Rename == fsnotify.Rename:
		return "RENAME"
	case op&fsnotify.Chmod == fsnotify.Chmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

func (fw *FileWatcher) Close() error {
	fw.debouncer.stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) GetWatchedPaths() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	paths := make([]string, 0, len(fw.watchedDirs))
	for path := range fw.watchedDirs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
