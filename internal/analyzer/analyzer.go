package analyzer

import (
	stdcontext "context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"itercheck/internal/analyzer/detectors"
	"itercheck/internal/config"
	"itercheck/internal/context"
	"itercheck/internal/directives/ignore"
	"itercheck/internal/models"
	"itercheck/internal/pyast"
)

type Analyzer struct {
	cfg       *config.Config
	parser    *pyast.Parser
	detectors []Detector
	logger    *zap.Logger
}

type Detector interface {
	Name() string
	Detect(ctx *context.AnalysisContext) []models.Issue
}

type Option func(*Analyzer)

// WithLogger sets the logger used for skipped files and per-file timings.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAnalyzer(cfg *config.Config, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	analyzer := &Analyzer{
		cfg:    cfg,
		parser: pyast.NewParser(pyast.WithMaxFileSize(cfg.MaxFileBytes())),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(analyzer)
	}

	var checked []ignore.RuleName
	if cfg.IsRuleEnabled("reused_iterator") {
		analyzer.detectors = append(analyzer.detectors,
			detectors.NewReusedIteratorDetector(cfg.CheckerConfig(), cfg.Severity()))
		checked = append(checked, ignore.ReusedIterator)
	}
	// Must stay last: it reads which suppressions the others consumed.
	if cfg.IsRuleEnabled("useless_suppression") {
		analyzer.detectors = append(analyzer.detectors, detectors.NewUselessSuppressionDetector(checked...))
	}

	return analyzer
}

// CollectFiles expands files and directories into the Python sources to
// analyse. Directories are walked recursively and filtered by the
// files.include and files.exclude patterns; files named explicitly only
// need a .py suffix and must not be excluded.
func (a *Analyzer) CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			if isPythonFile(path) && !a.excluded(filepath.ToSlash(filepath.Clean(path))) {
				files = append(files, path)
			}
			continue
		}
		found, err := a.collectDir(path, path, map[string]bool{})
		if err != nil {
			return nil, fmt.Errorf("failed to collect files from %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return lo.Uniq(files), nil
}

func (a *Analyzer) collectDir(root, dir string, visited map[string]bool) ([]string, error) {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if visited[real] {
			return nil, nil
		}
		visited[real] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != dir && a.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !a.cfg.Files.FollowSymlinks {
				return nil
			}
			info, statErr := os.Stat(path)
			if statErr != nil {
				a.logger.Debug("skipping broken symlink", zap.String("path", path), zap.Error(statErr))
				return nil
			}
			if info.IsDir() {
				if a.excluded(rel) {
					return nil
				}
				nested, nestedErr := a.collectDir(root, path, visited)
				files = append(files, nested...)
				return nestedErr
			}
		}

		if isPythonFile(path) && a.included(rel) && !a.excluded(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (a *Analyzer) included(rel string) bool {
	if len(a.cfg.Files.Include) == 0 {
		return true
	}
	return matchAny(a.cfg.Files.Include, rel)
}

func (a *Analyzer) excluded(rel string) bool {
	return matchAny(a.cfg.Files.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	return lo.SomeBy(patterns, func(pattern string) bool {
		ok, err := doublestar.Match(pattern, rel)
		return err == nil && ok
	})
}

func isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py")
}

// AnalyzeFiles analyses filenames concurrently, at most
// analysis.max_workers at a time. Files that cannot be read or parsed are
// recorded in the result's Skipped list; only cancellation of ctx fails
// the run.
func (a *Analyzer) AnalyzeFiles(ctx stdcontext.Context, filenames []string) (*models.AnalysisResult, error) {
	startTime := time.Now()
	result := models.NewAnalysisResult()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Analysis.MaxWorkers)

	for _, filename := range filenames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileResult := models.NewAnalysisResult()
			issues, err := a.analyzeFile(gctx, filename)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// Log error but continue with other files
				a.logger.Warn("skipping file", zap.String("file", filename), zap.Error(err))
				fileResult.AddSkipped(filename, err)
			} else {
				fileResult.Files = append(fileResult.Files, filename)
				for _, issue := range issues {
					fileResult.AddIssue(issue)
				}
			}

			mu.Lock()
			result.Merge(fileResult)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	result.SortIssues()
	result.AnalysisDuration = time.Since(startTime).String()
	result.CalculateScore()
	return result, nil
}

func (a *Analyzer) analyzeFile(ctx stdcontext.Context, filename string) ([]models.Issue, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return a.AnalyzeSource(ctx, filename, src)
}

// AnalyzeSource runs every enabled detector over one in-memory source.
func (a *Analyzer) AnalyzeSource(ctx stdcontext.Context, filename string, src []byte) ([]models.Issue, error) {
	start := time.Now()
	mod, err := a.parser.Parse(ctx, src, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if mod.HasErrors {
		a.logger.Debug("syntax errors recovered", zap.String("file", filename))
	}

	actx := context.NewAnalysisContext(filename, src, mod)
	actx.RespectIgnores = a.cfg.Rules.ReusedIterator.RespectIgnoreComments

	var allIssues []models.Issue
	for _, detector := range a.detectors {
		issues := detector.Detect(actx)
		allIssues = append(allIssues, issues...)
	}

	a.logger.Debug("analyzed file",
		zap.String("file", filename),
		zap.Int("issues", len(allIssues)),
		zap.Duration("elapsed", time.Since(start)))
	return allIssues, nil
}

// GetDetectorCount returns the number of active detectors
func (a *Analyzer) GetDetectorCount() int {
	return len(a.detectors)
}

// GetDetectorNames returns the names of all active detectors
func (a *Analyzer) GetDetectorNames() []string {
	return lo.Map(a.detectors, func(d Detector, _ int) string {
		return d.Name()
	})
}
