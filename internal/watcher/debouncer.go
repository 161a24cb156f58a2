package watcher

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// debouncer batches change events until no new event arrived for delay,
// then hands the distinct paths to the handler in one call.
type debouncer struct {
	delay   time.Duration
	events  map[string]FileChangeEvent
	timer   *time.Timer
	mutex   sync.Mutex
	stopped bool
	logger  *zap.Logger
}

func newDebouncer(delay time.Duration, logger *zap.Logger) *debouncer {
	return &debouncer{
		delay:  delay,
		events: make(map[string]FileChangeEvent),
		logger: logger,
	}
}

func (d *debouncer) add(event FileChangeEvent, handler FileChangeHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.events[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.flush(handler)
	})
}

func (d *debouncer) flush(handler FileChangeHandler) {
	d.mutex.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mutex.Unlock()
		return
	}
	changedFiles := make([]string, 0, len(d.events))
	var first time.Time
	for path, event := range d.events {
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if event.Operation == "REMOVE" || event.Operation == "RENAME" {
			continue
		}
		changedFiles = append(changedFiles, path)
	}
	d.events = make(map[string]FileChangeEvent)
	d.mutex.Unlock()

	if len(changedFiles) == 0 {
		return
	}
	sort.Strings(changedFiles)
	d.logger.Debug("flushing file changes",
		zap.Int("files", len(changedFiles)),
		zap.Duration("waited", time.Since(first)))
	if err := handler(changedFiles); err != nil {
		d.logger.Error("change handler failed", zap.Strings("files", changedFiles), zap.Error(err))
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
