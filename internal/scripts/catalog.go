// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scripts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const refreshDebounce = 100 * time.Millisecond

// Catalog keeps the sorted list of *.sql files in the base directory.
type Catalog struct {
	dir string
	log *zap.Logger

	mu       sync.RWMutex
	names    []string
	onChange func([]string)

	watching atomic.Bool
}

// NewCatalog creates a Catalog for dir. Call Refresh to populate it.
func NewCatalog(dir string, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{dir: dir, log: log}
}

// OnChange registers fn to be called with the new listing after each refresh
// triggered by the watcher.
func (c *Catalog) OnChange(fn func([]string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// List returns a copy of the current listing.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.names...)
}

// Refresh rescans the directory. A missing directory yields an empty listing.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	return nil
}

// Watch refreshes the listing whenever a script is created, removed or renamed,
// until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(c.dir); err != nil {
		c.log.Warn("not watching scripts directory", zap.String("dir", c.dir), zap.Error(err))
		<-ctx.Done()
		return nil
	}
	c.watching.Store(true)
	defer c.watching.Store(false)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), Extension) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(refreshDebounce, c.refreshAndNotify)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Error("scripts watcher error", zap.Error(err))
		}
	}
}

func (c *Catalog) refreshAndNotify() {
	if err := c.Refresh(); err != nil {
		c.log.Error("refresh scripts failed", zap.String("dir", c.dir), zap.Error(err))
		return
	}
	names := c.List()
	c.log.Debug("scripts changed", zap.Int("count", len(names)))

	c.mu.RLock()
	fn := c.onChange
	c.mu.RUnlock()
	if fn != nil {
		fn(names)
	}
}
