package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/foliolabs/folio/pkg/logging"
)

// Store loads content items from a directory of JSON files and serves
// immutable snapshots. A file may contain a single item or an array of
// items. Invalid files are logged and skipped; they never fail a load.
type Store struct {
	dir    string
	logger *logging.Logger

	mu       sync.RWMutex
	snapshot []Item
	byID     map[string]*Item

	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
	onReload      func(int)

	ctx    context.Context
	cancel context.CancelFunc
}

// reloadDebounce coalesces bursts of fsnotify events into one reload
const reloadDebounce = 250 * time.Millisecond

// NewStore creates a store over the given content directory
func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("content directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}

	if logger == nil {
		logger = logging.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		dir:    dir,
		logger: logger.WithComponent("content"),
		byID:   make(map[string]*Item),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Load reads every *.json file under the content directory and swaps in
// a fresh snapshot
func (s *Store) Load() error {
	var items []Item
	skipped := 0

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		fileItems, err := readItemFile(path)
		if err != nil {
			s.logger.Warn("skipping content file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			skipped++
			return nil
		}

		for i := range fileItems {
			if err := fileItems[i].Validate(); err != nil {
				s.logger.Warn("skipping invalid item", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				skipped++
				continue
			}
			items = append(items, fileItems[i])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk content directory: %w", err)
	}

	byID := make(map[string]*Item, len(items))
	for i := range items {
		key := string(items[i].Type) + "/" + items[i].ID
		if _, dup := byID[key]; dup {
			s.logger.Warn("duplicate item id", map[string]interface{}{
				"id":   items[i].ID,
				"type": items[i].Type,
			})
			continue
		}
		byID[key] = &items[i]
	}

	s.mu.Lock()
	s.snapshot = items
	s.byID = byID
	s.mu.Unlock()

	s.logger.Info("content loaded", map[string]interface{}{
		"items":   len(items),
		"skipped": skipped,
	})
	return nil
}

func readItemFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return items, nil
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return []Item{item}, nil
}

// Snapshot returns the current item collection. Callers must treat the
// returned slice as read-only; a reload swaps in a new slice rather
// than mutating this one.
func (s *Store) Snapshot() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Get looks up an item by variant and id
func (s *Store) Get(itemType ItemType, id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.byID[string(itemType)+"/"+id]
	return it, ok
}

// Lookup finds an item by id across both variants
func (s *Store) Lookup(id string) (*Item, bool) {
	if it, ok := s.Get(TypePost, id); ok {
		return it, true
	}
	return s.Get(TypeProject, id)
}

// Len returns the number of loaded items
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot)
}

// OnReload registers a callback invoked with the item count after every
// watcher-triggered reload
func (s *Store) OnReload(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = fn
}

// Watch starts watching the content directory and reloads on changes.
// Rapid events are debounced into a single reload.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	// Watch subdirectories too
	filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() && path != s.dir {
			watcher.Add(path)
		}
		return nil
	})

	s.watcher = watcher
	go s.eventLoop()
	return nil
}

func (s *Store) eventLoop() {
	defer func() {
		s.debounceMu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.debounceMu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New subdirectories need their own watch or later
				// writes inside them go unseen.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					s.watcher.Add(event.Name)
				}
			}
			s.scheduleReload()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer
func (s *Store) scheduleReload() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(reloadDebounce, func() {
		if err := s.Load(); err != nil {
			s.logger.Error("reload failed", map[string]interface{}{"error": err.Error()})
			return
		}
		s.mu.RLock()
		fn := s.onReload
		n := len(s.snapshot)
		s.mu.RUnlock()
		if fn != nil {
			fn(n)
		}
	})
}

// Close stops the watcher and releases resources
func (s *Store) Close() error {
	s.cancel()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	return nil
}
