// Package deleted persists the single deleted-system-apps list named in
// A JSON file the Roster consults to skip re-adding system apps
// the user has uninstalled. The load/save shape is grounded on the
// teacher's internal/state package (read-or-default, mkdir-p on save).
package deleted

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// List tracks the app ids of system apps the user has uninstalled.
type List struct {
	mu   sync.RWMutex
	path string
	ids  map[string]struct{}
}

// document is the on-disk shape: {"deletedList": [appId, ...]}.
type document struct {
	DeletedList []string `json:"deletedList"`
}

// Load reads the deleted-apps file from disk. A missing file is not an
// error; it yields an empty list.
func Load(path string) (*List, error) {
	l := &List{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read deleted-apps file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse deleted-apps file: %w", err)
	}
	for _, id := range doc.DeletedList {
		l.ids[id] = struct{}{}
	}
	return l, nil
}

// Contains reports whether appID is recorded as deleted.
func (l *List) Contains(appID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[appID]
	return ok
}

// Add records appID as deleted and persists the change.
func (l *List) Add(appID string) error {
	l.mu.Lock()
	l.ids[appID] = struct{}{}
	l.mu.Unlock()
	return l.save()
}

// Remove clears a previously-recorded deletion (e.g. a re-install) and
// persists the change.
func (l *List) Remove(appID string) error {
	l.mu.Lock()
	delete(l.ids, appID)
	l.mu.Unlock()
	return l.save()
}

// All returns a sorted-by-insertion-undefined snapshot of deleted app ids.
func (l *List) All() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	return out
}

func (l *List) save() error {
	l.mu.RLock()
	doc := document{DeletedList: make([]string, 0, len(l.ids))}
	for id := range l.ids {
		doc.DeletedList = append(doc.DeletedList, id)
	}
	l.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create deleted-apps directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deleted-apps file: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil { //nolint:gosec // matches teacher's state file permissions
		return fmt.Errorf("failed to write deleted-apps file: %w", err)
	}
	return nil
}
