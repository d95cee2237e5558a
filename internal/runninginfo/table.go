package runninginfo

import (
	"sync"

	"github.com/webosose/sam-sub002/internal/foreground"
)

// Table is the Running-Info Table (component D): one RunningInfo per
// (app id, display) (invariant 2), plus foreground bookkeeping.
type Table struct {
	fg *foreground.Table

	mu    sync.RWMutex
	byKey map[Key]*RunningInfo
}

// New builds an empty Table.
func New() *Table {
	return &Table{fg: foreground.New(), byKey: make(map[Key]*RunningInfo)}
}

// Get returns the instance at key, if any.
func (t *Table) Get(appID, display string) (*RunningInfo, bool) {
	if display == "" {
		display = DefaultDisplay
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.byKey[Key{AppID: appID, Display: display}]
	return info, ok
}

// GetByPID scans for the instance whose PID matches.
func (t *Table) GetByPID(pid string) (*RunningInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, info := range t.byKey {
		if info.PID == pid {
			return info, true
		}
	}
	return nil, false
}

// Add creates a new RunningInfo at (appID, display) in LifeStatusStop,
// returning the existing entry if one is already present.
func (t *Table) Add(appID, display string) *RunningInfo {
	if display == "" {
		display = DefaultDisplay
	}
	key := Key{AppID: appID, Display: display}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byKey[key]; ok {
		return existing
	}
	info := &RunningInfo{AppID: appID, Display: display, LifeStatus: LifeStatusStop, RuntimeStatus: RuntimeStatusStop}
	t.byKey[key] = info
	return info
}

// Remove deletes the instance at (appID, display). Invariant 6: a caller
// must not remove an entry with RemovalFlag set until LifeStatus == Stop;
// Remove itself doesn't enforce this — the Lifecycle Manager does, since
// it alone knows when a status transition lands on Stop.
func (t *Table) Remove(appID, display string) {
	if display == "" {
		display = DefaultDisplay
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byKey, Key{AppID: appID, Display: display})
}

// IsRunning reports whether any instance of appID is tracked at all
// (i.e. not Stop).
func (t *Table) IsRunning(appID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for key, info := range t.byKey {
		if key.AppID == appID && info.LifeStatus != LifeStatusStop {
			return true
		}
	}
	return false
}

// List returns every tracked instance. It has no Dev-only filter:
// filtering to Dev-typed apps requires cross-referencing the Roster and
// is done by the caller, not here.
func (t *Table) List() []*RunningInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*RunningInfo, 0, len(t.byKey))
	for _, info := range t.byKey {
		out = append(out, info)
	}
	return out
}

// Foreground exposes the foreground-app bookkeeping collaborator.
func (t *Table) Foreground() *foreground.Table {
	return t.fg
}
