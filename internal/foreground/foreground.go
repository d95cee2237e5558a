// Package foreground holds the single normalized foreground-app structure
// the Lifecycle Manager updates on Foreground/Background transitions,
// mirroring original_source's RunningInfoManager foreground-info
// bookkeeping (a single JSON blob set wholesale and queried either
// in full or by app id).
package foreground

import "sync"

// Info is one foreground window's identity, the shape getForegroundAppInfo
// returns for a single app.
type Info struct {
	AppID     string
	WindowID  string
	ProcessID string
	// Extra carries the supplemented "extraInfo" fields (foregroundAppInfoEx):
	// arbitrary per-window metadata (e.g. display id, window type) that
	// original_source's LSM passes through verbatim rather than modeling.
	Extra map[string]any
}

// Table tracks every currently-foreground app (a device may show more
// than one window, e.g. split screen) behind a mutex; readers get a
// snapshot.
type Table struct {
	mu   sync.RWMutex
	apps []Info
}

// New builds an empty Table.
func New() *Table {
	return &Table{}
}

// SetForegroundApps replaces the full foreground set.
func (t *Table) SetForegroundApps(apps []Info) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apps = append([]Info(nil), apps...)
}

// GetForegroundApps returns a snapshot of the current foreground set.
func (t *Table) GetForegroundApps() []Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Info(nil), t.apps...)
}

// SetCurrentForegroundApp sets the foreground set to a single entry,
// the common case of one app taking the foreground.
func (t *Table) SetCurrentForegroundApp(info Info) {
	t.SetForegroundApps([]Info{info})
}

// GetForegroundInfoByID returns the foreground entry for appID, if any
// window owned by it is currently foreground.
func (t *Table) GetForegroundInfoByID(appID string) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, info := range t.apps {
		if info.AppID == appID {
			return info, true
		}
	}
	return Info{}, false
}
