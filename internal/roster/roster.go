package roster

import (
	"fmt"
	"sync"

	"github.com/webosose/sam-sub002/internal/deleted"
	"github.com/webosose/sam-sub002/internal/fanout"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/validate"
)

// ScanCandidate is one directory-scan result the out-of-scope scanner
// collaborator hands the Roster; ScanFull/ScanOne apply RankAppPackage
// across candidates sharing an app id.
type ScanCandidate struct {
	Package *AppPackage
}

// ChangeReason names why an app's entry changed, carried on one_changed
// events as apps are added, updated, or removed.
type ChangeReason string

// ChangeReason values.
const (
	ChangeAdded   ChangeReason = "added"
	ChangeUpdated ChangeReason = "updated"
	ChangeRemoved ChangeReason = "removed"
)

// Roster is the in-memory table of installed AppPackages, one per app id
// (invariant 1). Reads (All/Get) are safe for concurrent callers serving
// bus requests directly; writes go through ScanFull/ScanOne/Lock/
// MarkRemoved/Uninstall, all of which hold the write lock.
type Roster struct {
	logger       log.Logger
	fanout       *fanout.Fanout
	deletedList  *deleted.List
	fallbackDirs []string

	mu   sync.RWMutex
	apps map[string]*AppPackage
}

// New builds an empty Roster.
func New(f *fanout.Fanout, deletedList *deleted.List, fallbackDirs []string, logger log.Logger) *Roster {
	if logger == nil {
		logger = log.Nop()
	}
	return &Roster{
		logger:       logger,
		fanout:       f,
		deletedList:  deletedList,
		fallbackDirs: fallbackDirs,
		apps:         make(map[string]*AppPackage),
	}
}

// All returns a snapshot of every installed package.
func (r *Roster) All() map[string]*AppPackage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*AppPackage, len(r.apps))
	for id, pkg := range r.apps {
		out[id] = pkg
	}
	return out
}

// Get looks up a single package by app id.
func (r *Roster) Get(appID string) (*AppPackage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.apps[appID]
	return pkg, ok
}

// Lock sets or clears an installed package's Locked flag.
func (r *Roster) Lock(appID string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.apps[appID]
	if !ok {
		return fmt.Errorf("app %s not found", appID)
	}
	pkg.Locked = locked
	return nil
}

// MarkRemoved flags appID for removal and persists it in the
// deleted-system-apps list so a future scan won't re-add it.
func (r *Roster) MarkRemoved(appID string) error {
	r.mu.Lock()
	pkg, ok := r.apps[appID]
	if ok {
		pkg.FlaggedForRemoval = true
	}
	r.mu.Unlock()

	if r.deletedList != nil {
		if err := r.deletedList.Add(appID); err != nil {
			return fmt.Errorf("failed to persist removal of %s: %w", appID, err)
		}
	}
	return nil
}

// Uninstaller delegates the actual uninstall to the installer service,
// after an optional settings-service PIN confirmation for system apps.
// Both collaborators live outside this package (internal/installer,
// internal/settings); Roster only orchestrates the call.
type Uninstaller interface {
	Uninstall(appID string, requiresPIN bool) error
}

// PINConfirmer gates an uninstall of a protected (system) app behind user
// confirmation before removal.
type PINConfirmer interface {
	Confirm(appID string) (bool, error)
}

// Uninstall removes appID via installer, requiring settings PIN
// confirmation first when pkg.TypeByDir names a system install location.
func (r *Roster) Uninstall(appID string, installer Uninstaller, confirmer PINConfirmer) error {
	pkg, ok := r.Get(appID)
	if !ok {
		return fmt.Errorf("app %s not found", appID)
	}

	requiresPIN := isSystemLocation(pkg.TypeByDir)
	if requiresPIN && confirmer != nil {
		confirmed, err := confirmer.Confirm(appID)
		if err != nil {
			return fmt.Errorf("PIN confirmation failed for %s: %w", appID, err)
		}
		if !confirmed {
			return fmt.Errorf("uninstall of %s cancelled by user", appID)
		}
	}

	if err := installer.Uninstall(appID, requiresPIN); err != nil {
		return fmt.Errorf("failed to uninstall %s: %w", appID, err)
	}
	return r.MarkRemoved(appID)
}

func isSystemLocation(t TypeByDir) bool {
	return t == TypeByDirSystemBuiltIn || t == TypeByDirSystemUpdatable
}

// ScanFull replaces the roster with the winners of candidates (ranked by
// RankAppPackage where multiple candidates share an app id), publishing a
// single listApps/listAppsCompact change carrying the sorted app ids and
// their count; no per-app change reason is included. A candidate that
// fails validation is logged and skipped; ScanFull never fails — a
// partial roster is still published.
func (r *Roster) ScanFull(candidates []ScanCandidate) {
	winners := make(map[string]*AppPackage, len(candidates))
	for _, c := range candidates {
		if err := r.prepare(c.Package); err != nil {
			r.logger.Warn("skipping candidate", "appId", c.Package.AppID, "error", err)
			continue
		}
		if existing, ok := winners[c.Package.AppID]; ok {
			winners[c.Package.AppID] = RankAppPackage(existing, c.Package)
		} else {
			winners[c.Package.AppID] = c.Package
		}
	}

	for id := range winners {
		if r.deletedList != nil && r.deletedList.Contains(id) && isSystemLocation(winners[id].TypeByDir) {
			delete(winners, id)
		}
	}

	r.mu.Lock()
	r.apps = winners
	r.mu.Unlock()

	r.logger.Debug("roster scan complete", "count", len(winners))
	r.fanout.PublishMany([]string{"listApps", "listAppsCompact"}, map[string]any{
		"apps":  snapshotIDs(winners),
		"count": len(winners),
	})
}

// ScanOne applies a single candidate against the current roster, ranking
// it against any existing entry for the same app id, and emits one_changed.
func (r *Roster) ScanOne(candidate ScanCandidate) error {
	if err := r.prepare(candidate.Package); err != nil {
		return err
	}

	appID := candidate.Package.AppID
	if r.deletedList != nil && r.deletedList.Contains(appID) && isSystemLocation(candidate.Package.TypeByDir) {
		return nil
	}

	r.mu.Lock()
	existing, existed := r.apps[appID]
	var reason ChangeReason
	if !existed {
		r.apps[appID] = candidate.Package
		reason = ChangeAdded
	} else {
		winner := RankAppPackage(existing, candidate.Package)
		r.apps[appID] = winner
		reason = ChangeUpdated
	}
	r.mu.Unlock()

	r.fanout.PublishMany([]string{"listApps", "listAppsCompact"}, map[string]any{
		"appId":        appID,
		"change":       "updated",
		"changeReason": reason,
	})
	return nil
}

func (r *Roster) prepare(pkg *AppPackage) error {
	if err := validate.AppID(pkg.AppID); err != nil {
		return err
	}
	if err := validate.Path(pkg.FolderPath); err != nil {
		return err
	}
	if pkg.Main != "" {
		pkg.Main = ResolveAssetPath(pkg.Main, r.fallbackDirs)
	}
	if pkg.AppType == AppTypeStub && pkg.Redirection == nil {
		redir, err := LoadRedirection(pkg.FolderPath)
		if err != nil {
			return err
		}
		pkg.Redirection = redir
	}
	return nil
}

func snapshotIDs(apps map[string]*AppPackage) []string {
	return validate.SortedKeys(apps)
}
