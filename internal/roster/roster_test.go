package roster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/deleted"
	"github.com/webosose/sam-sub002/internal/fanout"
)

func newTestRoster(t *testing.T) (*Roster, *busx.FakeBus) {
	t.Helper()
	bus := busx.NewFakeBus()
	f := fanout.New(bus, nil)
	dl, err := deleted.Load(filepath.Join(t.TempDir(), "deleted.json"))
	require.NoError(t, err)
	return New(f, dl, nil, nil), bus
}

func TestScanFull_PicksHigherVersionAndPublishes(t *testing.T) {
	r, bus := newTestRoster(t)

	var published map[string]any
	bus.SubscriptionAdd("listApps", busx.SubscriberFunc(func(p map[string]any) { published = p }))

	r.ScanFull([]ScanCandidate{
		{Package: &AppPackage{AppID: "com.webos.app.browser", FolderPath: t.TempDir(), Version: Version{1, 0, 0}}},
		{Package: &AppPackage{AppID: "com.webos.app.browser", FolderPath: t.TempDir(), Version: Version{2, 0, 0}}},
	})

	pkg, ok := r.Get("com.webos.app.browser")
	require.True(t, ok)
	assert.Equal(t, Version{2, 0, 0}, pkg.Version)
	require.NotNil(t, published)
	assert.Equal(t, 1, published["count"])
}

func TestScanOne_AddsThenUpdates(t *testing.T) {
	r, _ := newTestRoster(t)

	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{AppID: "a", FolderPath: t.TempDir(), Version: Version{1, 0, 0}}}))
	pkg, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, Version{1, 0, 0}, pkg.Version)

	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{AppID: "a", FolderPath: t.TempDir(), Version: Version{2, 0, 0}}}))
	pkg, ok = r.Get("a")
	require.True(t, ok)
	assert.Equal(t, Version{2, 0, 0}, pkg.Version)
}

func TestLock_SetsFlag(t *testing.T) {
	r, _ := newTestRoster(t)
	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{AppID: "a", FolderPath: t.TempDir()}}))

	require.NoError(t, r.Lock("a", true))
	pkg, _ := r.Get("a")
	assert.True(t, pkg.Locked)
}

func TestLock_NotFound(t *testing.T) {
	r, _ := newTestRoster(t)
	assert.Error(t, r.Lock("missing", true))
}

func TestMarkRemoved_PersistsAndFlags(t *testing.T) {
	r, _ := newTestRoster(t)
	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{AppID: "a", FolderPath: t.TempDir()}}))

	require.NoError(t, r.MarkRemoved("a"))
	pkg, _ := r.Get("a")
	assert.True(t, pkg.FlaggedForRemoval)
}

func TestScanFull_SkipsDeletedSystemApp(t *testing.T) {
	bus := busx.NewFakeBus()
	f := fanout.New(bus, nil)
	dl, err := deleted.Load(filepath.Join(t.TempDir(), "deleted.json"))
	require.NoError(t, err)
	require.NoError(t, dl.Add("com.webos.app.removed"))
	r := New(f, dl, nil, nil)

	r.ScanFull([]ScanCandidate{
		{Package: &AppPackage{AppID: "com.webos.app.removed", FolderPath: t.TempDir(), TypeByDir: TypeByDirSystemBuiltIn}},
	})

	_, ok := r.Get("com.webos.app.removed")
	assert.False(t, ok)
}

type fakeInstaller struct {
	calledWith string
	requiresPIN bool
	err        error
}

func (f *fakeInstaller) Uninstall(appID string, requiresPIN bool) error {
	f.calledWith = appID
	f.requiresPIN = requiresPIN
	return f.err
}

type fakeConfirmer struct {
	confirmed bool
	err       error
}

func (f *fakeConfirmer) Confirm(string) (bool, error) {
	return f.confirmed, f.err
}

func TestUninstall_SystemAppRequiresPINConfirmation(t *testing.T) {
	r, _ := newTestRoster(t)
	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{
		AppID: "com.webos.app.system", FolderPath: t.TempDir(), TypeByDir: TypeByDirSystemBuiltIn,
	}}))

	installer := &fakeInstaller{}
	confirmer := &fakeConfirmer{confirmed: false}
	err := r.Uninstall("com.webos.app.system", installer, confirmer)
	assert.Error(t, err)
	assert.Empty(t, installer.calledWith, "installer must not run without confirmation")

	confirmer.confirmed = true
	require.NoError(t, r.Uninstall("com.webos.app.system", installer, confirmer))
	assert.Equal(t, "com.webos.app.system", installer.calledWith)
	assert.True(t, installer.requiresPIN)
}

func TestUninstall_StoreAppSkipsPIN(t *testing.T) {
	r, _ := newTestRoster(t)
	require.NoError(t, r.ScanOne(ScanCandidate{Package: &AppPackage{
		AppID: "com.webos.app.store", FolderPath: t.TempDir(), TypeByDir: TypeByDirStore,
	}}))

	installer := &fakeInstaller{}
	require.NoError(t, r.Uninstall("com.webos.app.store", installer, &fakeConfirmer{confirmed: false}))
	assert.Equal(t, "com.webos.app.store", installer.calledWith)
	assert.False(t, installer.requiresPIN)
}
