package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/fanout"
	"github.com/webosose/sam-sub002/internal/handler"
	"github.com/webosose/sam-sub002/internal/lifecycle/memcheck"
	"github.com/webosose/sam-sub002/internal/lifecycle/prelaunch"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/roster"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

func newTestManager(t *testing.T) (*Manager, *roster.Roster, *runninginfo.Table) {
	t.Helper()
	bus := busx.NewFakeBus()
	f := fanout.New(bus, log.Nop())
	r := roster.New(f, nil, nil, log.Nop())
	running := runninginfo.New()
	pipeline := prelaunch.New(bus, log.Nop())
	memChecker := memcheck.New(1024, log.Nop())
	handlers := handler.NewRegistry()

	m := NewManager(NewRouter(), r, running, pipeline, memChecker, handlers, f, DefaultStageBuilder(r, running, f), log.Nop())

	stub := handler.NewStubHandler(func(appID, pid string, status runninginfo.RuntimeStatus) {
		m.OnHandlerStatus(appID, pid, status)
	})
	handlers.Register(string(roster.HandlerKindWeb), stub)
	handlers.Register(string(roster.HandlerKindNative), stub)
	return m, r, running
}

func addPackage(t *testing.T, r *roster.Roster, pkg *roster.AppPackage) {
	t.Helper()
	if pkg.FolderPath == "" {
		pkg.FolderPath = "/apps/" + pkg.AppID
	}
	require.NoError(t, r.ScanOne(roster.ScanCandidate{Package: pkg}))
}

func TestManager_LaunchRunsThroughStubHandler(t *testing.T) {
	m, r, running := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb, RequiredMemory: 10})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.a"}, func(res LaunchResult) { done <- res })

	res := <-done
	require.NoError(t, res.Err)

	info, ok := running.Get("com.a", runninginfo.DefaultDisplay)
	require.True(t, ok)
	assert.Equal(t, runninginfo.LifeStatusBackground, info.LifeStatus)
}

func TestManager_LaunchRecordsLastEventForRegisterReplay(t *testing.T) {
	m, r, running := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb, RequiredMemory: 10})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.a"}, func(res LaunchResult) { done <- res })
	<-done

	info, ok := running.Get("com.a", runninginfo.DefaultDisplay)
	require.True(t, ok)
	assert.Equal(t, runninginfo.LifeEventBackground, info.LastEvent)
}

func TestManager_LaunchLockedAppFails(t *testing.T) {
	m, r, _ := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.locked", HandlerKind: roster.HandlerKindWeb, Locked: true})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.locked"}, func(res LaunchResult) { done <- res })

	res := <-done
	assert.ErrorIs(t, res.Err, ErrAppLocked)
}

func TestManager_LaunchUnknownAppFails(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.SetRosterReady(true)

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "missing"}, func(res LaunchResult) { done <- res })

	res := <-done
	require.Error(t, res.Err)
}

func TestManager_LaunchQueuedUntilRosterReady(t *testing.T) {
	m, r, _ := newTestManager(t)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.a"}, func(res LaunchResult) { done <- res })

	select {
	case <-done:
		t.Fatal("launch ran before roster was ready")
	case <-time.After(50 * time.Millisecond):
	}

	m.SetRosterReady(true)
	res := <-done
	require.NoError(t, res.Err)
}

func TestManager_TasksQueuedDuringScan(t *testing.T) {
	m, r, _ := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb})
	m.BeginScan()

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.a"}, func(res LaunchResult) { done <- res })

	select {
	case <-done:
		t.Fatal("launch ran while scan in progress")
	case <-time.After(50 * time.Millisecond):
	}

	m.EndScan()
	res := <-done
	require.NoError(t, res.Err)
}

func TestManager_ExecutionLockRejectsLaunch(t *testing.T) {
	m, r, running := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb})
	info := running.Add("com.a", runninginfo.DefaultDisplay)
	info.ExecutionLock = true

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.a"}, func(res LaunchResult) { done <- res })

	res := <-done
	require.Error(t, res.Err)
}

func TestManager_FlaggedForRemovalClearsRunningInfoOnStop(t *testing.T) {
	m, r, running := newTestManager(t)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb, FlaggedForRemoval: true})

	info := running.Add("com.a", runninginfo.DefaultDisplay)
	info.LifeStatus = runninginfo.LifeStatusForeground
	info.RuntimeStatus = runninginfo.RuntimeStatusRunning

	m.OnHandlerStatus("com.a", "", runninginfo.RuntimeStatusClosing)
	_, ok := running.Get("com.a", runninginfo.DefaultDisplay)
	require.True(t, ok, "closing must not remove the entry yet")

	m.OnHandlerStatus("com.a", "", runninginfo.RuntimeStatusStop)
	_, ok = running.Get("com.a", runninginfo.DefaultDisplay)
	assert.False(t, ok, "stop on a flagged-for-removal app should remove its running-info entry")
}

func TestManager_OrdinaryStopRemovesRunningInfoEvenWithoutRemovalFlag(t *testing.T) {
	m, r, running := newTestManager(t)
	addPackage(t, r, &roster.AppPackage{AppID: "com.a", HandlerKind: roster.HandlerKindWeb})

	info := running.Add("com.a", runninginfo.DefaultDisplay)
	info.LifeStatus = runninginfo.LifeStatusForeground
	info.RuntimeStatus = runninginfo.RuntimeStatusRunning

	m.OnHandlerStatus("com.a", "", runninginfo.RuntimeStatusClosing)
	_, ok := running.Get("com.a", runninginfo.DefaultDisplay)
	require.True(t, ok, "closing must not remove the entry yet")

	m.OnHandlerStatus("com.a", "", runninginfo.RuntimeStatusStop)
	_, ok = running.Get("com.a", runninginfo.DefaultDisplay)
	assert.False(t, ok, "an ordinary app stop must remove its running-info entry too")
}

func TestManager_LaunchStubRedirectsToRealApp(t *testing.T) {
	m, r, running := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.example.real", HandlerKind: roster.HandlerKindWeb})
	addPackage(t, r, &roster.AppPackage{
		AppID:       "com.example.stub",
		HandlerKind: roster.HandlerKindWeb,
		AppType:     roster.AppTypeStub,
		Redirection: &roster.Redirection{ID: "com.example.real"},
	})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.example.stub"}, func(res LaunchResult) { done <- res })

	res := <-done
	require.NoError(t, res.Err)
	assert.Equal(t, "com.example.real", res.AppID)

	_, ok := running.Get("com.example.real", runninginfo.DefaultDisplay)
	assert.True(t, ok, "redirected launch must run the real app, not the stub")
}

func TestManager_LaunchStubWithMissingRedirectionFails(t *testing.T) {
	m, r, _ := newTestManager(t)
	m.SetRosterReady(true)
	addPackage(t, r, &roster.AppPackage{AppID: "com.example.stub", HandlerKind: roster.HandlerKindWeb, AppType: roster.AppTypeStub})

	done := make(chan LaunchResult, 1)
	m.Launch(context.Background(), LaunchRequest{UID: "u1", AppID: "com.example.stub"}, func(res LaunchResult) { done <- res })

	res := <-done
	require.Error(t, res.Err)
}

func TestManager_CloseAllOrdersWindowGroupOwnerLast(t *testing.T) {
	m, r, running := newTestManager(t)

	addPackage(t, r, &roster.AppPackage{
		AppID: "owner", HandlerKind: roster.HandlerKindNative,
		WindowGroup: roster.WindowGroup{Enabled: true, IsOwner: true, Name: "g1"},
	})
	addPackage(t, r, &roster.AppPackage{
		AppID: "member", HandlerKind: roster.HandlerKindNative,
		WindowGroup: roster.WindowGroup{Enabled: true, IsOwner: false, Name: "g1"},
	})

	running.Add("owner", runninginfo.DefaultDisplay)
	running.Add("member", runninginfo.DefaultDisplay)

	order, err := m.closeOrder()
	require.NoError(t, err)

	ownerIdx, memberIdx := -1, -1
	for i, id := range order {
		if id == "owner" {
			ownerIdx = i
		}
		if id == "member" {
			memberIdx = i
		}
	}
	require.NotEqual(t, -1, ownerIdx)
	require.NotEqual(t, -1, memberIdx)
	assert.Less(t, memberIdx, ownerIdx, "window group owner must close after its members")
}
