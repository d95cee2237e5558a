package native

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/procsup"
	"github.com/webosose/sam-sub002/internal/procsup/fakeprocsup"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

func TestLaunch_V1IsRunningImmediately(t *testing.T) {
	runner := fakeprocsup.New()
	statuses := make(chan runninginfo.RuntimeStatus, 4)
	h := New(runner, func(appID, pid string, status runninginfo.RuntimeStatus) { statuses <- status }, nil)

	err := h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 1})
	require.NoError(t, err)

	assert.Equal(t, runninginfo.RuntimeStatusLaunching, <-statuses)
	assert.Equal(t, runninginfo.RuntimeStatusRunning, <-statuses)
}

func TestLaunch_V2WaitsForRegistration(t *testing.T) {
	runner := fakeprocsup.New()
	statuses := make(chan runninginfo.RuntimeStatus, 4)
	h := New(runner, func(appID, pid string, status runninginfo.RuntimeStatus) { statuses <- status }, nil)

	launchDone := make(chan error, 1)
	go func() {
		launchDone <- h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 2})
	}()

	assert.Equal(t, runninginfo.RuntimeStatusLaunching, <-statuses)

	select {
	case <-launchDone:
		t.Fatal("launch returned before registration")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, h.Register("a"))
	assert.Equal(t, runninginfo.RuntimeStatusRegistered, <-statuses)

	require.NoError(t, <-launchDone)
}

func TestClose_EscalatesToSigkillOnTimeout(t *testing.T) {
	runner := fakeprocsup.New()
	h := New(runner, func(appID, pid string, status runninginfo.RuntimeStatus) {}, nil)
	h.escalator = procsup.NewEscalator(runner, 20*time.Millisecond, nil)

	require.NoError(t, h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 1}))

	closeDone := make(chan error, 1)
	go func() {
		_, err := h.Close(context.Background(), &CloseRequest{AppID: "a"})
		closeDone <- err
	}()

	require.Eventually(t, func() bool { return len(runner.Signals()) >= 1 }, time.Second, time.Millisecond)

	<-closeDone

	signals := runner.Signals()
	require.Len(t, signals, 2)
	assert.Equal(t, syscall.SIGTERM, signals[0].Sig)
	assert.Equal(t, syscall.SIGKILL, signals[1].Sig)
}

func TestClose_NoClientReturnsNotRunning(t *testing.T) {
	h := New(fakeprocsup.New(), nil, nil)
	_, err := h.Close(context.Background(), &CloseRequest{AppID: "missing"})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestLaunch_WhileLaunchingQueuesPendingLaunch(t *testing.T) {
	runner := fakeprocsup.New()
	statuses := make(chan runninginfo.RuntimeStatus, 8)
	h := New(runner, func(appID, pid string, status runninginfo.RuntimeStatus) { statuses <- status }, nil)

	launchDone := make(chan error, 1)
	go func() {
		launchDone <- h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 2})
	}()

	assert.Equal(t, runninginfo.RuntimeStatusLaunching, <-statuses)

	// Second launch arrives while the first is still mid-registration
	// (RuntimeStatus Launching): it must be queued, not forked again.
	require.NoError(t, h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 2}))
	assert.Equal(t, 1, len(runner.Starts()), "a second process must not be forked while the first is launching")

	require.NoError(t, h.Register("a"))
	assert.Equal(t, runninginfo.RuntimeStatusRegistered, <-statuses)
	require.NoError(t, <-launchDone)
}

func TestLaunch_RunningRelaunchesInsteadOfForking(t *testing.T) {
	runner := fakeprocsup.New()
	statuses := make(chan runninginfo.RuntimeStatus, 8)
	h := New(runner, func(appID, pid string, status runninginfo.RuntimeStatus) { statuses <- status }, nil)

	require.NoError(t, h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 1}))
	<-statuses // Launching
	<-statuses // Running

	require.NoError(t, h.Launch(context.Background(), &LaunchRequest{AppID: "a", Main: "/usr/bin/a", InterfaceVersion: 1}))
	assert.Equal(t, runninginfo.RuntimeStatusRunning, <-statuses)
	assert.Equal(t, 1, len(runner.Starts()), "relaunch of a running client must not fork a new process")
}
