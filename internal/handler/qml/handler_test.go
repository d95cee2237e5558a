package qml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

type statusCall struct {
	appID, pid string
	status     runninginfo.RuntimeStatus
}

func newTestHandler(t *testing.T) (*Handler, *busx.FakeBus, chan statusCall) {
	t.Helper()
	bus := busx.NewFakeBus()
	calls := make(chan statusCall, 16)
	onStatus := func(appID, pid string, status runninginfo.RuntimeStatus) {
		calls <- statusCall{appID, pid, status}
	}
	h := New(context.Background(), bus, onStatus, log.Nop())
	return h, bus, calls
}

func TestHandler_LaunchReportsRunningOnReply(t *testing.T) {
	h, bus, calls := newTestHandler(t)

	done := make(chan error, 1)
	go func() {
		done <- h.Launch(context.Background(), &LaunchRequest{AppID: "com.a", Main: "main.qml"})
	}()

	assert.Equal(t, runninginfo.RuntimeStatusLaunching, (<-calls).status)
	bus.Reply(2, busx.Reply{Payload: map[string]any{"pid": "77"}})

	require.NoError(t, <-done)
	running := <-calls
	assert.Equal(t, runninginfo.RuntimeStatusRunning, running.status)
	assert.Equal(t, "77", running.pid)
}

func TestHandler_ProcessFinishedEmitsStop(t *testing.T) {
	h, bus, calls := newTestHandler(t)

	done := make(chan error, 1)
	go func() {
		done <- h.Launch(context.Background(), &LaunchRequest{AppID: "com.a", Main: "main.qml"})
	}()
	<-calls
	bus.Reply(2, busx.Reply{Payload: map[string]any{"pid": "77"}})
	require.NoError(t, <-done)
	<-calls

	bus.Emit(1, busx.Reply{Payload: map[string]any{"pid": "77"}})
	stop := <-calls
	assert.Equal(t, "com.a", stop.appID)
	assert.Equal(t, runninginfo.RuntimeStatusStop, stop.status)
}

func TestHandler_CloseRejectsUnknownApp(t *testing.T) {
	h, _, _ := newTestHandler(t)
	_, err := h.Close(context.Background(), &CloseRequest{AppID: "missing"})
	assert.ErrorIs(t, err, ErrNotRunning)
}
