package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

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

type statusCall struct {
	appID, pid string
	status     runninginfo.RuntimeStatus
}

func TestHandler_LaunchWaitsForReply(t *testing.T) {
	h, bus, calls := newTestHandler(t)

	done := make(chan error, 1)
	go func() {
		done <- h.Launch(context.Background(), &LaunchRequest{AppID: "com.a"})
	}()

	assert.Equal(t, runninginfo.RuntimeStatusLaunching, (<-calls).status)

	var launchCall busx.FakeCall
	require.Eventually(t, func() bool {
		for _, c := range bus.Calls() {
			if c.URI == uriLaunchApp {
				launchCall = c
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "com.a", launchCall.Payload["id"])

	bus.Reply(2, busx.Reply{Payload: map[string]any{}})
	require.NoError(t, <-done)
}

func TestHandler_CloseRejectsUnknownApp(t *testing.T) {
	h, _, _ := newTestHandler(t)
	_, err := h.Close(context.Background(), &CloseRequest{AppID: "missing"})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestHandler_RunningListDiffEmitsAddedAndRemoved(t *testing.T) {
	h, bus, calls := newTestHandler(t)

	bus.Emit(1, busx.Reply{Payload: map[string]any{
		"running": []any{map[string]any{"id": "com.a", "processid": "123"}},
	}})
	added := <-calls
	assert.Equal(t, "com.a", added.appID)
	assert.Equal(t, runninginfo.RuntimeStatusRunning, added.status)

	bus.Emit(1, busx.Reply{Payload: map[string]any{"running": []any{}}})
	removed := <-calls
	assert.Equal(t, "com.a", removed.appID)
	assert.Equal(t, runninginfo.RuntimeStatusStop, removed.status)
}
