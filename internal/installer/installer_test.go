package installer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
)

func TestClient_UninstallSucceeds(t *testing.T) {
	bus := busx.NewFakeBus()
	c := New(bus, log.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Uninstall("com.example.app", true) }()

	require.Eventually(t, func() bool { return len(bus.Calls()) == 1 }, time.Second, time.Millisecond, "call must be issued")
	assert.Equal(t, uriRemove, bus.Calls()[0].URI)
	bus.Reply(1, busx.Reply{Payload: map[string]any{"returnValue": true}})

	assert.NoError(t, <-done)
}

func TestClient_UninstallFailsOnRefusal(t *testing.T) {
	bus := busx.NewFakeBus()
	c := New(bus, log.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Uninstall("com.example.app", false) }()

	require.Eventually(t, func() bool { return len(bus.Calls()) == 1 }, time.Second, time.Millisecond, "call must be issued")
	bus.Reply(1, busx.Reply{Payload: map[string]any{"returnValue": false, "errorText": "not permitted"}})

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not permitted")
}
