package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_EmptyItemsPassesImmediately(t *testing.T) {
	var fired bool
	var passed bool
	m := New(nil, func(p bool) { fired = true; passed = p })
	m.Run()
	require.True(t, fired)
	assert.True(t, passed)
}

func TestMonitor_BothItemsPassed(t *testing.T) {
	var result *bool
	m := New(nil, func(p bool) { result = &p })

	configLoaded := m.AddItem("config-loaded")
	bootDone := m.AddItem("boot-done")
	m.Run()

	configLoaded.SetStatus(StatusPassed)
	require.Nil(t, result, "must not fire until every item settles")

	bootDone.SetStatus(StatusPassed)
	require.NotNil(t, result)
	assert.True(t, *result)
}

func TestMonitor_OneItemFailedYieldsOverallFailure(t *testing.T) {
	var result *bool
	m := New(nil, func(p bool) { result = &p })

	configLoaded := m.AddItem("config-loaded")
	bootDone := m.AddItem("boot-done")
	m.Run()

	configLoaded.SetStatus(StatusFailed)
	bootDone.SetStatus(StatusPassed)

	require.NotNil(t, result)
	assert.False(t, *result)
}

func TestMonitor_FiresExactlyOnce(t *testing.T) {
	calls := 0
	m := New(nil, func(bool) { calls++ })

	item := m.AddItem("config-loaded")
	m.Run()
	item.SetStatus(StatusPassed)
	item.SetStatus(StatusFailed) // late/duplicate signal must not re-fire

	assert.Equal(t, 1, calls)
}

func TestItem_IgnoresUnsettledStatus(t *testing.T) {
	calls := 0
	m := New(nil, func(bool) { calls++ })
	item := m.AddItem("config-loaded")
	m.Run()

	item.SetStatus(StatusInProgress)
	assert.Equal(t, 0, calls)
}
