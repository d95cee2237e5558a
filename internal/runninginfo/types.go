// Package runninginfo is the Running-Info Table: the only place life and
// runtime status live for a running app instance, keyed by (app id,
// display). Grounded on original_source's RunningInfoManager (one map
// keyed by app id/display, foreground bookkeeping alongside it) using an
// RWMutex-guarded map.
package runninginfo

import "time"

// LifeStatus is the observable, user-visible lifecycle state. Running is
// internal only: the Lifecycle Router converts it to Background (from Stop
// or Preloading) or ignores it, so it never reaches RunningInfo.
type LifeStatus string

// LifeStatus values.
const (
	LifeStatusInvalid     LifeStatus = "invalid"
	LifeStatusStop        LifeStatus = "stop"
	LifeStatusPreloading  LifeStatus = "preloading"
	LifeStatusLaunching   LifeStatus = "launching"
	LifeStatusRelaunching LifeStatus = "relaunching"
	LifeStatusForeground  LifeStatus = "foreground"
	LifeStatusBackground  LifeStatus = "background"
	LifeStatusClosing     LifeStatus = "closing"
	LifeStatusPausing     LifeStatus = "pausing"
	// LifeStatusRunning never appears as a stored/observable LifeStatus
	// (invariant 4); it exists only so the Router can accept it as input
	// from a handler and convert it.
	LifeStatusRunning LifeStatus = "running"
)

// RuntimeStatus is the internal, process-level state a Handler reports.
type RuntimeStatus string

// RuntimeStatus values.
const (
	RuntimeStatusStop       RuntimeStatus = "stop"
	RuntimeStatusLaunching  RuntimeStatus = "launching"
	RuntimeStatusPreloading RuntimeStatus = "preloading"
	RuntimeStatusRunning    RuntimeStatus = "running"
	RuntimeStatusRegistered RuntimeStatus = "registered"
	RuntimeStatusClosing    RuntimeStatus = "closing"
	RuntimeStatusPausing    RuntimeStatus = "pausing"
)

// LifeEvent is the subscription payload kind a LifeStatus maps to for
// fan-out, per the Lifecycle Router's life_event_of.
type LifeEvent string

// LifeEvent values.
const (
	LifeEventInvalid    LifeEvent = "invalid"
	LifeEventSplash     LifeEvent = "splash"
	LifeEventPreload    LifeEvent = "preload"
	LifeEventLaunch     LifeEvent = "launch"
	LifeEventForeground LifeEvent = "foreground"
	LifeEventBackground LifeEvent = "background"
	LifeEventPause      LifeEvent = "pause"
	LifeEventClose      LifeEvent = "close"
	LifeEventStop       LifeEvent = "stop"
)

// Key identifies one live app instance.
type Key struct {
	AppID   string
	Display string
}

// DefaultDisplay is used when a caller doesn't specify one.
const DefaultDisplay = "default"

// RunningInfo is one live instance's bookkeeping, owned exclusively by
// this table (invariant 5: every RunningInfo transition was returned Set
// by the Router).
type RunningInfo struct {
	AppID         string
	Display       string
	PID           string
	WebProcessID  string
	LifeStatus    LifeStatus
	RuntimeStatus RuntimeStatus
	LastLaunch    time.Time
	ExecutionLock bool
	PreloadMode   string
	RemovalFlag   bool
	// LastEvent is the most recent LifeEvent fanned out for this
	// instance. registerApp replays it to a client that (re)registers
	// after missing the original fan-out, per
	// NativeAppLifeHandler::registerApp.
	LastEvent LifeEvent
}
