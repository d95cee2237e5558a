// Package handler holds the per-runtime lifecycle handlers the Lifecycle
// Manager dispatches to once an item clears the Prelauncher and Memory
// Checker: web, qml, native, and stub. Grounded on
// original_source/src/lifecycle/IAppLifeHandler.h's three-method contract.
package handler

import (
	"context"

	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// LaunchItem is what a handler needs to start (or re-signal) one app
// instance.
type LaunchItem struct {
	UID       string
	AppID     string
	Display   string
	Main      string
	Params    map[string]any
	KeepAlive bool
	Preload   string
}

// CloseItem is what a handler needs to stop one app instance.
type CloseItem struct {
	UID    string
	AppID  string
	Reason string
}

// StatusFunc is invoked whenever a handler observes a RuntimeStatus
// transition for appID; pid is empty when not yet known.
type StatusFunc func(appID, pid string, status runninginfo.RuntimeStatus)

// Handler is the contract every runtime-specific lifecycle handler
// implements.
type Handler interface {
	Launch(ctx context.Context, item *LaunchItem) error
	Close(ctx context.Context, item *CloseItem) (string, error)
	Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error
}

// Registerer is implemented by handlers whose runtime must explicitly
// confirm it's ready to receive life events (native v2 apps calling
// registerApp). Handlers without a registration step don't implement it.
type Registerer interface {
	Register(appID string) error
}

// Registry dispatches by HandlerKind to the right concrete Handler.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a Registry with no handlers bound; call Register for
// each kind the deployment supports.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds kind (e.g. "web", "qml", "native", "none") to h.
func (r *Registry) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// For returns the Handler bound to kind, or false if none is.
func (r *Registry) For(kind string) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
