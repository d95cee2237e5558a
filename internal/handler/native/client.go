// Package native is the Native Runtime Handler: it spawns native app
// processes directly (unlike the web/qml handlers, which delegate to a
// runtime service over the bus) and speaks a small JSON event protocol to
// them over their own stdio/bus connection. Grounded on
// original_source/src/lifecycle/handler/NativeAppLifeHandler.cpp and its
// native_interface v1/v2 split.
package native

import (
	"context"
	"time"

	"github.com/webosose/sam-sub002/internal/procsup"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// ClientInfo tracks one spawned native app instance across its lifetime:
// from process spawn, through optional registration (v2), to exit.
type ClientInfo struct {
	AppID            string
	PID              string
	InterfaceVersion int

	// RuntimeStatus is the client's last-reported status; Launch reads
	// it to decide whether an existing client needs a fork, a relaunch
	// event, or to be queued behind AddPendingLaunch.
	RuntimeStatus runninginfo.RuntimeStatus

	registered   bool
	registeredCh chan struct{}

	exit <-chan procsup.ExitResult
}

func newClientInfo(appID string, version int) *ClientInfo {
	return &ClientInfo{AppID: appID, InterfaceVersion: version, registeredCh: make(chan struct{})}
}

// markRegistered records a v2 app's registerApp call and unblocks
// waiters of awaitRegistration.
func (c *ClientInfo) markRegistered() {
	if c.registered {
		return
	}
	c.registered = true
	close(c.registeredCh)
}

// awaitRegistration blocks until the client registers, ctx is cancelled,
// or timeout elapses, matching the original's 3-second registration
// window for v2 apps (original_source's TIME_LIMIT_OF_APP_LAUNCHING).
func (c *ClientInfo) awaitRegistration(ctx context.Context, timeout time.Duration) error {
	select {
	case <-c.registeredCh:
		return nil
	case <-time.After(timeout):
		return errRegistrationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Strategy captures the v1/v2 launch-protocol difference: how a freshly
// spawned client is expected to announce itself as ready.
type Strategy interface {
	// AwaitReady blocks until client is considered launched: for v1,
	// that's immediate (fire the process and report Running); for v2,
	// that's the registerApp handshake within a bounded window.
	AwaitReady(ctx context.Context, client *ClientInfo) error
	// InterfaceVersion identifies which native_interface this strategy
	// implements.
	InterfaceVersion() int
}

// v1Strategy: a v1 native app is considered running the instant its
// process is spawned; it never calls back to register.
type v1Strategy struct{}

func (v1Strategy) AwaitReady(ctx context.Context, client *ClientInfo) error { return nil }
func (v1Strategy) InterfaceVersion() int                                   { return 1 }

// v2Strategy: a v2 native app must call registerApp within
// registrationTimeout of being spawned, or its launch is failed.
type v2Strategy struct {
	registrationTimeout time.Duration
}

func newV2Strategy() v2Strategy {
	return v2Strategy{registrationTimeout: 3 * time.Second}
}

func (s v2Strategy) AwaitReady(ctx context.Context, client *ClientInfo) error {
	return client.awaitRegistration(ctx, s.registrationTimeout)
}

func (v2Strategy) InterfaceVersion() int { return 2 }

// StrategyFor picks the Strategy matching an app package's declared
// native interface version; anything other than 2 is treated as v1.
func StrategyFor(interfaceVersion int) Strategy {
	if interfaceVersion == 2 {
		return newV2Strategy()
	}
	return v1Strategy{}
}

// runtimeStatusForReady is what an app's RuntimeStatus becomes once its
// strategy reports it ready; always Running, mirroring RunningInfo
// always converting Running to Foreground/Background at the router.
const runtimeStatusForReady = runninginfo.RuntimeStatusRunning
