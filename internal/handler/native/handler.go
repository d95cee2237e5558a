package native

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/procsup"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// forceKillTimeout mirrors the original's TIMEOUT_FOR_FORCE_KILL: how
// long close() waits after asking an app to exit before SIGKILLing it.
const forceKillTimeout = time.Second

// StatusFunc is invoked whenever the handler observes a RuntimeStatus
// transition for appID; pid is empty when not yet known. Declared
// locally (mirroring handler.StatusFunc) rather than imported, so this
// package stays leaf-level and the outer handler package can adapt it.
type StatusFunc func(appID, pid string, status runninginfo.RuntimeStatus)

// CloseRequest is what Close needs to stop one native app instance.
type CloseRequest struct {
	AppID  string
	Reason string
}

// Handler spawns and supervises native app processes directly, playing
// the role the outer handler package's Handler interface names for
// HandlerKind "native".
type Handler struct {
	runner    procsup.Runner
	escalator *procsup.Escalator
	logger    log.Logger
	onStatus  StatusFunc

	mu      sync.Mutex
	clients map[string]*ClientInfo
	pending map[string][]*LaunchRequest
}

// New builds a native Handler spawning processes via runner.
func New(runner procsup.Runner, onStatus StatusFunc, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{
		runner:    runner,
		escalator: procsup.NewEscalator(runner, forceKillTimeout, logger),
		logger:    logger,
		onStatus:  onStatus,
		clients:   make(map[string]*ClientInfo),
		pending:   make(map[string][]*LaunchRequest),
	}
}

// Launch implements handler.Handler. interfaceVersion selects the v1/v2
// strategy; callers resolve it from the app package before calling in.
// Dispatch follows the client's current RuntimeStatus: no client (Stop)
// forks fresh, Running/Registered go to relaunch (which reports Running
// again without forking or messaging the app), and
// Launching/Preloading/Closing queue behind AddPendingLaunch until the
// current transition resolves.
func (h *Handler) Launch(ctx context.Context, item *LaunchRequest) error {
	h.mu.Lock()
	client, exists := h.clients[item.AppID]
	h.mu.Unlock()

	if !exists {
		return h.launchFresh(ctx, item)
	}

	switch client.RuntimeStatus {
	case runninginfo.RuntimeStatusRunning, runninginfo.RuntimeStatusRegistered:
		return h.relaunch(ctx, client, item)
	case runninginfo.RuntimeStatusLaunching, runninginfo.RuntimeStatusPreloading, runninginfo.RuntimeStatusClosing:
		h.logger.Info("launch_app_queued_pending_transition", "app_id", item.AppID, "runtime_status", client.RuntimeStatus)
		h.AddPendingLaunch(item.AppID, item)
		return nil
	default:
		return h.relaunch(ctx, client, item)
	}
}

func (h *Handler) launchFresh(ctx context.Context, item *LaunchRequest) error {
	client := newClientInfo(item.AppID, item.InterfaceVersion)

	spec := procsup.Spec{Path: item.Main, Args: item.Args, Env: item.Env, Dir: item.Dir}
	proc, err := h.runner.Start(ctx, spec)
	if err != nil {
		return fmt.Errorf("spawn native app: %w", err)
	}
	client.PID = fmt.Sprintf("%d", proc.PID)
	client.exit = proc.Exit

	h.mu.Lock()
	h.clients[item.AppID] = client
	h.mu.Unlock()

	h.notify(item.AppID, client.PID, runninginfo.RuntimeStatusLaunching)
	go h.watchExit(item.AppID, client)

	strategy := StrategyFor(item.InterfaceVersion)
	if err := strategy.AwaitReady(ctx, client); err != nil {
		h.logger.Error("native app registration failed", "app_id", item.AppID, "err", err)
		h.notify(item.AppID, client.PID, runninginfo.RuntimeStatusStop)
		return err
	}

	h.notify(item.AppID, client.PID, runtimeStatusForReady)
	return nil
}

// relaunch handles a launch request for an already-running or
// already-registered client: it logs the request and reports Running
// again. No process is started and no relaunch event is sent to the app,
// for either interface version.
func (h *Handler) relaunch(ctx context.Context, client *ClientInfo, item *LaunchRequest) error {
	h.logger.Info("relaunch requested for running native app", "app_id", item.AppID, "runtime_status", client.RuntimeStatus)
	h.notify(item.AppID, client.PID, runninginfo.RuntimeStatusRunning)
	return nil
}

// Register handles a v2 app's registerApp call.
func (h *Handler) Register(appID string) error {
	h.mu.Lock()
	client, ok := h.clients[appID]
	h.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	client.markRegistered()
	h.notify(appID, client.PID, runninginfo.RuntimeStatusRegistered)
	return nil
}

// Close signals the process to exit, then escalates to SIGKILL if it
// hasn't within forceKillTimeout.
func (h *Handler) Close(ctx context.Context, item *CloseRequest) (string, error) {
	h.mu.Lock()
	client, ok := h.clients[item.AppID]
	h.mu.Unlock()
	if !ok {
		return "", ErrNotRunning
	}

	h.notify(item.AppID, client.PID, runninginfo.RuntimeStatusClosing)

	var pid int
	fmt.Sscanf(client.PID, "%d", &pid)

	exited := make(chan struct{})
	go func() {
		<-client.exit
		close(exited)
	}()

	h.escalator.Close(ctx, pid, exited)
	return client.PID, nil
}

// Pause implements handler.Handler; native apps have no pause interface
// in this runtime generation (the original only routes pause to web/qml).
func (h *Handler) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return fmt.Errorf("no pause interface for native apps")
}

func (h *Handler) watchExit(appID string, client *ClientInfo) {
	result := <-client.exit

	h.mu.Lock()
	delete(h.clients, appID)
	pending := h.pending[appID]
	delete(h.pending, appID)
	h.mu.Unlock()

	if result.Err != nil {
		h.logger.Info("native app exited", "app_id", appID, "err", result.Err)
	}

	h.notify(appID, "", runninginfo.RuntimeStatusStop)

	if len(pending) > 0 {
		h.logger.Info("launch_app_waiting_previous_app_closed", "app_id", appID)
		go func() {
			if err := h.Launch(context.Background(), pending[0]); err != nil {
				h.logger.Error("pending relaunch failed", "app_id", appID, "err", err)
			}
		}()
	}
}

// AddPendingLaunch queues a launch request to run once appID's current
// instance has fully exited, mirroring the original's
// m_launchPendingQueue / handlePendingQOnClosed (only the first queued
// request is honored once the previous instance closes).
func (h *Handler) AddPendingLaunch(appID string, item *LaunchRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[appID] = append(h.pending[appID], item)
}

func (h *Handler) notify(appID, pid string, status runninginfo.RuntimeStatus) {
	h.mu.Lock()
	if client, ok := h.clients[appID]; ok {
		client.RuntimeStatus = status
	}
	h.mu.Unlock()

	if h.onStatus != nil {
		h.onStatus(appID, pid, status)
	}
}

// LaunchRequest is the native-specific launch payload: a resolved
// executable path/args/env plus the app's declared interface version.
type LaunchRequest struct {
	AppID            string
	Main             string
	Args             []string
	Env              []string
	Dir              string
	InterfaceVersion int
}
