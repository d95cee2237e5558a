package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/webosose/sam-sub002/internal/fanout"
	"github.com/webosose/sam-sub002/internal/foreground"
	"github.com/webosose/sam-sub002/internal/handler"
	"github.com/webosose/sam-sub002/internal/lifecycle/memcheck"
	"github.com/webosose/sam-sub002/internal/lifecycle/prelaunch"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/roster"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// Subscription keys the Manager fans events out to.
const (
	keyAppLifeEvents     = "getAppLifeEvents"
	keyAppLifeStatus     = "getAppLifeStatus"
	keyRunning           = "running"
	keyDevRunning        = "dev_running"
	keyForegroundInfo    = "foregroundAppInfo"
	keyForegroundInfoEx  = "foregroundAppInfoEx"
)

// ErrAppLocked is returned when a launch targets a locked package.
var ErrAppLocked = fmt.Errorf("app is locked")

// StageBuilder builds the stage list a LaunchAppItem must pass through
// for pkg; the Manager always prepends an execution-lock check.
type StageBuilder func(pkg *roster.AppPackage, item *prelaunch.Item) []prelaunch.Stage

// LaunchRequest is the public entry point for a launch task.
type LaunchRequest struct {
	UID       string
	AppID     string
	Display   string
	Params    map[string]any
	Preload   string
	KeepAlive bool
	CallerID  string
}

// LaunchResult is what a completed (or failed) launch reports back.
type LaunchResult struct {
	AppID     string
	ProcessID string
	Err       error
}

// Manager is the single serial driver coordinating Roster readiness,
// the Prelauncher, Memory Checker, and the per-runtime Handlers, and
// applying every resulting transition through the Router.
type Manager struct {
	router      *Router
	roster      *roster.Roster
	running     *runninginfo.Table
	prelauncher *prelaunch.Pipeline
	memChecker  *memcheck.Checker
	handlers    *handler.Registry
	fanout      *fanout.Fanout
	stages      StageBuilder
	logger      log.Logger

	mu         sync.Mutex
	ready      bool
	scanning   bool
	readyQueue []func()
	scanQueue  []func()
}

// NewManager wires a Manager from its collaborators. stages builds the
// launch-specific stage list (redirect checks, splash notification,
// etc.); the Manager always prepends the execution-lock check itself.
func NewManager(
	router *Router,
	rosterTable *roster.Roster,
	running *runninginfo.Table,
	prelauncher *prelaunch.Pipeline,
	memChecker *memcheck.Checker,
	handlers *handler.Registry,
	fanoutPublisher *fanout.Fanout,
	stages StageBuilder,
	logger log.Logger,
) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		router:      router,
		roster:      rosterTable,
		running:     running,
		prelauncher: prelauncher,
		memChecker:  memChecker,
		handlers:    handlers,
		fanout:      fanoutPublisher,
		stages:      stages,
		logger:      logger,
	}
}

// SetRosterReady flips readiness; once true (and no scan in progress)
// every queued task runs.
func (m *Manager) SetRosterReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
	m.drainQueues()
}

// BeginScan marks a roster scan as in progress, gating every task.
func (m *Manager) BeginScan() {
	m.mu.Lock()
	m.scanning = true
	m.mu.Unlock()
}

// EndScan clears the scan gate and drains anything queued behind it.
func (m *Manager) EndScan() {
	m.mu.Lock()
	m.scanning = false
	m.mu.Unlock()
	m.drainQueues()
}

// runOrQueue runs fn immediately if the Manager isn't gated, otherwise
// queues it on the ready queue (launch tasks) or scan queue (everything
// else); both queues share the exact same release condition.
func (m *Manager) runOrQueue(isLaunch bool, fn func()) {
	m.mu.Lock()
	if !m.ready || m.scanning {
		if isLaunch {
			m.readyQueue = append(m.readyQueue, fn)
		} else {
			m.scanQueue = append(m.scanQueue, fn)
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

func (m *Manager) drainQueues() {
	for {
		m.mu.Lock()
		if !m.ready || m.scanning {
			m.mu.Unlock()
			return
		}
		if len(m.readyQueue) == 0 && len(m.scanQueue) == 0 {
			m.mu.Unlock()
			return
		}
		ready := m.readyQueue
		scan := m.scanQueue
		m.readyQueue = nil
		m.scanQueue = nil
		m.mu.Unlock()

		for _, fn := range ready {
			fn()
		}
		for _, fn := range scan {
			fn()
		}
	}
}

// Launch runs req through the Prelauncher, Memory Checker, and the
// package's Handler, in that order. done is invoked exactly once.
func (m *Manager) Launch(ctx context.Context, req LaunchRequest, done func(LaunchResult)) {
	m.runOrQueue(true, func() { m.launchNow(ctx, req, done) })
}

func (m *Manager) launchNow(ctx context.Context, req LaunchRequest, done func(LaunchResult)) {
	pkg, ok := m.roster.Get(req.AppID)
	if !ok {
		done(LaunchResult{AppID: req.AppID, Err: fmt.Errorf("app not found: %s", req.AppID)})
		return
	}
	if pkg.Locked {
		done(LaunchResult{AppID: req.AppID, Err: ErrAppLocked})
		return
	}

	item := &prelaunch.Item{UID: req.UID, AppID: req.AppID, RequestedAppID: req.AppID, Display: req.Display, Params: req.Params}
	stages := []prelaunch.Stage{executionLockStage(m.running)}
	if m.stages != nil {
		stages = append(stages, m.stages(pkg, item)...)
	}
	item.SetStages(stages)

	m.prelauncher.Run(ctx, item, func(it *prelaunch.Item, err error) {
		if err != nil {
			done(LaunchResult{AppID: it.AppID, Err: err})
			return
		}
		m.afterPrelaunch(ctx, it, req, done)
	})
}

func (m *Manager) afterPrelaunch(ctx context.Context, item *prelaunch.Item, req LaunchRequest, done func(LaunchResult)) {
	pkg, ok := m.roster.Get(item.AppID)
	if !ok {
		done(LaunchResult{AppID: item.AppID, Err: fmt.Errorf("app not found: %s", item.AppID)})
		return
	}

	m.memChecker.Submit(memcheck.Item{
		UID:            item.UID,
		RequiredMemory: pkg.RequiredMemory,
		Done: func(err error) {
			if err != nil {
				done(LaunchResult{AppID: item.AppID, Err: err})
				return
			}
			m.dispatchToHandler(ctx, pkg, item, req, done)
		},
	})
}

func (m *Manager) dispatchToHandler(ctx context.Context, pkg *roster.AppPackage, item *prelaunch.Item, req LaunchRequest, done func(LaunchResult)) {
	h, ok := m.handlers.For(string(pkg.HandlerKind))
	if !ok {
		done(LaunchResult{AppID: item.AppID, Err: fmt.Errorf("no handler for kind %q", pkg.HandlerKind)})
		return
	}

	info := m.running.Add(item.AppID, item.Display)

	err := h.Launch(ctx, &handler.LaunchItem{
		UID:       item.UID,
		AppID:     item.AppID,
		Display:   item.Display,
		Main:      pkg.Main,
		Params:    req.Params,
		KeepAlive: req.KeepAlive,
		Preload:   req.Preload,
	})
	if err != nil {
		done(LaunchResult{AppID: item.AppID, Err: err})
		return
	}
	done(LaunchResult{AppID: item.AppID, ProcessID: info.PID})
}

// Close stops a running app instance through its Handler.
func (m *Manager) Close(ctx context.Context, appID, display, reason string, done func(error)) {
	m.runOrQueue(false, func() {
		pkg, ok := m.roster.Get(appID)
		if !ok {
			done(fmt.Errorf("app not found: %s", appID))
			return
		}
		h, ok := m.handlers.For(string(pkg.HandlerKind))
		if !ok {
			done(fmt.Errorf("no handler for kind %q", pkg.HandlerKind))
			return
		}
		_, err := h.Close(ctx, &handler.CloseItem{AppID: appID, Reason: reason})
		done(err)
	})
}

// Pause sends a pause request to the app's Handler.
func (m *Manager) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool, done func(error)) {
	m.runOrQueue(false, func() {
		pkg, ok := m.roster.Get(appID)
		if !ok {
			done(fmt.Errorf("app not found: %s", appID))
			return
		}
		h, ok := m.handlers.For(string(pkg.HandlerKind))
		if !ok {
			done(fmt.Errorf("no handler for kind %q", pkg.HandlerKind))
			return
		}
		done(h.Pause(ctx, appID, params, sendLifeEvent))
	})
}

// CloseAll closes every running instance, ordered so that a window-group
// owner closes after its group's members — supplementing spec.md's
// silence on closeAll ordering using original_source's window-group
// concept.
func (m *Manager) CloseAll(ctx context.Context, reason string, done func([]error)) {
	m.runOrQueue(false, func() {
		order, err := m.closeOrder()
		if err != nil {
			m.logger.Error("closeAll ordering failed", "err", err)
			order = nil
			for _, info := range m.running.List() {
				order = append(order, info.AppID)
			}
			sort.Strings(order)
		}

		var errs []error
		for _, appID := range order {
			h, ok := m.handlerFor(appID)
			if !ok {
				continue
			}
			if _, err := h.Close(ctx, &handler.CloseItem{AppID: appID, Reason: reason}); err != nil {
				errs = append(errs, err)
			}
		}
		done(errs)
	})
}

func (m *Manager) handlerFor(appID string) (handler.Handler, bool) {
	pkg, ok := m.roster.Get(appID)
	if !ok {
		return nil, false
	}
	return m.handlers.For(string(pkg.HandlerKind))
}

// closeOrder builds a directed graph edge group-member -> owner for every
// running app in an enabled window group, then topologically sorts it so
// members always precede their owner.
func (m *Manager) closeOrder() ([]string, error) {
	running := m.running.List()

	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	for _, info := range running {
		_ = g.AddVertex(info.AppID)
	}

	byGroup := make(map[string][]string)
	owners := make(map[string]string)
	for _, info := range running {
		pkg, ok := m.roster.Get(info.AppID)
		if !ok || !pkg.WindowGroup.Enabled || pkg.WindowGroup.Name == "" {
			continue
		}
		byGroup[pkg.WindowGroup.Name] = append(byGroup[pkg.WindowGroup.Name], info.AppID)
		if pkg.WindowGroup.IsOwner {
			owners[pkg.WindowGroup.Name] = info.AppID
		}
	}

	for group, members := range byGroup {
		owner, ok := owners[group]
		if !ok {
			continue
		}
		for _, member := range members {
			if member == owner {
				continue
			}
			if err := g.AddEdge(member, owner); err != nil {
				m.logger.Error("closeAll graph edge failed", "group", group, "member", member, "owner", owner, "err", err)
			}
		}
	}

	order, err := graph.TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// OnHandlerStatus is the callback every Handler reports RuntimeStatus
// transitions through. It implements the Manager's 5-step reaction to a
// state-change signal.
func (m *Manager) OnHandlerStatus(appID, pid string, runtimeStatus runninginfo.RuntimeStatus) {
	info, ok := m.running.Get(appID, runninginfo.DefaultDisplay)
	if !ok {
		info = m.running.Add(appID, runninginfo.DefaultDisplay)
	}
	if pid != "" {
		info.PID = pid
	}

	// Step 1: route the runtime transition.
	runtimeAction := m.router.RuntimeRoute(info.RuntimeStatus, runtimeStatus)
	if runtimeAction != RouteSet {
		return
	}
	info.RuntimeStatus = runtimeStatus

	// Step 2: derive the observable LifeStatus (Convert applied) and
	// apply it through the Router a second time.
	proposed := m.router.LifeStatusFromRuntimeStatus(runtimeStatus)
	policy := m.router.Route(info.LifeStatus, proposed)
	if policy.Action == RouteIgnore {
		return
	}
	previous := info.LifeStatus
	info.LifeStatus = policy.Next

	// Step 3: translate to LifeEvent and fan out.
	event := m.router.LifeEventOf(info.LifeStatus)
	if event != runninginfo.LifeEventInvalid {
		info.LastEvent = event
		payload := map[string]any{"appId": appID, "event": string(event)}
		m.fanout.PublishMany([]string{keyAppLifeEvents}, payload)
		m.fanout.Publish(keyAppLifeStatus, map[string]any{"appId": appID, "status": string(info.LifeStatus), "processId": info.PID})
	}
	m.fanout.PublishMany([]string{keyRunning, keyDevRunning}, map[string]any{"id": appID, "processid": info.PID})

	// Step 4: foreground bookkeeping.
	if info.LifeStatus == runninginfo.LifeStatusForeground {
		m.running.Foreground().SetCurrentForegroundApp(foreground.Info{AppID: appID, ProcessID: info.PID})
		m.fanout.Publish(keyForegroundInfo, map[string]any{"appId": appID, "processId": info.PID})
		m.fanout.Publish(keyForegroundInfoEx, map[string]any{"foregroundAppInfo": m.running.Foreground().GetForegroundApps()})
	} else if previous == runninginfo.LifeStatusForeground && info.LifeStatus == runninginfo.LifeStatusBackground {
		m.running.Foreground().SetForegroundApps(nil)
		m.fanout.Publish(keyForegroundInfo, map[string]any{"appId": "", "processId": ""})
	}

	// Step 5: a Stop transition always removes the Running-Info entry;
	// flagged_for_removal only deferred the uninstall itself, not this.
	if info.LifeStatus == runninginfo.LifeStatusStop {
		m.running.Remove(appID, info.Display)
	}
}
