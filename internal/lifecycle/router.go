// Package lifecycle holds the pure Lifecycle Router (component E) and,
// alongside it, the Lifecycle Manager (component I) that is the only
// component allowed to act on the Router's verdicts. Router.go is
// translated directly from original_source's LifeCycleRouter
// (core/lifecycle/app_life_status.{h,cpp}): two immutable transition
// tables built once by a constructor, never mutated afterward.
package lifecycle

import "github.com/webosose/sam-sub002/internal/runninginfo"

// RouteAction is the Router's verdict for a proposed LifeStatus/
// RuntimeStatus transition.
type RouteAction int

// RouteAction values.
const (
	RouteSet RouteAction = iota
	RouteIgnore
	RouteConvert
)

// RouteLog is the severity attached to a transition (Check ≈ Debug,
// Warn ≈ Warn, Error ≈ Error, None = no log line). Manager.OnHandlerStatus
// does not log it.
type RouteLog int

// RouteLog values.
const (
	LogNone RouteLog = iota
	LogCheck
	LogWarn
	LogError
)

// RoutePolicy is the Router's answer for one (current, proposed) pair:
// which LifeStatus to land on (equal to the proposed one unless Action is
// RouteConvert), what to do, and at what severity.
type RoutePolicy struct {
	Next   runninginfo.LifeStatus
	Action RouteAction
	Level  RouteLog
}

var invalidRoutePolicy = RoutePolicy{Next: runninginfo.LifeStatusInvalid, Action: RouteIgnore, Level: LogError}

// RuntimeRoutePolicy is the simpler RuntimeStatus-to-RuntimeStatus
// counterpart: no Convert, no log level (the original never logs a
// runtime route's severity; only whether it's SET matters).
type RuntimeRoutePolicy struct {
	Next   runninginfo.RuntimeStatus
	Action RouteAction
}

// Router is a pure, stateless function store: all mutation of
// RunningInfo happens in the Lifecycle Manager, which is the only caller
// of Route/RuntimeRoute.
type Router struct {
	lifecycleRoute map[runninginfo.LifeStatus][]RoutePolicy
	lifestatusConv map[runninginfo.LifeStatus]map[runninginfo.LifeStatus]RoutePolicy
	runtimeRoute   map[runninginfo.RuntimeStatus][]RuntimeRoutePolicy
	runtimeConv    map[runninginfo.RuntimeStatus]runninginfo.LifeStatus
	lifeEventConv  map[runninginfo.LifeStatus]runninginfo.LifeEvent
}

// NewRouter builds both transition tables once.
func NewRouter() *Router {
	r := &Router{
		lifecycleRoute: make(map[runninginfo.LifeStatus][]RoutePolicy),
		lifestatusConv: make(map[runninginfo.LifeStatus]map[runninginfo.LifeStatus]RoutePolicy),
		runtimeRoute:   make(map[runninginfo.RuntimeStatus][]RuntimeRoutePolicy),
		runtimeConv:    make(map[runninginfo.RuntimeStatus]runninginfo.LifeStatus),
		lifeEventConv:  make(map[runninginfo.LifeStatus]runninginfo.LifeEvent),
	}
	r.initLifecycleRoutes()
	r.initRuntimeRoutes()
	r.initConversions()
	return r
}

func (r *Router) initLifecycleRoutes() {
	const (
		Stop        = runninginfo.LifeStatusStop
		Preloading  = runninginfo.LifeStatusPreloading
		Launching   = runninginfo.LifeStatusLaunching
		Relaunching = runninginfo.LifeStatusRelaunching
		Foreground  = runninginfo.LifeStatusForeground
		Background  = runninginfo.LifeStatusBackground
		Closing     = runninginfo.LifeStatusClosing
		Pausing     = runninginfo.LifeStatusPausing
		Running     = runninginfo.LifeStatusRunning
	)

	r.lifecycleRoute[Stop] = []RoutePolicy{
		{Stop, RouteIgnore, LogError},
		{Preloading, RouteSet, LogNone},
		{Launching, RouteSet, LogNone},
		{Relaunching, RouteIgnore, LogError},
		{Foreground, RouteIgnore, LogWarn},
		{Background, RouteIgnore, LogWarn},
		{Closing, RouteIgnore, LogError},
		{Pausing, RouteIgnore, LogError},
		{Running, RouteConvert, LogWarn},
	}
	r.lifestatusConv[Stop] = map[runninginfo.LifeStatus]RoutePolicy{
		Running: {Background, RouteSet, LogNone},
	}

	r.lifecycleRoute[Preloading] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteSet, LogCheck},
		{Relaunching, RouteIgnore, LogError},
		{Foreground, RouteSet, LogWarn},
		{Background, RouteIgnore, LogNone},
		{Closing, RouteSet, LogCheck},
		{Pausing, RouteIgnore, LogError},
		{Running, RouteConvert, LogWarn},
	}
	r.lifestatusConv[Preloading] = map[runninginfo.LifeStatus]RoutePolicy{
		Running: {Background, RouteSet, LogNone},
	}

	r.lifecycleRoute[Launching] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteIgnore, LogCheck},
		{Relaunching, RouteIgnore, LogError},
		{Foreground, RouteSet, LogNone},
		{Background, RouteIgnore, LogWarn},
		{Closing, RouteSet, LogCheck},
		{Pausing, RouteIgnore, LogCheck},
		{Running, RouteIgnore, LogNone},
	}

	r.lifecycleRoute[Relaunching] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteIgnore, LogError},
		{Relaunching, RouteIgnore, LogCheck},
		{Foreground, RouteSet, LogNone},
		{Background, RouteIgnore, LogWarn},
		{Closing, RouteSet, LogCheck},
		{Pausing, RouteIgnore, LogCheck},
		{Running, RouteIgnore, LogNone},
	}

	r.lifecycleRoute[Foreground] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteIgnore, LogError},
		{Relaunching, RouteIgnore, LogWarn},
		{Foreground, RouteIgnore, LogWarn},
		{Background, RouteSet, LogNone},
		{Closing, RouteSet, LogNone},
		{Pausing, RouteSet, LogNone},
		{Running, RouteIgnore, LogNone},
	}

	r.lifecycleRoute[Background] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteConvert, LogError},
		{Relaunching, RouteSet, LogNone},
		{Foreground, RouteSet, LogWarn},
		{Background, RouteIgnore, LogWarn},
		{Closing, RouteSet, LogNone},
		{Pausing, RouteIgnore, LogNone},
		{Running, RouteIgnore, LogNone},
	}
	r.lifestatusConv[Background] = map[runninginfo.LifeStatus]RoutePolicy{
		Launching: {Relaunching, RouteSet, LogNone},
	}

	r.lifecycleRoute[Closing] = []RoutePolicy{
		{Stop, RouteSet, LogNone},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteIgnore, LogError},
		{Relaunching, RouteIgnore, LogError},
		{Foreground, RouteIgnore, LogCheck},
		{Background, RouteIgnore, LogWarn},
		{Closing, RouteIgnore, LogNone},
		{Pausing, RouteIgnore, LogError},
		{Running, RouteIgnore, LogError},
	}

	r.lifecycleRoute[Pausing] = []RoutePolicy{
		{Stop, RouteSet, LogWarn},
		{Preloading, RouteIgnore, LogError},
		{Launching, RouteIgnore, LogError},
		{Relaunching, RouteSet, LogCheck},
		{Foreground, RouteIgnore, LogWarn},
		{Background, RouteSet, LogNone},
		{Closing, RouteSet, LogCheck},
		{Pausing, RouteIgnore, LogWarn},
		{Running, RouteIgnore, LogError},
	}
}

func (r *Router) initRuntimeRoutes() {
	const (
		Stop       = runninginfo.RuntimeStatusStop
		Launching  = runninginfo.RuntimeStatusLaunching
		Preloading = runninginfo.RuntimeStatusPreloading
		Running    = runninginfo.RuntimeStatusRunning
		Registered = runninginfo.RuntimeStatusRegistered
		Closing    = runninginfo.RuntimeStatusClosing
		Pausing    = runninginfo.RuntimeStatusPausing
	)

	r.runtimeRoute[Stop] = []RuntimeRoutePolicy{
		{Stop, RouteIgnore},
		{Launching, RouteSet},
		{Preloading, RouteSet},
		{Running, RouteSet},
		{Registered, RouteIgnore},
		{Closing, RouteIgnore},
		{Pausing, RouteIgnore},
	}
	r.runtimeRoute[Launching] = []RuntimeRoutePolicy{
		{Stop, RouteSet},
		{Launching, RouteIgnore},
		{Preloading, RouteIgnore},
		{Running, RouteSet},
		{Registered, RouteIgnore},
		{Closing, RouteIgnore},
		{Pausing, RouteIgnore},
	}
	r.runtimeRoute[Preloading] = []RuntimeRoutePolicy{
		{Stop, RouteSet},
		{Launching, RouteIgnore},
		{Preloading, RouteIgnore},
		{Running, RouteSet},
		{Registered, RouteIgnore},
		{Closing, RouteIgnore},
		{Pausing, RouteIgnore},
	}
	r.runtimeRoute[Running] = []RuntimeRoutePolicy{
		{Stop, RouteSet},
		{Launching, RouteIgnore},
		{Preloading, RouteIgnore},
		{Running, RouteIgnore},
		{Registered, RouteSet},
		{Closing, RouteSet},
		{Pausing, RouteIgnore},
	}
	r.runtimeRoute[Registered] = []RuntimeRoutePolicy{
		{Stop, RouteSet},
		{Launching, RouteIgnore},
		{Preloading, RouteIgnore},
		{Running, RouteIgnore},
		{Registered, RouteIgnore},
		{Closing, RouteSet},
		{Pausing, RouteIgnore},
	}
	r.runtimeRoute[Closing] = []RuntimeRoutePolicy{
		{Stop, RouteSet},
		{Launching, RouteIgnore},
		{Preloading, RouteIgnore},
		{Running, RouteIgnore},
		{Registered, RouteIgnore},
		{Closing, RouteIgnore},
		{Pausing, RouteIgnore},
	}
}

func (r *Router) initConversions() {
	r.lifeEventConv[runninginfo.LifeStatusInvalid] = runninginfo.LifeEventInvalid
	r.lifeEventConv[runninginfo.LifeStatusStop] = runninginfo.LifeEventStop
	r.lifeEventConv[runninginfo.LifeStatusPreloading] = runninginfo.LifeEventPreload
	r.lifeEventConv[runninginfo.LifeStatusLaunching] = runninginfo.LifeEventLaunch
	r.lifeEventConv[runninginfo.LifeStatusRelaunching] = runninginfo.LifeEventLaunch
	r.lifeEventConv[runninginfo.LifeStatusForeground] = runninginfo.LifeEventForeground
	r.lifeEventConv[runninginfo.LifeStatusBackground] = runninginfo.LifeEventBackground
	r.lifeEventConv[runninginfo.LifeStatusClosing] = runninginfo.LifeEventClose
	r.lifeEventConv[runninginfo.LifeStatusPausing] = runninginfo.LifeEventPause
	r.lifeEventConv[runninginfo.LifeStatusRunning] = runninginfo.LifeEventInvalid

	r.runtimeConv[runninginfo.RuntimeStatusStop] = runninginfo.LifeStatusStop
	r.runtimeConv[runninginfo.RuntimeStatusLaunching] = runninginfo.LifeStatusLaunching
	r.runtimeConv[runninginfo.RuntimeStatusPreloading] = runninginfo.LifeStatusPreloading
	r.runtimeConv[runninginfo.RuntimeStatusRunning] = runninginfo.LifeStatusRunning
	r.runtimeConv[runninginfo.RuntimeStatusRegistered] = runninginfo.LifeStatusRunning
	r.runtimeConv[runninginfo.RuntimeStatusPausing] = runninginfo.LifeStatusPausing
	r.runtimeConv[runninginfo.RuntimeStatusClosing] = runninginfo.LifeStatusClosing
}

// Route answers whether a proposed LifeStatus transition should be Set,
// Ignored, or (transparently) Converted to a different target, resolving
// the conversion table itself so callers never see RouteConvert.
func (r *Router) Route(current, proposed runninginfo.LifeStatus) RoutePolicy {
	policies, ok := r.lifecycleRoute[current]
	if !ok {
		return invalidRoutePolicy
	}

	for _, p := range policies {
		if p.Next != proposed {
			continue
		}
		if p.Action == RouteConvert {
			return r.convert(current, proposed)
		}
		return p
	}
	return invalidRoutePolicy
}

func (r *Router) convert(current, proposed runninginfo.LifeStatus) RoutePolicy {
	byProposed, ok := r.lifestatusConv[current]
	if !ok {
		return invalidRoutePolicy
	}
	policy, ok := byProposed[proposed]
	if !ok {
		return invalidRoutePolicy
	}
	return policy
}

// RuntimeRoute answers a RuntimeStatus transition: whether it should be
// applied at all.
func (r *Router) RuntimeRoute(current, proposed runninginfo.RuntimeStatus) RouteAction {
	policies, ok := r.runtimeRoute[current]
	if !ok {
		return RouteIgnore
	}
	for _, p := range policies {
		if p.Next == proposed {
			return p.Action
		}
	}
	return RouteIgnore
}

// LifeStatusFromRuntimeStatus derives the observable LifeStatus a
// RuntimeStatus maps to; RuntimeStatusRunning and RuntimeStatusRegistered
// both land on LifeStatusRunning, which Route then converts to Background
// from Stop or Preloading and ignores from every other state — matching
// invariant 4 (Running never escapes as stored/observable).
func (r *Router) LifeStatusFromRuntimeStatus(status runninginfo.RuntimeStatus) runninginfo.LifeStatus {
	ls, ok := r.runtimeConv[status]
	if !ok {
		return runninginfo.LifeStatusInvalid
	}
	return ls
}

// LifeEventOf maps an observable LifeStatus to its fan-out LifeEvent.
func (r *Router) LifeEventOf(status runninginfo.LifeStatus) runninginfo.LifeEvent {
	event, ok := r.lifeEventConv[status]
	if !ok {
		return runninginfo.LifeEventInvalid
	}
	return event
}
