// Package readiness is a one-shot coordinator over named prerequisite
// items. cmd/samd's serve command registers two items at startup —
// "config-loaded" and "boot-done", the names original_source's
// PrerequisiteMonitor.cpp names exactly — each calls Start and eventually
// SetStatus(Passed|Failed); once every item has settled, the monitor fires
// exactly one OnReady callback and releases all items. Unlike the
// original, which checks "not Ready and not Doing" (a double negative that
// happens to work because those are the only pending states), this
// requires every item to have settled to Passed to report an overall pass
// — the same outcome, stated without the inversion.
package readiness

import (
	"sync"

	"github.com/webosose/sam-sub002/internal/log"
)

// ItemStatus is a prerequisite item's lifecycle state.
type ItemStatus int

const (
	// StatusPending is an item that hasn't been started yet.
	StatusPending ItemStatus = iota
	// StatusInProgress is an item whose Start has run but hasn't settled.
	StatusInProgress
	// StatusPassed is a settled, successful item.
	StatusPassed
	// StatusFailed is a settled, failed item.
	StatusFailed
)

func (s ItemStatus) settled() bool {
	return s == StatusPassed || s == StatusFailed
}

// Item is one named prerequisite the Monitor waits on.
type Item struct {
	name    string
	monitor *Monitor

	mu     sync.Mutex
	status ItemStatus
}

// Name returns the item's identifier.
func (i *Item) Name() string {
	return i.name
}

// Start marks the item as in progress. The monitor calls this for every
// registered item when Run is invoked.
func (i *Item) Start() {
	i.mu.Lock()
	i.status = StatusInProgress
	i.mu.Unlock()
}

// SetStatus settles the item. Pending/InProgress are not settled states
// and are ignored here, matching the original's refusal to accept them as
// a terminal SetStatus call.
func (i *Item) SetStatus(status ItemStatus) {
	if !status.settled() {
		return
	}
	i.mu.Lock()
	i.status = status
	i.mu.Unlock()
	i.monitor.itemSettled()
}

func (i *Item) currentStatus() ItemStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Monitor is a one-shot readiness coordinator.
type Monitor struct {
	logger   log.Logger
	onReady  func(passed bool)
	once     sync.Once

	mu    sync.Mutex
	items []*Item
}

// New builds a Monitor that calls onReady exactly once, when every added
// item has settled.
func New(logger log.Logger, onReady func(passed bool)) *Monitor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Monitor{logger: logger, onReady: onReady}
}

// AddItem registers a new prerequisite and returns it for the caller to
// drive via Start/SetStatus.
func (m *Monitor) AddItem(name string) *Item {
	item := &Item{name: name, monitor: m, status: StatusPending}
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return item
}

// Run starts every registered item. An empty item set passes immediately.
func (m *Monitor) Run() {
	m.mu.Lock()
	items := append([]*Item(nil), m.items...)
	m.mu.Unlock()

	if len(items) == 0 {
		m.fire(true)
		return
	}

	for _, item := range items {
		m.logger.Debug("prerequisite starting", "item", item.Name())
		item.Start()
	}
}

func (m *Monitor) itemSettled() {
	m.mu.Lock()
	items := append([]*Item(nil), m.items...)
	m.mu.Unlock()

	passed := true
	for _, item := range items {
		status := item.currentStatus()
		if !status.settled() {
			return
		}
		if status == StatusFailed {
			passed = false
		}
	}

	m.fire(passed)
}

func (m *Monitor) fire(passed bool) {
	m.once.Do(func() {
		m.logger.Debug("all prerequisites settled", "passed", passed)
		m.mu.Lock()
		m.items = nil
		m.mu.Unlock()
		if m.onReady != nil {
			m.onReady(passed)
		}
	})
}
