// Package fanout delivers internal lifecycle signals to bus subscribers.
// It sits between the Lifecycle Manager/Roster and internal/busx: each of
// an internal signal maps to one or more subscription keys,
// and Fanout's job is purely that mapping and the registration-ordered,
// best-effort delivery promised to subscribers.
package fanout

import (
	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
)

// Fanout maps a SubscriptionKey to its delivery mechanism: the bus's
// SubscriptionReply, so callers don't need a direct busx.Bus reference
// for the common publish path.
type Fanout struct {
	bus    busx.Bus
	logger log.Logger
}

// New builds a Fanout publishing through bus.
func New(bus busx.Bus, logger log.Logger) *Fanout {
	if logger == nil {
		logger = log.Nop()
	}
	return &Fanout{bus: bus, logger: logger}
}

// Publish delivers payload to every subscriber of key. Delivery failures
// are logged by the underlying Bus and never returned here — matching
// the "best-effort" contract for subscription delivery.
func (f *Fanout) Publish(key string, payload map[string]any) {
	if err := f.bus.SubscriptionReply(key, payload); err != nil {
		f.logger.Warn("fanout publish failed", "key", key, "error", err)
	}
}

// PublishMany delivers the same payload to several keys, e.g. a roster
// list change fanning out to both "listApps" and "listAppsCompact".
func (f *Fanout) PublishMany(keys []string, payload map[string]any) {
	for _, key := range keys {
		f.Publish(key, payload)
	}
}
