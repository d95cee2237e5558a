// Package busx is the Bus Client: connection, subscription, and call
// plumbing to the RPC bus every other component talks through. The
// interface shape is grounded on a systemd.Connection-style
// (a narrow interface wrapping a third-party client library, constructor
// injected with a log.Logger); the concrete implementation transports over
// github.com/godbus/dbus/v5.
package busx

import (
	"context"
	"sync/atomic"
)

// Token identifies an in-flight async call so it can later be cancelled.
type Token uint64

// Reply is the result of a single async bus call.
type Reply struct {
	Payload map[string]any
	Err     error
}

// MethodHandler answers one call arriving against a registered category.
type MethodHandler func(ctx context.Context, payload map[string]any) (map[string]any, error)

// Subscriber receives best-effort pushes for a subscription key.
type Subscriber interface {
	Notify(payload map[string]any)
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(payload map[string]any)

// Notify implements Subscriber.
func (f SubscriberFunc) Notify(payload map[string]any) { f(payload) }

// Bus is the contract the supervisor needs from its transport: register this service's name(s)
// and method categories, issue single- and multi-reply async calls,
// deliver subscription pushes to our own clients, and watch a remote
// service's bus presence. Subscription delivery is best-effort: a failed
// Notify is logged by the implementation and never propagated to the
// caller of SubscriptionReply.
type Bus interface {
	RegisterService(ctx context.Context, name string, compatNames []string) error
	RegisterCategory(category string, methods map[string]MethodHandler) error
	CallOneReply(ctx context.Context, uri string, payload map[string]any) (Token, <-chan Reply, error)
	CallMultiReply(ctx context.Context, uri string, payload map[string]any, cb func(Reply)) (Token, error)
	Cancel(token Token)
	SubscriptionReply(key string, payload map[string]any) error
	SubscriptionAdd(key string, sub Subscriber) bool
	WatchServerStatus(ctx context.Context, name string, cb func(connected bool)) error
	Close() error
}

// tokenSource hands out strictly increasing tokens; embedded by both the
// real and fake Bus implementations.
type tokenSource struct {
	n uint64
}

func (t *tokenSource) next() Token {
	return Token(atomic.AddUint64(&t.n, 1))
}
