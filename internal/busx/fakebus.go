package busx

import (
	"context"
	"sync"
)

// FakeCall records one CallOneReply/CallMultiReply invocation for
// assertion in tests.
type FakeCall struct {
	URI     string
	Payload map[string]any
}

// FakeBus is an in-memory Bus double. Tests drive async replies explicitly
// via Reply/Emit/SetServerStatus rather than waiting on real IO, following
// a func-field mock style adapted to the stateful async
// semantics the Bus interface requires.
type FakeBus struct {
	tokenSource

	mu sync.Mutex

	serviceName string
	compatNames []string
	categories  map[string]map[string]MethodHandler

	calls       []FakeCall
	oneReplies  map[Token]chan Reply
	multiCbs    map[Token]func(Reply)
	cancelled   map[Token]bool

	subs map[string][]Subscriber

	serverWatchers map[string][]func(bool)
}

// NewFakeBus constructs an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{
		categories:     make(map[string]map[string]MethodHandler),
		oneReplies:     make(map[Token]chan Reply),
		multiCbs:       make(map[Token]func(Reply)),
		cancelled:      make(map[Token]bool),
		subs:           make(map[string][]Subscriber),
		serverWatchers: make(map[string][]func(bool)),
	}
}

// RegisterService implements Bus.
func (b *FakeBus) RegisterService(_ context.Context, name string, compatNames []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serviceName = name
	b.compatNames = compatNames
	return nil
}

// ServiceName returns the name passed to RegisterService.
func (b *FakeBus) ServiceName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serviceName
}

// RegisterCategory implements Bus.
func (b *FakeBus) RegisterCategory(category string, methods map[string]MethodHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories[category] = methods
	return nil
}

// Invoke simulates an inbound call against a registered category method,
// for exercising RegisterCategory handlers without a real bus.
func (b *FakeBus) Invoke(ctx context.Context, category, method string, payload map[string]any) (map[string]any, error) {
	b.mu.Lock()
	handler := b.categories[category][method]
	b.mu.Unlock()
	if handler == nil {
		return nil, errNoSuchMethod(category, method)
	}
	return handler(ctx, payload)
}

// CallOneReply implements Bus. The returned channel is driven by a later
// call to Reply.
func (b *FakeBus) CallOneReply(_ context.Context, uri string, payload map[string]any) (Token, <-chan Reply, error) {
	token := b.next()
	ch := make(chan Reply, 1)

	b.mu.Lock()
	b.calls = append(b.calls, FakeCall{URI: uri, Payload: payload})
	b.oneReplies[token] = ch
	b.mu.Unlock()

	return token, ch, nil
}

// Reply delivers reply to the pending CallOneReply identified by token.
func (b *FakeBus) Reply(token Token, reply Reply) {
	b.mu.Lock()
	ch, ok := b.oneReplies[token]
	delete(b.oneReplies, token)
	b.mu.Unlock()
	if ok {
		ch <- reply
	}
}

// CallMultiReply implements Bus. Use Emit to deliver results to cb.
func (b *FakeBus) CallMultiReply(_ context.Context, uri string, payload map[string]any, cb func(Reply)) (Token, error) {
	token := b.next()

	b.mu.Lock()
	b.calls = append(b.calls, FakeCall{URI: uri, Payload: payload})
	b.multiCbs[token] = cb
	b.mu.Unlock()

	return token, nil
}

// Emit delivers reply to the multi-reply callback registered under token,
// unless token was cancelled.
func (b *FakeBus) Emit(token Token, reply Reply) {
	b.mu.Lock()
	cb, ok := b.multiCbs[token]
	cancelled := b.cancelled[token]
	b.mu.Unlock()
	if ok && !cancelled {
		cb(reply)
	}
}

// Cancel implements Bus.
func (b *FakeBus) Cancel(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled[token] = true
	delete(b.oneReplies, token)
	delete(b.multiCbs, token)
}

// SubscriptionAdd implements Bus.
func (b *FakeBus) SubscriptionAdd(key string, sub Subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[key] = append(b.subs[key], sub)
	return true
}

// SubscriptionReply implements Bus.
func (b *FakeBus) SubscriptionReply(key string, payload map[string]any) error {
	b.mu.Lock()
	subs := append([]Subscriber(nil), b.subs[key]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Notify(payload)
	}
	return nil
}

// WatchServerStatus implements Bus. Use SetServerStatus to simulate a
// connect/disconnect event.
func (b *FakeBus) WatchServerStatus(_ context.Context, name string, cb func(connected bool)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serverWatchers[name] = append(b.serverWatchers[name], cb)
	return nil
}

// SetServerStatus simulates name's bus presence changing.
func (b *FakeBus) SetServerStatus(name string, connected bool) {
	b.mu.Lock()
	watchers := append([]func(bool){}, b.serverWatchers[name]...)
	b.mu.Unlock()
	for _, cb := range watchers {
		cb(connected)
	}
}

// Close implements Bus.
func (b *FakeBus) Close() error {
	return nil
}

// Calls returns every CallOneReply/CallMultiReply invocation, in order.
func (b *FakeBus) Calls() []FakeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FakeCall, len(b.calls))
	copy(out, b.calls)
	return out
}

type noSuchMethodError struct {
	category, method string
}

func (e *noSuchMethodError) Error() string {
	return "busx: no handler for " + e.category + e.method
}

func errNoSuchMethod(category, method string) error {
	return &noSuchMethodError{category: category, method: method}
}
