package busx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/webosose/sam-sub002/internal/log"
)

// Connect opens a bus connection in system or user mode, matching the
// teacher's user/system-mode connection factory branching.
func Connect(ctx context.Context, userMode bool) (*dbus.Conn, error) {
	if userMode {
		return dbus.ConnectSessionBus(dbus.WithContext(ctx))
	}
	return dbus.ConnectSystemBus(dbus.WithContext(ctx))
}

// DBusBus is the production Bus, wrapping a *dbus.Conn. Payloads cross the
// wire JSON-encoded in a single string argument/return value, matching the
// JSON-payload convention of the Luna bus this client stands in for.
type DBusBus struct {
	tokenSource

	conn   *dbus.Conn
	logger log.Logger

	mu      sync.Mutex
	pending map[Token]context.CancelFunc

	subsMu sync.RWMutex
	subs   map[string][]Subscriber
}

// NewDBusBus wraps an already-connected bus connection.
func NewDBusBus(conn *dbus.Conn, logger log.Logger) *DBusBus {
	if logger == nil {
		logger = log.Nop()
	}
	return &DBusBus{
		conn:    conn,
		logger:  logger,
		pending: make(map[Token]context.CancelFunc),
		subs:    make(map[string][]Subscriber),
	}
}

// RegisterService claims name and, best-effort, every compat name.
func (b *DBusBus) RegisterService(_ context.Context, name string, compatNames []string) error {
	reply, err := b.conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to register service %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("service name %s already owned", name)
	}

	for _, compat := range compatNames {
		if _, err := b.conn.RequestName(compat, dbus.NameFlagDoNotQueue); err != nil {
			b.logger.Warn("failed to register compat name", "name", compat, "error", err)
		}
	}
	return nil
}

// RegisterCategory exports one method table per category path, each
// method taking and returning a JSON-encoded payload string.
func (b *DBusBus) RegisterCategory(category string, methods map[string]MethodHandler) error {
	path := dbus.ObjectPath(categoryPath(category))
	table := make(map[string]any, len(methods))

	for name, handler := range methods {
		handler := handler
		table[name] = func(payloadJSON string) (string, *dbus.Error) {
			var payload map[string]any
			if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
				return "", dbus.MakeFailedError(err)
			}

			result, err := handler(context.Background(), payload)
			if err != nil {
				return "", dbus.MakeFailedError(err)
			}

			out, err := json.Marshal(result)
			if err != nil {
				return "", dbus.MakeFailedError(err)
			}
			return string(out), nil
		}
	}

	if err := b.conn.ExportMethodTable(table, path, category); err != nil {
		return fmt.Errorf("failed to export category %s: %w", category, err)
	}
	return nil
}

// CallOneReply issues a single async call and resolves once the remote
// service replies.
func (b *DBusBus) CallOneReply(ctx context.Context, uri string, payload map[string]any) (Token, <-chan Reply, error) {
	dest, path, method := splitURI(uri)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode payload for %s: %w", uri, err)
	}

	token := b.next()
	callCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.pending[token] = cancel
	b.mu.Unlock()

	replyCh := make(chan Reply, 1)
	obj := b.conn.Object(dest, dbus.ObjectPath(path))
	call := obj.GoWithContext(callCtx, method, 0, make(chan *dbus.Call, 1), string(payloadJSON))

	go func() {
		<-call.Done
		b.mu.Lock()
		delete(b.pending, token)
		b.mu.Unlock()

		if call.Err != nil {
			replyCh <- Reply{Err: call.Err}
			return
		}

		var raw string
		if err := call.Store(&raw); err != nil {
			replyCh <- Reply{Err: err}
			return
		}

		var result map[string]any
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			replyCh <- Reply{Err: err}
			return
		}
		replyCh <- Reply{Payload: result}
	}()

	return token, replyCh, nil
}

// CallMultiReply issues a call that keeps delivering results (e.g. a
// subscribed listRunningApps) by treating the remote method as a signal
// emitter: the initial call triggers subscription, and every matching
// signal thereafter is decoded and handed to cb until Cancel or ctx.Done.
func (b *DBusBus) CallMultiReply(ctx context.Context, uri string, payload map[string]any, cb func(Reply)) (Token, error) {
	dest, path, member := splitURI(uri)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload for %s: %w", uri, err)
	}

	if err := b.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbus.ObjectPath(path)),
		dbus.WithMatchInterface(dest),
		dbus.WithMatchMember(member),
	); err != nil {
		return 0, fmt.Errorf("failed to watch %s: %w", uri, err)
	}

	token := b.next()
	callCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.pending[token] = cancel
	b.mu.Unlock()

	sigCh := make(chan *dbus.Signal, 8)
	b.conn.Signal(sigCh)

	obj := b.conn.Object(dest, dbus.ObjectPath(path))
	if call := obj.CallWithContext(callCtx, member, 0, string(payloadJSON)); call.Err != nil {
		b.conn.RemoveSignal(sigCh)
		cancel()
		return 0, fmt.Errorf("failed to subscribe %s: %w", uri, call.Err)
	}

	go func() {
		defer b.conn.RemoveSignal(sigCh)
		for {
			select {
			case <-callCtx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if len(sig.Body) == 0 {
					continue
				}
				raw, ok := sig.Body[0].(string)
				if !ok {
					continue
				}
				var result map[string]any
				if err := json.Unmarshal([]byte(raw), &result); err != nil {
					cb(Reply{Err: err})
					continue
				}
				cb(Reply{Payload: result})
			}
		}
	}()

	return token, nil
}

// Cancel aborts a pending call or signal watch started under token.
func (b *DBusBus) Cancel(token Token) {
	b.mu.Lock()
	cancel, ok := b.pending[token]
	delete(b.pending, token)
	b.mu.Unlock()
	if ok {
		cancel()
	}
}

// SubscriptionAdd records sub as a recipient of future SubscriptionReply
// pushes under key.
func (b *DBusBus) SubscriptionAdd(key string, sub Subscriber) bool {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[key] = append(b.subs[key], sub)
	return true
}

// SubscriptionReply pushes payload to every subscriber registered under
// key. Delivery is best-effort: a panicking Notify is recovered and
// logged, never propagated.
func (b *DBusBus) SubscriptionReply(key string, payload map[string]any) error {
	b.subsMu.RLock()
	subs := append([]Subscriber(nil), b.subs[key]...)
	b.subsMu.RUnlock()

	for _, sub := range subs {
		b.deliver(key, sub, payload)
	}
	return nil
}

func (b *DBusBus) deliver(key string, sub Subscriber, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("subscription delivery panicked", "key", key, "panic", r)
		}
	}()
	sub.Notify(payload)
}

// WatchServerStatus invokes cb whenever name's bus ownership changes.
func (b *DBusBus) WatchServerStatus(ctx context.Context, name string, cb func(connected bool)) error {
	if err := b.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	); err != nil {
		return fmt.Errorf("failed to watch server status for %s: %w", name, err)
	}

	sigCh := make(chan *dbus.Signal, 4)
	b.conn.Signal(sigCh)

	go func() {
		defer b.conn.RemoveSignal(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if len(sig.Body) != 3 {
					continue
				}
				newOwner, _ := sig.Body[2].(string)
				cb(newOwner != "")
			}
		}
	}()
	return nil
}

// Close shuts down the underlying connection.
func (b *DBusBus) Close() error {
	return b.conn.Close()
}

func categoryPath(category string) string {
	if category == "" || category == "/" {
		return "/"
	}
	return "/" + strings.TrimPrefix(category, "/")
}

// splitURI parses a "service.name/sub/path/method" bus URI into the
// destination name, object path, and method name.
func splitURI(uri string) (dest, path, method string) {
	trimmed := strings.TrimPrefix(uri, "luna://")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return trimmed, "/", ""
	}

	dest = parts[0]
	method = parts[len(parts)-1]
	if len(parts) > 2 {
		path = "/" + strings.Join(parts[1:len(parts)-1], "/")
	} else {
		path = "/"
	}
	return dest, path, method
}
