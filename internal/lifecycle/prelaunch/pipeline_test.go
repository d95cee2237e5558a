package prelaunch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webosose/sam-sub002/internal/busx"
)

func waitDone(t *testing.T, done chan result, timeout time.Duration) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(timeout):
		t.Fatal("timed out waiting for pipeline completion")
		return result{}
	}
}

type result struct {
	item *Item
	err  error
}

func TestPipeline_AllDirectChecksPass(t *testing.T) {
	p := New(busx.NewFakeBus(), nil)
	done := make(chan result, 1)

	item := &Item{UID: "u1", AppID: "com.webos.app.a"}
	item.SetStages([]Stage{
		{Name: "check-installed", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
			return GoNext, nil
		}},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	r := waitDone(t, done, time.Second)
	assert.NoError(t, r.err)
}

func TestPipeline_DirectCheckFails(t *testing.T) {
	p := New(busx.NewFakeBus(), nil)
	done := make(chan result, 1)

	item := &Item{UID: "u1", AppID: "a"}
	item.SetStages([]Stage{
		{Name: "check-installed", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
			return Failed, nil
		}},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	r := waitDone(t, done, time.Second)
	require.Error(t, r.err)
}

func TestPipeline_AsyncCallGatesProgress(t *testing.T) {
	bus := busx.NewFakeBus()
	p := New(bus, nil)
	done := make(chan result, 1)

	secondRan := make(chan struct{}, 1)
	item := &Item{UID: "u1", AppID: "a"}
	item.SetStages([]Stage{
		{Name: "notify-splash", Type: MainCall, URI: "luna://com.webos.surfacemanager/launcherApplication",
			Payload: func(it *Item) (map[string]any, error) { return map[string]any{"id": it.AppID}, nil }},
		{Name: "check-second", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
			secondRan <- struct{}{}
			return GoNext, nil
		}},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	select {
	case <-secondRan:
		t.Fatal("second stage ran before the bus call replied")
	case <-time.After(50 * time.Millisecond):
	}

	calls := bus.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "luna://com.webos.surfacemanager/launcherApplication", calls[0].URI)

	bus.Reply(1, busx.Reply{Payload: map[string]any{"returnValue": true}})

	<-secondRan
	r := waitDone(t, done, time.Second)
	assert.NoError(t, r.err)
}

func TestPipeline_AsyncCallErrorAborts(t *testing.T) {
	bus := busx.NewFakeBus()
	p := New(bus, nil)
	done := make(chan result, 1)

	item := &Item{UID: "u1", AppID: "a"}
	item.SetStages([]Stage{
		{Name: "notify-splash", Type: MainCall, URI: "luna://x/y",
			Payload: func(it *Item) (map[string]any, error) { return map[string]any{}, nil }},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	bus.Reply(1, busx.Reply{Err: assertErr{}})

	r := waitDone(t, done, time.Second)
	require.Error(t, r.err)
}

type assertErr struct{}

func (assertErr) Error() string { return "bus call failed" }

func TestPipeline_Redirect(t *testing.T) {
	bus := busx.NewFakeBus()
	p := New(bus, nil)
	done := make(chan result, 1)

	redirected := false
	item := &Item{UID: "u1", AppID: "com.webos.app.old", RequestedAppID: "com.webos.app.old"}
	item.SetStages([]Stage{
		{Name: "resolve-redirect", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
			if !redirected {
				redirected = true
				it.RedirectTo("com.webos.app.new")
				it.SetStages([]Stage{
					{Name: "final-check", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
						return GoNext, nil
					}},
				})
				return Redirected, nil
			}
			return GoNext, nil
		}},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	r := waitDone(t, done, time.Second)
	assert.NoError(t, r.err)
	assert.Equal(t, "com.webos.app.new", r.item.AppID)
}

func TestPipeline_BridgeCallDoesNotResumeOnItsOwnReply(t *testing.T) {
	bus := busx.NewFakeBus()
	p := New(bus, nil)
	done := make(chan result, 1)

	nextRan := make(chan struct{}, 1)
	item := &Item{UID: "u1", AppID: "a"}
	item.SetStages([]Stage{
		{Name: "bridge-launch", Type: BridgeCall, URI: "luna://com.webos.booster/launch",
			Payload: func(it *Item) (map[string]any, error) { return map[string]any{}, nil }},
		{Name: "after-bridge", Type: DirectCheck, Check: func(ctx context.Context, it *Item) (Result, error) {
			nextRan <- struct{}{}
			return GoNext, nil
		}},
	})

	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	bus.Reply(1, busx.Reply{Payload: map[string]any{"pid": "77"}})

	select {
	case <-nextRan:
		t.Fatal("pipeline resumed on the bridge call's own reply")
	case <-time.After(50 * time.Millisecond):
	}

	p.InputBridgedReturn("u1", map[string]any{"pid": "77"})

	<-nextRan
	r := waitDone(t, done, time.Second)
	assert.NoError(t, r.err)
}

func TestPipeline_InputBridgedReturnForUnknownItemIsNoop(t *testing.T) {
	p := New(busx.NewFakeBus(), nil)
	p.InputBridgedReturn("missing", map[string]any{})
}

func TestPipeline_CancelAll(t *testing.T) {
	bus := busx.NewFakeBus()
	p := New(bus, nil)
	done := make(chan result, 1)

	item := &Item{UID: "u1", AppID: "a"}
	item.SetStages([]Stage{
		{Name: "notify-splash", Type: MainCall, URI: "luna://x/y",
			Payload: func(it *Item) (map[string]any, error) { return map[string]any{}, nil }},
	})
	p.Run(context.Background(), item, func(it *Item, err error) { done <- result{it, err} })

	p.CancelAll()

	r := waitDone(t, done, time.Second)
	require.Error(t, r.err)
}
