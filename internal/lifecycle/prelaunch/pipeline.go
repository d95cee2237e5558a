package prelaunch

import (
	"context"
	"fmt"
	"sync"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
)

// DoneFunc is called exactly once per item, when it clears every stage
// or aborts. err is non-nil only on abort.
type DoneFunc func(item *Item, err error)

// Pipeline drives items through their stage lists, issuing bus calls for
// the async stage types and waiting for their replies before advancing.
type Pipeline struct {
	bus    busx.Bus
	logger log.Logger

	mu    sync.Mutex
	items map[string]*inflight
}

type inflight struct {
	item  *Item
	done  DoneFunc
	token busx.Token
	ctx   context.Context
}

// New builds a Pipeline issuing its bus calls over bus.
func New(bus busx.Bus, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{bus: bus, logger: logger, items: make(map[string]*inflight)}
}

// Run enqueues item and begins running its stages. done is invoked
// exactly once, from whatever goroutine completes or aborts the item.
func (p *Pipeline) Run(ctx context.Context, item *Item, done DoneFunc) {
	p.mu.Lock()
	if _, exists := p.items[item.UID]; exists {
		p.mu.Unlock()
		p.logger.Error("prelaunch item already queued", "uid", item.UID)
		if done != nil {
			done(item, fmt.Errorf("prelaunch item %s already queued", item.UID))
		}
		return
	}
	p.items[item.UID] = &inflight{item: item, done: done, ctx: ctx}
	p.mu.Unlock()

	p.runStages(ctx, item)
}

// Remove drops item from tracking without invoking its done callback;
// used when a caller has already decided the outcome out-of-band.
func (p *Pipeline) Remove(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, uid)
}

// CancelAll fails every in-flight item, matching a full supervisor reset.
func (p *Pipeline) CancelAll() {
	p.mu.Lock()
	pending := make([]*inflight, 0, len(p.items))
	for _, f := range p.items {
		pending = append(pending, f)
	}
	p.items = make(map[string]*inflight)
	p.mu.Unlock()

	for _, f := range pending {
		if f.token != 0 {
			p.bus.Cancel(f.token)
		}
		p.logger.Info("cancel launching", "app_id", f.item.AppID)
		f.item.setError("APP_LAUNCH_ERR_GENERAL", "cancel all request")
		if f.done != nil {
			f.done(f.item, fmt.Errorf("cancel all request"))
		}
	}
}

// runStages advances item through consecutive DirectCheck stages
// in-process, then issues the bus call for the first async stage it
// meets (or finishes, if the list is exhausted).
func (p *Pipeline) runStages(ctx context.Context, item *Item) {
	for len(item.stages) > 0 && item.stages[0].Type == DirectCheck {
		stage := item.stages[0]
		result, err := stage.Check(ctx, item)
		if err != nil {
			p.abort(item, err)
			return
		}
		switch result {
		case Redirected:
			p.redirect(ctx, item)
			return
		case Failed:
			p.abort(item, fmt.Errorf("stage %s failed", stage.Name))
			return
		}
		item.stages = item.stages[1:]
		p.dropSubStages(item)
	}

	if len(item.stages) == 0 {
		p.finish(item)
		return
	}

	p.callStage(ctx, item)
}

// dropSubStages removes leading SubCall/SubBridgeCall stages once a
// prior stage has already passed, mirroring the original's sub-stage
// skip.
func (p *Pipeline) dropSubStages(item *Item) {
	for len(item.stages) > 0 {
		t := item.stages[0].Type
		if t != SubCall && t != SubBridgeCall {
			return
		}
		item.stages = item.stages[1:]
	}
}

func (p *Pipeline) callStage(ctx context.Context, item *Item) {
	stage := item.stages[0]

	payload := map[string]any{}
	if stage.Payload != nil {
		built, err := stage.Payload(item)
		if err != nil {
			p.abort(item, err)
			return
		}
		payload = built
	}

	token, replies, err := p.bus.CallOneReply(ctx, stage.URI, payload)
	if err != nil {
		p.abort(item, err)
		return
	}

	p.mu.Lock()
	if f, ok := p.items[item.UID]; ok {
		f.token = token
	}
	p.mu.Unlock()

	bridged := stage.Type == BridgeCall || stage.Type == SubBridgeCall

	go func() {
		reply := <-replies
		p.mu.Lock()
		if f, ok := p.items[item.UID]; ok {
			f.token = 0
		}
		p.mu.Unlock()

		if bridged {
			// Mirrors onReturnLSCallForBridgedRequest: only clear the
			// token bookkeeping and log. The pipeline does not resume
			// here; only a later InputBridgedReturn call does.
			p.logger.Info("received return for bridge request", "uid", item.UID, "app_id", item.AppID)
			return
		}

		p.handleReply(ctx, item, stage, reply)
	}()
}

// InputBridgedReturn feeds an externally supplied reply back into item,
// resuming a pipeline parked on a BridgeCall/SubBridgeCall stage.
// Grounded on Prelauncher::inputBridgedReturn: the bridge call's own
// reply (see callStage) never advances the pipeline, only this external
// entry point does.
func (p *Pipeline) InputBridgedReturn(uid string, payload map[string]any) {
	p.mu.Lock()
	f, ok := p.items[uid]
	p.mu.Unlock()
	if !ok {
		p.logger.Error("bridged return for unknown item", "uid", uid)
		return
	}

	item := f.item
	if len(item.stages) == 0 {
		p.logger.Error("bridged return with no pending stage", "uid", uid)
		return
	}

	stage := item.stages[0]
	if stage.Type != BridgeCall && stage.Type != SubBridgeCall {
		p.logger.Error("bridged return for non-bridge stage", "uid", uid, "stage", stage.Name)
		return
	}

	p.handleReply(f.ctx, item, stage, busx.Reply{Payload: payload})
}

func (p *Pipeline) handleReply(ctx context.Context, item *Item, stage Stage, reply busx.Reply) {
	var result Result
	var err error
	if stage.OnReply != nil {
		result, err = stage.OnReply(item, reply.Payload, reply.Err)
	} else if reply.Err != nil {
		result, err = Failed, reply.Err
	} else {
		result = GoNext
	}

	if err != nil {
		p.abort(item, err)
		return
	}

	switch result {
	case Redirected:
		p.redirect(ctx, item)
		return
	case Failed:
		p.abort(item, fmt.Errorf("stage %s failed", stage.Name))
		return
	}

	item.stages = item.stages[1:]
	p.dropSubStages(item)
	p.runStages(ctx, item)
}

// redirect is reached after a stage handler has already called
// item.RedirectTo and installed the new app's stages via SetStages; it
// just restarts the drive loop on the retargeted item.
func (p *Pipeline) redirect(ctx context.Context, item *Item) {
	p.logger.Info("redirected", "requested_app_id", item.RequestedAppID, "app_id", item.AppID)
	p.runStages(ctx, item)
}

func (p *Pipeline) finish(item *Item) {
	p.logger.Info("handled all stages", "uid", item.UID)
	p.complete(item, nil)
}

func (p *Pipeline) abort(item *Item, err error) {
	p.logger.Error("prelaunch stage failed", "uid", item.UID, "err", err)
	p.complete(item, err)
}

func (p *Pipeline) complete(item *Item, err error) {
	p.mu.Lock()
	f, ok := p.items[item.UID]
	delete(p.items, item.UID)
	p.mu.Unlock()
	if !ok {
		return
	}
	if f.done != nil {
		f.done(item, err)
	}
}
