// Package prelaunch is the Prelauncher: it runs a LaunchAppItem through an
// ordered list of stages before the item reaches process dispatch, each
// stage either a synchronous check or a bus call whose reply the item
// waits on. Grounded on original_source/src/lifecycle/stage/Prelauncher.cpp.
package prelaunch

import "context"

// HandlerType classifies how a Stage is run, mirroring the five
// StageHandlerType values the original distinguishes.
type HandlerType int

const (
	// DirectCheck runs synchronously and in-process.
	DirectCheck HandlerType = iota
	// MainCall is an async bus call against the primary destination;
	// its reply resumes the pipeline.
	MainCall
	// SubCall is an async bus call whose reply is awaited and handled
	// like MainCall's; unlike MainCall, leading SubCall stages are
	// skipped once the stage before them passes.
	SubCall
	// BridgeCall fires an async bus call but does not resume the
	// pipeline when its own reply arrives; the reply is only bookkept
	// (token cleared). The pipeline stays parked on this stage until a
	// later, externally-driven Pipeline.InputBridgedReturn call feeds
	// the real response back in and resumes it.
	BridgeCall
	// SubBridgeCall is BridgeCall's SubCall counterpart: same
	// non-resuming reply handling, eligible for the same leading
	// sub-stage skip SubCall gets on GoNext.
	SubBridgeCall
)

// Result is what a stage hands back to the pipeline driver.
type Result int

const (
	// GoNext advances to the next stage (or finishes, if none remain).
	GoNext Result = iota
	// Redirected means the item now targets a different app id; the
	// stage has already replaced its stage list (RedirectTo, then
	// SetStages) and the pipeline restarts from the first of the new
	// stages.
	Redirected
	// Failed aborts the item with an error.
	Failed
)

// DirectCheckFunc runs a synchronous stage.
type DirectCheckFunc func(ctx context.Context, item *Item) (Result, error)

// PayloadMaker builds the bus-call payload for an async stage.
type PayloadMaker func(item *Item) (map[string]any, error)

// ReplyHandler inspects an async stage's reply and decides how to
// proceed. A nil ReplyHandler treats any non-error reply as GoNext.
type ReplyHandler func(item *Item, reply map[string]any, callErr error) (Result, error)

// Stage is one step of a pipeline. For DirectCheck, Check is used; for
// the four call types, URI/Payload/OnReply are used.
type Stage struct {
	Name    string
	Type    HandlerType
	Check   DirectCheckFunc
	URI     string
	Payload PayloadMaker
	OnReply ReplyHandler
}

// Item is one in-flight launch (or close) request working through the
// pipeline. UID identifies it uniquely across a possible redirect chain;
// AppID is the currently-targeted app, which redirectTo changes.
type Item struct {
	UID            string
	AppID          string
	RequestedAppID string
	Display        string
	Params         map[string]any

	stages []Stage

	ErrCode string
	ErrText string
}

// SetStages installs the ordered stage list an item must pass through,
// replacing any it already had (used both for the initial load and for
// a redirect restart).
func (it *Item) SetStages(stages []Stage) {
	it.stages = append([]Stage(nil), stages...)
}

// RedirectTo retargets the item at a different app id and clears its
// stage progress. A stage handler returning Redirected must call this
// and then SetStages with the new app's stage list before returning.
func (it *Item) RedirectTo(appID string) {
	it.AppID = appID
	it.stages = nil
}

func (it *Item) setError(code, text string) {
	it.ErrCode = code
	it.ErrText = text
}
