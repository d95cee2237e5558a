package handler

import (
	"context"

	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// StubHandler answers launch/close/pause instantly without touching any
// runtime, for app packages whose HandlerKind marks them as not actually
// spawning a process (e.g. an always-resident system surface already
// running before the supervisor started).
type StubHandler struct {
	onStatus StatusFunc
}

// NewStubHandler builds a StubHandler reporting transitions through
// onStatus.
func NewStubHandler(onStatus StatusFunc) *StubHandler {
	return &StubHandler{onStatus: onStatus}
}

// Launch implements Handler: it reports Running immediately.
func (s *StubHandler) Launch(ctx context.Context, item *LaunchItem) error {
	if s.onStatus != nil {
		s.onStatus(item.AppID, "", runninginfo.RuntimeStatusRunning)
	}
	return nil
}

// Close implements Handler: it reports Stop immediately.
func (s *StubHandler) Close(ctx context.Context, item *CloseItem) (string, error) {
	if s.onStatus != nil {
		s.onStatus(item.AppID, "", runninginfo.RuntimeStatusStop)
	}
	return "", nil
}

// Pause implements Handler as a no-op; stub apps have no pause state.
func (s *StubHandler) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return nil
}
