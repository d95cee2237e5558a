// Package web is the Web handler: it drives app launch/close/pause over
// the Web-Runtime service's bus methods and tracks running state by
// diffing that service's subscribed running-app list. Grounded on
// original_source/src/lifecycle/life_handler/WebAppLifeHandler.h.
package web

import (
	"context"
	"sync"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

const (
	uriLaunchApp = "luna://com.webos.service.webappmanager/launchApp"
	uriKillApp   = "luna://com.webos.service.webappmanager/killApp"
	uriPauseApp  = "luna://com.webos.service.webappmanager/pauseApp"
	uriRunning   = "luna://com.webos.service.webappmanager/listRunningApps"
)

// StatusFunc is invoked whenever the handler observes a RuntimeStatus
// transition for appID; pid is empty when not yet known. Declared
// locally (mirroring handler.StatusFunc) so this package stays
// leaf-level; the outer handler package adapts between the two.
type StatusFunc func(appID, pid string, status runninginfo.RuntimeStatus)

// LaunchRequest is the web-specific launch payload.
type LaunchRequest struct {
	AppID     string
	Params    map[string]any
	KeepAlive bool
	Preload   string
	CallerID  string
}

// CloseRequest is what Close needs to stop one web app instance.
type CloseRequest struct {
	AppID  string
	Reason string
}

// Handler drives web apps through the Web-Runtime service.
type Handler struct {
	bus      busx.Bus
	logger   log.Logger
	onStatus StatusFunc

	mu      sync.Mutex
	loading map[string]bool
	running map[string]string
}

// New builds a Handler and subscribes to the runtime's running-app list.
func New(ctx context.Context, bus busx.Bus, onStatus StatusFunc, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	h := &Handler{
		bus:      bus,
		logger:   logger,
		onStatus: onStatus,
		loading:  make(map[string]bool),
		running:  make(map[string]string),
	}
	if _, err := bus.CallMultiReply(ctx, uriRunning, map[string]any{"subscribe": true}, h.handleRunningList); err != nil {
		h.logger.Error("web running-list subscription failed", "err", err)
	}
	return h
}

// Launch implements handler.Handler (via the outer package's adapter):
// issues launchApp and blocks for its single reply, mirroring the
// original's onReturnForLaunchRequest callback.
func (h *Handler) Launch(ctx context.Context, item *LaunchRequest) error {
	h.addLoading(item.AppID)
	h.notify(item.AppID, "", runninginfo.RuntimeStatusLaunching)

	payload := map[string]any{
		"id":        item.AppID,
		"params":    item.Params,
		"keepAlive": item.KeepAlive,
		"preload":   item.Preload,
		"callerId":  item.CallerID,
	}

	_, replies, err := h.bus.CallOneReply(ctx, uriLaunchApp, payload)
	if err != nil {
		h.removeLoading(item.AppID)
		h.notify(item.AppID, "", runninginfo.RuntimeStatusStop)
		return err
	}

	reply := <-replies
	if reply.Err != nil {
		h.removeLoading(item.AppID)
		h.notify(item.AppID, "", runninginfo.RuntimeStatusStop)
		return reply.Err
	}
	return nil
}

// Close needs the app running or loading; it issues killApp and reports
// Closing immediately, plus Stop if the app never reached running.
func (h *Handler) Close(ctx context.Context, item *CloseRequest) (string, error) {
	h.mu.Lock()
	pid, running := h.running[item.AppID]
	loading := h.loading[item.AppID]
	h.mu.Unlock()

	if !running && !loading {
		return "", ErrNotRunning
	}

	h.notify(item.AppID, pid, runninginfo.RuntimeStatusClosing)

	_, replies, err := h.bus.CallOneReply(ctx, uriKillApp, map[string]any{"id": item.AppID, "reason": item.Reason})
	if err != nil {
		return "", err
	}
	go func() {
		if reply := <-replies; reply.Err != nil {
			h.logger.Error("killApp failed", "app_id", item.AppID, "err", reply.Err)
		}
	}()

	if loading && !running {
		h.removeLoading(item.AppID)
		h.notify(item.AppID, pid, runninginfo.RuntimeStatusStop)
	}
	return pid, nil
}

// Pause issues pauseApp and, when sendLifeEvent is set, reports Pausing.
func (h *Handler) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	_, replies, err := h.bus.CallOneReply(ctx, uriPauseApp, map[string]any{"id": appID, "params": params})
	if err != nil {
		return err
	}
	go func() {
		if reply := <-replies; reply.Err != nil {
			h.logger.Error("pauseApp failed", "app_id", appID, "err", reply.Err)
		}
	}()
	if sendLifeEvent {
		h.notify(appID, "", runninginfo.RuntimeStatusPausing)
	}
	return nil
}

// handleRunningList diffs the runtime's subscribed running-app list
// against the last seen snapshot, emitting running_app_added/removed
// (and the Stop transition) for whatever changed.
func (h *Handler) handleRunningList(reply busx.Reply) {
	if reply.Err != nil {
		h.logger.Error("listRunningApps push failed", "err", reply.Err)
		return
	}

	entries, _ := reply.Payload["running"].([]any)
	next := make(map[string]string, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		pid, _ := m["processid"].(string)
		if id != "" {
			next[id] = pid
		}
	}

	h.mu.Lock()
	prev := h.running
	h.running = next
	h.mu.Unlock()

	for id, pid := range next {
		if _, existed := prev[id]; !existed {
			h.removeLoading(id)
			h.notify(id, pid, runninginfo.RuntimeStatusRunning)
		}
	}
	for id := range prev {
		if _, still := next[id]; !still {
			h.notify(id, "", runninginfo.RuntimeStatusStop)
		}
	}
}

func (h *Handler) addLoading(appID string) {
	h.mu.Lock()
	h.loading[appID] = true
	h.mu.Unlock()
}

func (h *Handler) removeLoading(appID string) {
	h.mu.Lock()
	delete(h.loading, appID)
	h.mu.Unlock()
}

func (h *Handler) notify(appID, pid string, status runninginfo.RuntimeStatus) {
	if h.onStatus != nil {
		h.onStatus(appID, pid, status)
	}
}
