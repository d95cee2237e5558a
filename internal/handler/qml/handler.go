// Package qml is the QML handler: launches run through a Booster service
// that forks and hosts the QML runtime, and exits are observed via the
// booster's processFinished signal rather than a direct child watch.
// Grounded on original_source/src/lifecycle/handler/QmlAppLifeHandler.cpp.
package qml

import (
	"context"
	"fmt"
	"sync"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

const (
	uriBoosterLaunch   = "luna://com.webos.booster/launch"
	uriBoosterClose    = "luna://com.webos.booster/close"
	uriProcessFinished = "luna://com.webos.service.bus/signal/addmatch"
)

// StatusFunc is invoked whenever the handler observes a RuntimeStatus
// transition for appID; pid is empty when not yet known.
type StatusFunc func(appID, pid string, status runninginfo.RuntimeStatus)

// LaunchRequest is the qml-specific launch payload.
type LaunchRequest struct {
	AppID  string
	Main   string
	Params map[string]any
}

// CloseRequest is what Close needs to stop one qml app instance.
type CloseRequest struct {
	AppID  string
	Reason string
}

// Handler drives QML apps through the Booster service.
type Handler struct {
	bus      busx.Bus
	logger   log.Logger
	onStatus StatusFunc

	mu      sync.Mutex
	pidByID map[string]string
	idByPID map[string]string
}

// New builds a Handler and subscribes to the booster's processFinished
// signal so process exits can be matched back to an app id.
func New(ctx context.Context, bus busx.Bus, onStatus StatusFunc, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	h := &Handler{
		bus:      bus,
		logger:   logger,
		onStatus: onStatus,
		pidByID:  make(map[string]string),
		idByPID:  make(map[string]string),
	}
	payload := map[string]any{"category": "/booster", "method": "processFinished"}
	if _, err := bus.CallMultiReply(ctx, uriProcessFinished, payload, h.handleProcessFinished); err != nil {
		h.logger.Error("booster processFinished subscription failed", "err", err)
	}
	return h
}

// Launch posts launch to the booster and blocks for its single reply,
// which carries the assigned pid.
func (h *Handler) Launch(ctx context.Context, item *LaunchRequest) error {
	status := runninginfo.RuntimeStatusLaunching
	if item.Params != nil {
		if _, preloading := item.Params["preload"]; preloading {
			status = runninginfo.RuntimeStatusPreloading
		}
	}
	h.notify(item.AppID, "", status)

	payload := map[string]any{"main": item.Main, "appId": item.AppID, "params": item.Params}
	_, replies, err := h.bus.CallOneReply(ctx, uriBoosterLaunch, payload)
	if err != nil {
		h.notify(item.AppID, "", runninginfo.RuntimeStatusStop)
		return err
	}

	reply := <-replies
	if reply.Err != nil {
		h.notify(item.AppID, "", runninginfo.RuntimeStatusStop)
		return reply.Err
	}

	pid, _ := reply.Payload["pid"].(string)
	h.mu.Lock()
	h.pidByID[item.AppID] = pid
	h.idByPID[pid] = item.AppID
	h.mu.Unlock()

	h.notify(item.AppID, pid, runninginfo.RuntimeStatusRunning)
	return nil
}

// Close posts close to the booster and reports Closing immediately; the
// actual Stop transition arrives later via processFinished.
func (h *Handler) Close(ctx context.Context, item *CloseRequest) (string, error) {
	h.mu.Lock()
	pid, ok := h.pidByID[item.AppID]
	h.mu.Unlock()
	if !ok {
		return "", ErrNotRunning
	}

	h.notify(item.AppID, pid, runninginfo.RuntimeStatusClosing)

	_, replies, err := h.bus.CallOneReply(ctx, uriBoosterClose, map[string]any{"pid": pid, "reason": item.Reason})
	if err != nil {
		return "", err
	}
	go func() {
		if reply := <-replies; reply.Err != nil {
			h.logger.Error("booster close failed", "app_id", item.AppID, "err", reply.Err)
		}
	}()
	return pid, nil
}

// Pause is unsupported for QML apps.
func (h *Handler) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return fmt.Errorf("no pause interface for qml apps")
}

func (h *Handler) handleProcessFinished(reply busx.Reply) {
	if reply.Err != nil {
		h.logger.Error("processFinished push failed", "err", reply.Err)
		return
	}
	pid, _ := reply.Payload["pid"].(string)
	if pid == "" {
		return
	}

	h.mu.Lock()
	appID, ok := h.idByPID[pid]
	if ok {
		delete(h.idByPID, pid)
		delete(h.pidByID, appID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.notify(appID, "", runninginfo.RuntimeStatusStop)
}

func (h *Handler) notify(appID, pid string, status runninginfo.RuntimeStatus) {
	if h.onStatus != nil {
		h.onStatus(appID, pid, status)
	}
}
