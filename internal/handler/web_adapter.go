package handler

import (
	"context"

	"github.com/webosose/sam-sub002/internal/handler/web"
)

// webAdapter satisfies Handler by translating the generic
// LaunchItem/CloseItem shape into web.Handler's richer request types.
type webAdapter struct {
	inner *web.Handler
}

// NewWebHandler builds a Handler for web apps, backed by h.
func NewWebHandler(h *web.Handler) Handler {
	return &webAdapter{inner: h}
}

// NewWebStatusAdapter lets a caller wire this package's StatusFunc
// straight into web.New without the web package needing to import this
// one.
func NewWebStatusAdapter(f StatusFunc) web.StatusFunc {
	if f == nil {
		return nil
	}
	return web.StatusFunc(f)
}

func (a *webAdapter) Launch(ctx context.Context, item *LaunchItem) error {
	return a.inner.Launch(ctx, &web.LaunchRequest{
		AppID:     item.AppID,
		Params:    item.Params,
		KeepAlive: item.KeepAlive,
		Preload:   item.Preload,
		CallerID:  item.UID,
	})
}

func (a *webAdapter) Close(ctx context.Context, item *CloseItem) (string, error) {
	return a.inner.Close(ctx, &web.CloseRequest{AppID: item.AppID, Reason: item.Reason})
}

func (a *webAdapter) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return a.inner.Pause(ctx, appID, params, sendLifeEvent)
}
