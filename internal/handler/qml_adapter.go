package handler

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/handler/qml"
	"github.com/webosose/sam-sub002/internal/roster"
)

// qmlAdapter satisfies Handler by translating the generic
// LaunchItem/CloseItem shape into qml.Handler's richer request types,
// resolving the missing main-qml URI from the roster.
type qmlAdapter struct {
	inner    *qml.Handler
	packages PackageLookup
}

// NewQmlHandler builds a Handler for qml apps, backed by h and resolving
// each launch's main-qml URI from packages.
func NewQmlHandler(h *qml.Handler, packages PackageLookup) Handler {
	return &qmlAdapter{inner: h, packages: packages}
}

// NewQmlStatusAdapter lets a caller wire this package's StatusFunc
// straight into qml.New without the qml package needing to import this
// one.
func NewQmlStatusAdapter(f StatusFunc) qml.StatusFunc {
	if f == nil {
		return nil
	}
	return qml.StatusFunc(f)
}

func (a *qmlAdapter) Launch(ctx context.Context, item *LaunchItem) error {
	pkg, ok := a.packages.Get(item.AppID)
	if !ok {
		return fmt.Errorf("qml launch: app %s not in roster", item.AppID)
	}
	return a.inner.Launch(ctx, &qml.LaunchRequest{AppID: item.AppID, Main: pkg.Main, Params: item.Params})
}

func (a *qmlAdapter) Close(ctx context.Context, item *CloseItem) (string, error) {
	return a.inner.Close(ctx, &qml.CloseRequest{AppID: item.AppID, Reason: item.Reason})
}

func (a *qmlAdapter) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return a.inner.Pause(ctx, appID, params, sendLifeEvent)
}
