package handler

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/handler/native"
	"github.com/webosose/sam-sub002/internal/roster"
)

// PackageLookup is the narrow roster dependency the native adapter needs
// to resolve an app id to its executable and declared interface version.
type PackageLookup interface {
	Get(appID string) (*roster.AppPackage, bool)
}

// nativeAdapter satisfies Handler by translating the generic
// LaunchItem/CloseItem shape into native.Handler's richer LaunchRequest,
// resolving the missing fields (executable path, interface version) from
// the roster. NewNativeHandler is the factory the Lifecycle Manager uses
// for every AppPackage whose HandlerKind is native, regardless of which
// native_interface version that package declares.
type nativeAdapter struct {
	inner    *native.Handler
	packages PackageLookup
}

// NewNativeHandler builds a Handler for native apps, backed by h and
// resolving per-launch interface-version/executable details from
// packages.
func NewNativeHandler(h *native.Handler, packages PackageLookup) Handler {
	return &nativeAdapter{inner: h, packages: packages}
}

// NewNativeStatusAdapter lets a caller wire this package's StatusFunc
// straight into native.New without the native package needing to import
// this one.
func NewNativeStatusAdapter(f StatusFunc) native.StatusFunc {
	if f == nil {
		return nil
	}
	return native.StatusFunc(f)
}

func (a *nativeAdapter) Launch(ctx context.Context, item *LaunchItem) error {
	pkg, ok := a.packages.Get(item.AppID)
	if !ok {
		return fmt.Errorf("native launch: app %s not in roster", item.AppID)
	}
	return a.inner.Launch(ctx, &native.LaunchRequest{
		AppID:            item.AppID,
		Main:             pkg.Main,
		InterfaceVersion: pkg.NativeInterfaceVer,
	})
}

func (a *nativeAdapter) Close(ctx context.Context, item *CloseItem) (string, error) {
	return a.inner.Close(ctx, &native.CloseRequest{AppID: item.AppID, Reason: item.Reason})
}

func (a *nativeAdapter) Pause(ctx context.Context, appID string, params map[string]any, sendLifeEvent bool) error {
	return a.inner.Pause(ctx, appID, params, sendLifeEvent)
}

// Register implements handler.Registerer for a native v2 app's
// registerApp call.
func (a *nativeAdapter) Register(appID string) error {
	return a.inner.Register(appID)
}
