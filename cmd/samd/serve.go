package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/config"
	"github.com/webosose/sam-sub002/internal/deleted"
	"github.com/webosose/sam-sub002/internal/fanout"
	"github.com/webosose/sam-sub002/internal/handler"
	"github.com/webosose/sam-sub002/internal/handler/native"
	"github.com/webosose/sam-sub002/internal/handler/qml"
	"github.com/webosose/sam-sub002/internal/handler/web"
	"github.com/webosose/sam-sub002/internal/installer"
	"github.com/webosose/sam-sub002/internal/lifecycle"
	"github.com/webosose/sam-sub002/internal/lifecycle/memcheck"
	"github.com/webosose/sam-sub002/internal/lifecycle/prelaunch"
	"github.com/webosose/sam-sub002/internal/log"
	"github.com/webosose/sam-sub002/internal/procsup"
	"github.com/webosose/sam-sub002/internal/readiness"
	"github.com/webosose/sam-sub002/internal/roster"
	"github.com/webosose/sam-sub002/internal/runninginfo"
	"github.com/webosose/sam-sub002/internal/settings"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the samd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	logger := log.New(flagVerbose)

	v := viper.New()
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.DevMode = cfg.DevMode || flagDevMode
	cfg.UserMode = cfg.UserMode || flagUserMode

	deletedList, err := deleted.Load(cfg.DeletedAppsFile)
	if err != nil {
		return fmt.Errorf("load deleted apps list: %w", err)
	}

	conn, err := busx.Connect(ctx, cfg.UserMode)
	if err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer conn.Close()

	bus := busx.NewDBusBus(conn, logger)
	if err := bus.RegisterService(ctx, cfg.ServiceName, cfg.CompatNames); err != nil {
		return fmt.Errorf("register service: %w", err)
	}

	f := fanout.New(bus, logger)
	rosterTable := roster.New(f, deletedList, cfg.LocaleFallbackDirs, logger)
	running := runninginfo.New()
	pipeline := prelaunch.New(bus, logger)
	memChecker := memcheck.New(cfg.AvailableMemoryMB, logger)
	registry := handler.NewRegistry()

	var mgr *lifecycle.Manager
	onStatus := handler.StatusFunc(func(appID, pid string, status runninginfo.RuntimeStatus) {
		if mgr != nil {
			mgr.OnHandlerStatus(appID, pid, status)
		}
	})

	webHandler := web.New(ctx, bus, handler.NewWebStatusAdapter(onStatus), logger)
	qmlHandler := qml.New(ctx, bus, handler.NewQmlStatusAdapter(onStatus), logger)
	nativeHandler := native.New(procsup.NewOSRunner(), handler.NewNativeStatusAdapter(onStatus), logger)

	registry.Register(string(roster.HandlerKindWeb), handler.NewWebHandler(webHandler))
	registry.Register(string(roster.HandlerKindQml), handler.NewQmlHandler(qmlHandler, rosterTable))
	registry.Register(string(roster.HandlerKindNative), handler.NewNativeHandler(nativeHandler, rosterTable))
	registry.Register(string(roster.HandlerKindNone), handler.NewStubHandler(onStatus))

	mgr = lifecycle.NewManager(
		lifecycle.NewRouter(),
		rosterTable,
		running,
		pipeline,
		memChecker,
		registry,
		f,
		lifecycle.DefaultStageBuilder(rosterTable, running, f),
		logger,
	)

	ready := readiness.New(logger, func(passed bool) {
		mgr.SetRosterReady(passed)
	})
	configItem := ready.AddItem("config-loaded")
	bootItem := ready.AddItem("boot-done")
	ready.Run()

	mgr.BeginScan()
	rosterTable.ScanFull(nil)
	mgr.EndScan()
	configItem.SetStatus(readiness.StatusPassed)
	bootItem.SetStatus(readiness.StatusPassed)

	installerClient := installer.New(bus, logger)
	settingsClient := settings.New(bus, logger)

	if err := registerMethods(bus, cfg, rosterTable, running, mgr, registry, installerClient, settingsClient); err != nil {
		return fmt.Errorf("register bus methods: %w", err)
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("failed to notify systemd of readiness", "err", err)
	} else if sent {
		logger.Info("notified systemd that samd is ready")
	}

	logger.Info("samd serving", "service", cfg.ServiceName, "dev_mode", cfg.DevMode)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	return bus.Close()
}

// registerMethods exports the RPC method table the rest of the platform
// calls into, per the External Interfaces surface.
func registerMethods(bus busx.Bus, cfg *config.AppConfig, rosterTable *roster.Roster, running *runninginfo.Table, mgr *lifecycle.Manager, registry *handler.Registry, installerClient *installer.Client, settingsClient *settings.Client) error {
	methods := map[string]busx.MethodHandler{
		"launch": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["id"].(string)
			params, _ := payload["params"].(map[string]any)
			keepAlive, _ := payload["keepAlive"].(bool)
			preload, _ := payload["preload"].(string)
			display, _ := payload["display"].(string)

			req := lifecycle.LaunchRequest{
				UID:       uuid.NewString(),
				AppID:     appID,
				Display:   display,
				Params:    params,
				Preload:   preload,
				KeepAlive: keepAlive,
			}

			result := make(chan lifecycle.LaunchResult, 1)
			mgr.Launch(ctx, req, func(r lifecycle.LaunchResult) { result <- r })
			res := <-result
			if res.Err != nil {
				return nil, res.Err
			}
			return map[string]any{"appId": res.AppID, "processId": res.ProcessID}, nil
		},
		"closeByAppId": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["id"].(string)
			display, _ := payload["display"].(string)
			reason, _ := payload["reason"].(string)

			errCh := make(chan error, 1)
			mgr.Close(ctx, appID, display, reason, func(err error) { errCh <- err })
			if err := <-errCh; err != nil {
				return nil, err
			}
			return map[string]any{"appId": appID}, nil
		},
		"pause": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["id"].(string)
			params, _ := payload["params"].(map[string]any)

			errCh := make(chan error, 1)
			mgr.Pause(ctx, appID, params, true, func(err error) { errCh <- err })
			if err := <-errCh; err != nil {
				return nil, err
			}
			return map[string]any{"appId": appID}, nil
		},
		"running": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			var out []map[string]any
			for _, info := range running.List() {
				out = append(out, map[string]any{"id": info.AppID, "processid": info.PID})
			}
			return map[string]any{"running": out}, nil
		},
		"getAppLifeStatus": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["appId"].(string)
			info, ok := running.Get(appID, runninginfo.DefaultDisplay)
			if !ok {
				return map[string]any{"appId": appID, "status": string(runninginfo.LifeStatusStop)}, nil
			}
			return map[string]any{"appId": appID, "status": string(info.LifeStatus), "processId": info.PID}, nil
		},
		"getForegroundAppInfo": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			apps := running.Foreground().GetForegroundApps()
			out := make([]map[string]any, 0, len(apps))
			for _, a := range apps {
				out = append(out, map[string]any{"appId": a.AppID, "processId": a.ProcessID})
			}
			return map[string]any{"foregroundAppInfo": out}, nil
		},
		"lockApp": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["id"].(string)
			locked, _ := payload["lock"].(bool)
			if err := rosterTable.Lock(appID, locked); err != nil {
				return nil, err
			}
			return map[string]any{"appId": appID, "locked": locked}, nil
		},
		"registerApp": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["appId"].(string)

			// Capture the event the app may have missed before its own
			// registerApp call confirms it's ready to receive new ones.
			info, ok := running.Get(appID, runninginfo.DefaultDisplay)
			missedEvent := runninginfo.LifeEventInvalid
			pid := ""
			if ok {
				missedEvent = info.LastEvent
				pid = info.PID
			}

			if pkg, ok := rosterTable.Get(appID); ok {
				if h, ok := registry.For(string(pkg.HandlerKind)); ok {
					if registerer, ok := h.(handler.Registerer); ok {
						if err := registerer.Register(appID); err != nil {
							return nil, err
						}
					}
				}
			}

			return map[string]any{"appId": appID, "event": string(missedEvent), "processId": pid}, nil
		},
		"listApps": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			var out []map[string]any
			for _, pkg := range rosterTable.All() {
				out = append(out, map[string]any{
					"id":         pkg.AppID,
					"title":      pkg.Title,
					"folderPath": pkg.FolderPath,
					"type":       string(pkg.AppType),
				})
			}
			return map[string]any{"apps": out}, nil
		},
		"getAppStatus": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["appId"].(string)
			_, ok := rosterTable.Get(appID)
			return map[string]any{"appId": appID, "installed": ok}, nil
		},
		"getAppInfo": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["appId"].(string)
			pkg, ok := rosterTable.Get(appID)
			if !ok {
				return nil, fmt.Errorf("app not found: %s", appID)
			}
			return map[string]any{"appId": pkg.AppID, "title": pkg.Title, "main": pkg.Main, "version": pkg.Version}, nil
		},
		"removeApp": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["id"].(string)
			if err := rosterTable.Uninstall(appID, installerClient, settingsClient); err != nil {
				return nil, err
			}
			return map[string]any{"appId": appID}, nil
		},
		"getAppBasePath": func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			appID, _ := payload["appId"].(string)
			pkg, ok := rosterTable.Get(appID)
			if !ok {
				return nil, fmt.Errorf("app not found: %s", appID)
			}
			return map[string]any{"appId": pkg.AppID, "basePath": pkg.FolderPath}, nil
		},
	}

	if err := bus.RegisterCategory("/", methods); err != nil {
		return err
	}
	if cfg.DevMode {
		if err := bus.RegisterCategory("/dev", methods); err != nil {
			return err
		}
	}
	return nil
}
