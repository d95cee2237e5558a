package lifecycle

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/fanout"
	"github.com/webosose/sam-sub002/internal/lifecycle/prelaunch"
	"github.com/webosose/sam-sub002/internal/roster"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// DefaultStageBuilder builds the ordinary prelaunch stage list a launch
// sits behind: a stub redirect (grounded on Prelauncher::redirectToAnother)
// for Stub packages, or a splash notification (grounded on original_source's
// splash-stage fan-out) for packages declaring SplashOnLaunch. running and
// r are threaded through so a redirect can re-seed the new target's own
// stage list, including its own execution-lock check.
func DefaultStageBuilder(r *roster.Roster, running *runninginfo.Table, f *fanout.Fanout) StageBuilder {
	var build StageBuilder
	build = func(pkg *roster.AppPackage, item *prelaunch.Item) []prelaunch.Stage {
		if pkg.AppType == roster.AppTypeStub {
			return []prelaunch.Stage{stubRedirectStage(pkg, r, running, build)}
		}
		var stages []prelaunch.Stage
		if pkg.SplashOnLaunch {
			stages = append(stages, splashStage(f))
		}
		return stages
	}
	return build
}

// stubRedirectStage retargets a Stub package's launch at its
// redirection.ini target. Per the Prelauncher's redirect contract, the
// handler that returns Redirected must itself call item.RedirectTo and
// then item.SetStages with the new target's stage list (execution-lock
// check plus whatever build produces for it) before returning, so the
// pipeline restarts cleanly against the new app id rather than treating
// the redirect as instant success. Grounded on Prelauncher::redirectToAnother.
func stubRedirectStage(pkg *roster.AppPackage, r *roster.Roster, running *runninginfo.Table, build StageBuilder) prelaunch.Stage {
	return prelaunch.Stage{
		Name: "stub_redirect",
		Type: prelaunch.DirectCheck,
		Check: func(ctx context.Context, item *prelaunch.Item) (prelaunch.Result, error) {
			if pkg.Redirection == nil || pkg.Redirection.ID == "" {
				return prelaunch.Failed, fmt.Errorf("stub app %s has no redirection target", pkg.AppID)
			}
			target, ok := r.Get(pkg.Redirection.ID)
			if !ok {
				return prelaunch.Failed, fmt.Errorf("stub app %s redirects to unknown app %s", pkg.AppID, pkg.Redirection.ID)
			}

			item.RedirectTo(target.AppID)
			stages := append([]prelaunch.Stage{executionLockStage(running)}, build(target, item)...)
			item.SetStages(stages)
			return prelaunch.Redirected, nil
		},
	}
}

func splashStage(f *fanout.Fanout) prelaunch.Stage {
	return prelaunch.Stage{
		Name: "splash",
		Type: prelaunch.DirectCheck,
		Check: func(ctx context.Context, item *prelaunch.Item) (prelaunch.Result, error) {
			f.Publish("getAppLifeEvents", map[string]any{
				"appId": item.AppID,
				"event": string(runninginfo.LifeEventSplash),
			})
			return prelaunch.GoNext, nil
		},
	}
}
