package lifecycle

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/lifecycle/prelaunch"
	"github.com/webosose/sam-sub002/internal/runninginfo"
)

// executionLockStage builds the Prelauncher's mandatory first stage:
// a DirectCheck against the target instance's ExecutionLock flag.
// Grounded on original_source's handle_execution_lock_status, the first
// stage every prelaunching item carries regardless of app type.
func executionLockStage(running *runninginfo.Table) prelaunch.Stage {
	return prelaunch.Stage{
		Name: "execution_lock",
		Type: prelaunch.DirectCheck,
		Check: func(ctx context.Context, item *prelaunch.Item) (prelaunch.Result, error) {
			info, ok := running.Get(item.AppID, item.Display)
			if ok && info.ExecutionLock {
				return prelaunch.Failed, fmt.Errorf("app is locked")
			}
			return prelaunch.GoNext, nil
		},
	}
}
