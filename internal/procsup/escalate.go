package procsup

import (
	"context"
	"syscall"
	"time"

	"github.com/webosose/sam-sub002/internal/log"
)

// Escalator closes a supervised native process: it signals SIGTERM, then
// escalates to SIGKILL on the process group if the process hasn't exited
// within timeout. This mirrors the original's
// startTimerToKillApp/killAppOnTimeout pair (a per-app kill timer that
// fires SIGKILL once, with stopTimerToKillApp cancelling it on graceful
// exit).
type Escalator struct {
	runner  Runner
	timeout time.Duration
	logger  log.Logger
}

// NewEscalator builds an Escalator that waits timeout before sending SIGKILL.
func NewEscalator(runner Runner, timeout time.Duration, logger log.Logger) *Escalator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Escalator{runner: runner, timeout: timeout, logger: logger}
}

// Close sends SIGTERM to pid's process group, then waits for either exited
// to close (the caller observed the process exit) or timeout to elapse, in
// which case it sends SIGKILL. Close returns once escalation is no longer
// possible to cancel; it does not itself wait for SIGKILL to take effect.
func (e *Escalator) Close(ctx context.Context, pid int, exited <-chan struct{}) {
	if err := e.runner.Signal(pid, syscall.SIGTERM); err != nil {
		e.logger.Warn("sigterm failed, escalating immediately", "pid", pid, "error", err)
		e.killNow(pid)
		return
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case <-exited:
		return
	case <-timer.C:
		e.logger.Info("kill escalation timeout, sending sigkill", "pid", pid)
		e.killNow(pid)
	case <-ctx.Done():
		e.killNow(pid)
	}
}

func (e *Escalator) killNow(pid int) {
	if err := e.runner.Signal(pid, syscall.SIGKILL); err != nil {
		e.logger.Error("sigkill failed", "pid", pid, "error", err)
	}
}
