// Package fakeprocsup provides a fake implementation of procsup.Runner for
// testing lifecycle handlers without spawning real processes. Modeled on
// a func-field fake runner idiom.
package fakeprocsup

import (
	"context"
	"sync"
	"syscall"

	"github.com/webosose/sam-sub002/internal/procsup"
)

// SignalCall captures one Signal invocation.
type SignalCall struct {
	PID int
	Sig syscall.Signal
}

// Runner is a fake procsup.Runner. Each Start call hands back a fresh PID
// and exit channel; the test controls when (and how) the process exits by
// calling Exit.
type Runner struct {
	mu      sync.Mutex
	nextPID int
	procs   map[int]chan procsup.ExitResult
	starts  []procsup.Spec
	signals []SignalCall
	startErr error
}

// New creates a fake Runner. PIDs are assigned starting at 1000.
func New() *Runner {
	return &Runner{nextPID: 1000, procs: make(map[int]chan procsup.ExitResult)}
}

// SetStartError makes every subsequent Start call fail with err.
func (r *Runner) SetStartError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

// Start implements procsup.Runner.
func (r *Runner) Start(_ context.Context, spec procsup.Spec) (*procsup.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starts = append(r.starts, spec)
	if r.startErr != nil {
		return nil, r.startErr
	}

	pid := r.nextPID
	r.nextPID++
	exit := make(chan procsup.ExitResult, 1)
	r.procs[pid] = exit

	return &procsup.Handle{PID: pid, Exit: exit}, nil
}

// Signal implements procsup.Runner.
func (r *Runner) Signal(pid int, sig syscall.Signal) error {
	r.mu.Lock()
	r.signals = append(r.signals, SignalCall{PID: pid, Sig: sig})
	r.mu.Unlock()
	return nil
}

// Exit delivers an exit result to pid's Exit channel, simulating the
// process terminating (naturally or in response to a prior Signal call).
func (r *Runner) Exit(pid int, result procsup.ExitResult) {
	r.mu.Lock()
	ch, ok := r.procs[pid]
	r.mu.Unlock()
	if !ok {
		return
	}
	ch <- result
}

// Starts returns every Spec passed to Start, in call order.
func (r *Runner) Starts() []procsup.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]procsup.Spec, len(r.starts))
	copy(out, r.starts)
	return out
}

// Signals returns every Signal call received, in call order.
func (r *Runner) Signals() []SignalCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SignalCall, len(r.signals))
	copy(out, r.signals)
	return out
}
