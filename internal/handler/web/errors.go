package web

import "errors"

// ErrNotRunning is returned by Close when the target app is neither
// running nor in the loading set.
var ErrNotRunning = errors.New("app is not running")
