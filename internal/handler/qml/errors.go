package qml

import "errors"

// ErrNotRunning is returned by Close against an app id with no tracked pid.
var ErrNotRunning = errors.New("qml app is not running")
