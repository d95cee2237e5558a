package native

import "errors"

var errRegistrationTimeout = errors.New("native app did not register in time")

// ErrNotRunning is returned by Close/Register against an app id with no
// tracked client, matching the original's "native app is not running".
var ErrNotRunning = errors.New("native app is not running")
