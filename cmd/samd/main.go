// Command samd is the System Application Manager daemon: it owns the
// installed-app roster, the running-instance table, and the lifecycle
// engine that launches, closes, and pauses app instances over the bus.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
