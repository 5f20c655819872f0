// Guido is a voice-controlled workshop assistant. It wakes on "Guido wake
// up", hands over tools with the robot arm, talks through maintenance
// procedures and goes back to sleep when idle.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
