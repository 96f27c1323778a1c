// Command structurize is the CLI front end for the structurizer: it reads a
// small JSON-encoded host-IR fixture, runs the structurization pass, and
// writes the rewritten function back out.
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
