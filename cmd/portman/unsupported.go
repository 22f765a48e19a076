//go:build !linux && !darwin && !freebsd && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"portman is only supported on Linux, macOS, FreeBSD, and Windows.\n\nIf you are seeing this message, you are attempting to build or run portman on an unsupported platform.",
	)
	os.Exit(1)
}
