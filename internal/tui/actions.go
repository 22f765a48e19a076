//go:build !windows

package tui

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func termProcess(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID %d", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal SIGTERM to PID %d failed: %w", pid, err)
	}
	return nil
}
