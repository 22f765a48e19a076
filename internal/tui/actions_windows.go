//go:build windows

package tui

import "fmt"

func termProcess(pid int) error { return fmt.Errorf("not supported on Windows") }
