// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts child processes in their own process group and
// terminates the whole group. Test executables spawn helpers of their own;
// killing only the direct child would leak them.
package procgroup

import (
	"errors"
	"os/exec"
	"time"
)

// ErrKillFailed reports a process group that survived SIGKILL past the
// reaper timeout.
var ErrKillFailed = errors.New("kill operation failed")

// Set configures the command to start in a new process group.
// Mandatory for KillGroup and Terminate to reach the whole tree.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// KillGroup terminates an entire process group tree by pid.
// The process MUST have been spawned with procgroup.Set(cmd).
func KillGroup(pid int, grace, timeout time.Duration) error {
	// Standard lifecycle: SIGTERM -> wait -> SIGKILL
	return killGroup(pid, grace, timeout)
}
