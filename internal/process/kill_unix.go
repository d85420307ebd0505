//go:build !windows

// Package process manages the process groups of external tools so a
// canceled conversion never leaves rasterizer or browser children behind.
package process

import (
	"os/exec"
	"syscall"
)

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort cleanup; the caller also waits on the process.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// SetProcessGroup makes cmd the leader of a new process group so that
// KillProcessGroup reaches its children.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
