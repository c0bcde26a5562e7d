//go:build windows

package daemon

import (
	"os"
	"syscall"
)

// FindProcess already opened a handle, so the process exists
func alive(*os.Process) bool {
	return true
}

func terminate(p *os.Process) error {
	return p.Kill()
}

func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true}
}
