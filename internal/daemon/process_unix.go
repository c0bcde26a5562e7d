//go:build !windows

package daemon

import (
	"os"
	"syscall"
)

func alive(p *os.Process) bool {
	return p.Signal(syscall.Signal(0)) == nil
}

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// detachAttr starts the child in a new session
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
