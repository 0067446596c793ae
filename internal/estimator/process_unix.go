//go:build unix

package estimator

import (
	"os/exec"
	"syscall"
)

// isolateProcessGroup starts the model in its own process group and kills the whole
// group on cancellation, so workers forked by the model die with it.
func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
