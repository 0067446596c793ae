//go:build !unix

package estimator

import "os/exec"

// isolateProcessGroup keeps the default cancellation, which kills only the direct child.
func isolateProcessGroup(*exec.Cmd) {}
