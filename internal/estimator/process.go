package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/models"
)

// waitDelay bounds how long output pipes are drained after the process is killed
const waitDelay = 250 * time.Millisecond

// ProcessEstimator runs an external model as a subprocess. The request is written to
// stdin, which is then closed; stdout is parsed only after the process exits.
type ProcessEstimator struct {
	command string
	args    []string
	timeout time.Duration
	logger  *logger.PredictionLogger
}

// NewProcessEstimator creates a subprocess estimator. A zero timeout means DefaultTimeout.
func NewProcessEstimator(command string, args []string, timeout time.Duration, log *logger.PredictionLogger) *ProcessEstimator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessEstimator{command: command, args: args, timeout: timeout, logger: log}
}

// Name implements Estimator
func (p *ProcessEstimator) Name() string { return "process" }

// Estimate implements Estimator. The process is killed when the timeout expires.
func (p *ProcessEstimator) Estimate(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, bool) {
	start := time.Now()
	est, err := p.run(ctx, sessionKey, snap)
	observe(p.logger, p.Name(), start, err)
	if err != nil {
		return nil, false
	}
	return est, true
}

func (p *ProcessEstimator) run(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, error) {
	payload, err := json.Marshal(Request{SessionKey: sessionKey, Snapshot: snap})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// CommandContext kills the process group once ctx is done
	cmd := exec.CommandContext(ctx, p.command, p.args...)
	isolateProcessGroup(cmd)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		return nil, fmt.Errorf("estimator process failed: %w", err)
	}

	return DecodeResponse(stdout.Bytes())
}
