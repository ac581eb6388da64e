package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook execution.
const DefaultTimeout = 10 * time.Second

// Executor runs hooks with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor. A non-positive timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs h with req on stdin and parses its stdout as a Response.
func (e *Executor) Execute(ctx context.Context, h *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("hook %s timed out after %s", h.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", h.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("hook %s failed: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &resp, nil
}
