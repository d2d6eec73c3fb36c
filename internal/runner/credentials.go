package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chr1sbest/stagehand/internal/logger"
)

// CredentialRefresher renews whatever the target's session depends on.
type CredentialRefresher interface {
	Refresh(ctx context.Context) error
}

// CommandRefresher runs a shell command to refresh credentials.
type CommandRefresher struct {
	Command string
	Timeout time.Duration
	Log     logger.Logger
}

// Refresh runs the command with sh -c. A non-zero exit is an error that
// carries the tail of the command's output.
func (c CommandRefresher) Refresh(ctx context.Context) error {
	if strings.TrimSpace(c.Command) == "" {
		return nil
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if c.Log != nil {
		c.Log.Debug("credential refresh finished",
			logger.F("duration", time.Since(start).String()),
			logger.F("output", tail(out.String(), 500)),
		)
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("refresh command: %w", ctx.Err())
		}
		return fmt.Errorf("refresh command: %w: %s", err, tail(out.String(), 200))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
