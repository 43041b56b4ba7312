// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"k8s.io/utils/exec"

	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// Result is the outcome of running a command. Value holds stdout on success.
type Result = util.RetryResult[[]byte]

// Runner executes commands synchronously, retrying failed runs with a fixed delay.
type Runner interface {
	Run(ctx context.Context, cmd Command, policy util.RetryPolicy) Result
}

type runner struct {
	executor exec.Interface
	logger   logr.Logger
}

// NewRunner creates a Runner which executes commands through executor.
func NewRunner(executor exec.Interface, logger logr.Logger) Runner {
	return &runner{
		executor: executor,
		logger:   logger,
	}
}

// Run executes cmd until it exits with status 0 or policy.MaxAttempts runs have failed. After the last
// failed run the result carries an ErrCommandExecution error with the captured stderr of that run.
func (r *runner) Run(ctx context.Context, cmd Command, policy util.RetryPolicy) Result {
	attempt := 0
	result := util.Retry(ctx, r.logger, cmd.String(), func() ([]byte, error) {
		attempt++
		r.logger.Info("Running command", "command", cmd.String(), "attempt", attempt, "maxAttempts", policy.MaxAttempts)
		return r.runOnce(ctx, cmd)
	}, policy, util.AlwaysRetry)
	if result.Err != nil && !errors.Is(result.Err, context.Canceled) && !errors.Is(result.Err, context.DeadlineExceeded) {
		r.logger.Error(result.Err, "Command failed on every attempt", "command", cmd.String(), "attempts", result.Attempts)
	}
	return result
}

func (r *runner) runOnce(ctx context.Context, cmd Command) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	c := r.executor.CommandContext(ctx, cmd.Executable(), cmd.Args()...)
	c.SetStdout(&stdout)
	c.SetStderr(&stderr)
	if err := c.Run(); err != nil {
		return nil, e2eerrors.WrapError(err, e2eerrors.ErrCommandExecution, diagnostic(cmd, &stderr, err))
	}
	return stdout.Bytes(), nil
}

func diagnostic(cmd Command, stderr *bytes.Buffer, err error) string {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		msg = err.Error()
	}
	var exitErr exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%s exited with status %d: %s", cmd, exitErr.ExitStatus(), msg)
	}
	return fmt.Sprintf("%s failed: %s", cmd, msg)
}
