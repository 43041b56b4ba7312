// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// Tool runs subcommands of the operator control CLI.
type Tool struct {
	runner     Runner
	executable string
	policy     util.RetryPolicy
}

// NewTool creates a Tool for executable. Every subcommand is run with policy.
func NewTool(runner Runner, executable string, policy util.RetryPolicy) *Tool {
	return &Tool{
		runner:     runner,
		executable: executable,
		policy:     policy,
	}
}

// Executable returns the path of the control CLI.
func (t *Tool) Executable() string {
	return t.executable
}

// Exec runs the control CLI with args.
func (t *Tool) Exec(ctx context.Context, args ...string) Result {
	return t.runner.Run(ctx, NewCommand(t.executable, args...), t.policy)
}

// Deploy runs `deploy` with args.
func (t *Tool) Deploy(ctx context.Context, args ...string) Result {
	return t.Exec(ctx, append([]string{"deploy"}, args...)...)
}

// Destroy runs `destroy` with args.
func (t *Tool) Destroy(ctx context.Context, args ...string) Result {
	return t.Exec(ctx, append([]string{"destroy"}, args...)...)
}

// Create runs `create <kind> <name>` with args.
func (t *Tool) Create(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"create", kind, name}, args...)...)
}

// Delete runs `delete <kind> <name>` with args.
func (t *Tool) Delete(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"delete", kind, name}, args...)...)
}

// Get runs `get <plural>` with args.
func (t *Tool) Get(ctx context.Context, plural string, args ...string) Result {
	return t.Exec(ctx, append([]string{"get", plural}, args...)...)
}

// Describe runs `describe <kind> <name>` with args.
func (t *Tool) Describe(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"describe", kind, name}, args...)...)
}

// Update runs `update <kind> <name>` with args.
func (t *Tool) Update(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"update", kind, name}, args...)...)
}

// Stop runs `stop <kind> <name>` with args.
func (t *Tool) Stop(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"stop", kind, name}, args...)...)
}

// Start runs `start <kind> <name>` with args.
func (t *Tool) Start(ctx context.Context, kind, name string, args ...string) Result {
	return t.Exec(ctx, append([]string{"start", kind, name}, args...)...)
}
