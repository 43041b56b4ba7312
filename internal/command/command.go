// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"slices"
	"strings"
)

// RedactedValue replaces the values of secret flags in the string form of a Command.
const RedactedValue = "<redacted>"

// secretFlags are the flags whose values never leave the process arguments.
var secretFlags = []string{"--admin-password", "--postgres-password", "--user-password"}

// Command is an external executable together with its arguments. It is immutable once created.
type Command struct {
	executable string
	args       []string
}

// NewCommand creates a Command. The args are copied.
func NewCommand(executable string, args ...string) Command {
	return Command{
		executable: executable,
		args:       slices.Clone(args),
	}
}

// ParseCommand creates a Command from an argument line split on whitespace.
func ParseCommand(executable string, argLine string) Command {
	return NewCommand(executable, strings.Fields(argLine)...)
}

// Executable returns the program that is run.
func (c Command) Executable() string {
	return c.executable
}

// Args returns a copy of the arguments.
func (c Command) Args() []string {
	return slices.Clone(c.args)
}

// With returns a new Command with extra appended to the arguments.
func (c Command) With(extra ...string) Command {
	return NewCommand(c.executable, append(slices.Clone(c.args), extra...)...)
}

// String returns the command line with the values of secret flags replaced by RedactedValue.
// It is used for logs and error messages. The real arguments are only handed to the executor.
func (c Command) String() string {
	return strings.TrimSpace(c.executable + " " + strings.Join(redact(c.args), " "))
}

func redact(args []string) []string {
	redacted := slices.Clone(args)
	for i := 0; i < len(redacted); i++ {
		flagName, _, hasValue := strings.Cut(redacted[i], "=")
		if !slices.Contains(secretFlags, flagName) {
			continue
		}
		if hasValue {
			redacted[i] = flagName + "=" + RedactedValue
		} else if i+1 < len(redacted) {
			i++
			redacted[i] = RedactedValue
		}
	}
	return redacted
}
