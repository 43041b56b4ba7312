// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"slices"
	"strings"
	"sync"

	"k8s.io/utils/exec"
	testingexec "k8s.io/utils/exec/testing"
)

// CommandHandler answers one run of a command with its stdout or an error.
type CommandHandler func(cmd string, args ...string) ([]byte, error)

// HandlerExec is an exec.Interface whose commands are answered by Handler. Unlike testingexec.FakeExec
// it does not need to know the number of commands upfront. Every command line is recorded.
type HandlerExec struct {
	Handler CommandHandler

	mu    sync.Mutex
	calls [][]string
}

var _ exec.Interface = (*HandlerExec)(nil)

// NewHandlerExec creates a HandlerExec answering with handler.
func NewHandlerExec(handler CommandHandler) *HandlerExec {
	return &HandlerExec{Handler: handler}
}

func (e *HandlerExec) Command(cmd string, args ...string) exec.Cmd {
	return e.CommandContext(context.Background(), cmd, args...)
}

func (e *HandlerExec) CommandContext(_ context.Context, cmd string, args ...string) exec.Cmd {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string{cmd}, args...))
	e.mu.Unlock()
	fakeCmd := &testingexec.FakeCmd{
		RunScript: []testingexec.FakeAction{
			func() ([]byte, []byte, error) {
				stdout, err := e.Handler(cmd, args...)
				return stdout, nil, err
			},
		},
	}
	return testingexec.InitFakeCmd(fakeCmd, cmd, args...)
}

func (e *HandlerExec) LookPath(file string) (string, error) {
	return file, nil
}

// Calls returns the recorded command lines without the executable, joined by spaces.
func (e *HandlerExec) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	calls := make([]string, 0, len(e.calls))
	for _, call := range e.calls {
		calls = append(calls, strings.Join(call[1:], " "))
	}
	return calls
}

// CallCount returns how often a command line starting with prefix was run.
func (e *HandlerExec) CallCount(prefix string) int {
	return len(slices.DeleteFunc(e.Calls(), func(call string) bool {
		return !strings.HasPrefix(call, prefix)
	}))
}
