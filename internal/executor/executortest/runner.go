// Package executortest provides a scripted executor.Runner for tests.
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/seutils/seu/internal/executor"
)

// Handler produces the result of a command.
type Handler func(cmd executor.Command) (*executor.Result, error)

// Runner records every command and answers with Handler, or with an empty
// successful result when Handler is nil.
type Runner struct {
	Handler Handler

	mu    sync.Mutex
	calls []executor.Command
}

// Run implements executor.Runner.
func (r *Runner) Run(_ context.Context, cmd executor.Command) (*executor.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	if r.Handler == nil {
		return &executor.Result{}, nil
	}
	return r.Handler(cmd)
}

// Calls returns the recorded commands.
func (r *Runner) Calls() []executor.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.Command(nil), r.calls...)
}

// CommandLines returns the recorded commands joined with spaces.
func (r *Runner) CommandLines() []string {
	calls := r.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, strings.Join(c.Args, " "))
	}
	return lines
}

// Output builds a successful result with the given lines.
func Output(lines ...string) *executor.Result {
	return &executor.Result{Output: lines}
}

// Exit builds a failed result with the given exit code and lines.
func Exit(code int, lines ...string) *executor.Result {
	return &executor.Result{ExitCode: code, Output: lines}
}
