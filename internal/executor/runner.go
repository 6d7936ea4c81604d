// Package executor runs the external command-line clients seu drives
// (xrdfs, xrdcp, gfal-*, hadd).
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/seutils/seu/internal/log"
)

// DryOutput is the single output line of a command in dry mode.
const DryOutput = "<dry output>"

// LookupPath is used to find executables in PATH. It's exposed as a package variable
// so tests can mock it and avoid depending on system binaries being installed.
var LookupPath = exec.LookPath

// Installed reports whether binary can be found in PATH.
func Installed(binary string) bool {
	_, err := LookupPath(binary)
	return err == nil
}

// Command describes one invocation of an external binary.
type Command struct {
	Args []string
	Env  map[string]string
	Dir  string
	// Attempts is the number of tries on non-zero exit; values below 1 mean 1.
	Attempts int
	// Path is the storage path the command acts on, used in error messages.
	Path string
	// ExitCodes maps known exit codes to sentinel errors.
	ExitCodes map[int]error
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return "<empty>"
	}
	return strings.Join(c.Args, " ")
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	// Output holds the combined stdout and stderr, one entry per line.
	Output []string
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError is returned by Checked for a non-zero exit.
type ExitError struct {
	Code   int
	Args   []string
	Output []string
	// Err is the sentinel mapped from Code, if any.
	Err error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", strings.Join(e.Args, " "), e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ShellRunner runs commands through os/exec.
type ShellRunner struct {
	Dry        bool
	RetrySleep time.Duration
	semaphore  chan struct{}
}

// NewShellRunner constructs a ShellRunner allowing at most maxConcurrent
// commands at the same time (0 means unlimited).
func NewShellRunner(dry bool, retrySleep time.Duration, maxConcurrent int) *ShellRunner {
	r := &ShellRunner{Dry: dry, RetrySleep: retrySleep}
	if maxConcurrent > 0 {
		r.semaphore = make(chan struct{}, maxConcurrent)
	}
	return r
}

func (r *ShellRunner) acquire(ctx context.Context) error {
	if r.semaphore == nil {
		return nil
	}
	select {
	case r.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ShellRunner) release() {
	if r.semaphore != nil {
		<-r.semaphore
	}
}

// Run executes cmd, retrying on non-zero exit when cmd.Attempts > 1.
// A non-zero exit is not an error; failing to start the binary is.
func (r *ShellRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("empty command")
	}
	if r.Dry {
		log.Infof("DRYRUN: %s", cmd)
		return &Result{Output: []string{DryOutput}}, nil
	}
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	attempts := max(cmd.Attempts, 1)
	var res *Result
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		res, err = r.runOnce(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if res.ExitCode == 0 || attempt == attempts {
			break
		}
		log.Warnf("command %q exited with code %d (attempt %d/%d), retrying in %s", cmd, res.ExitCode, attempt, attempts, r.RetrySleep)
		if err := sleep(ctx, r.RetrySleep); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *ShellRunner) runOnce(ctx context.Context, cmd Command) (*Result, error) {
	log.Debugf("run: %s", cmd)
	// #nosec G204 -- arguments are built by seu from storage paths, never through a shell
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), formatEnv(cmd.Env)...)
	}
	out, err := c.CombinedOutput()
	lines := splitLines(out)
	for _, line := range lines {
		log.Debugf("CMD: %s", line)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{ExitCode: exitErr.ExitCode(), Output: lines}, nil
		}
		return nil, fmt.Errorf("%s: %w", cmd.Args[0], err)
	}
	return &Result{Output: lines}, nil
}

// Checked runs cmd and returns its output, or an error for a non-zero exit.
func Checked(ctx context.Context, runner Runner, cmd Command) ([]string, error) {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.ExitCode == 0 {
		return res.Output, nil
	}
	exitErr := &ExitError{Code: res.ExitCode, Args: cmd.Args, Output: res.Output, Err: cmd.ExitCodes[res.ExitCode]}
	if exitErr.Err != nil {
		log.Debugf("%s: %v", cmd, exitErr.Err)
	} else {
		log.Errorf("Error in command %q (exit %d):\n%s", cmd, res.ExitCode, strings.Join(res.Output, "\n"))
	}
	return nil, exitErr
}

func formatEnv(env map[string]string) []string {
	formatted := make([]string, 0, len(env))
	for k, v := range env {
		formatted = append(formatted, fmt.Sprintf("%s=%s", k, v))
	}
	return formatted
}

func splitLines(out []byte) []string {
	out = bytes.TrimRight(out, "\n")
	if len(out) == 0 {
		return nil
	}
	return strings.Split(string(out), "\n")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
