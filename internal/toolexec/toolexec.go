// Package toolexec runs the external symbol tools and captures their output.
//
// A non-zero exit status is reported in the Result rather than as an error so
// callers can tell a missing tool from a tool that ran and failed.
package toolexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
)

type Command struct {
	Path string
	Args []string
	// Env is the child's complete environment. Nil inherits the process
	// environment.
	Env []string
}

// String renders the command the way it would be typed at a prompt.
func (c Command) String() string {
	parts := []string{c.Path}
	for _, a := range c.Args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

type Result struct {
	Output   []byte
	ExitCode int
	// Err is set when the process could not be started or was killed.
	Err error
}

// NotFound reports whether the tool could not be located.
func (r Result) NotFound() bool {
	return r.Err != nil && (errors.Is(r.Err, exec.ErrNotFound) || errors.Is(r.Err, fs.ErrNotExist))
}

// OK reports whether the tool ran and exited with status zero.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failed reports whether the tool ran but exited with a non-zero status.
func (r Result) Failed() bool {
	return r.Err == nil && r.ExitCode != 0
}

// Lines splits the captured output into lines without terminators.
func (r Result) Lines() []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(r.Output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}

type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) Result

func (f RunnerFunc) Run(ctx context.Context, cmd Command) Result {
	return f(ctx, cmd)
}

// ExecRunner runs commands as child processes. There is no timeout; ctx is
// only cancelled on user interruption, which kills the child.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) Result {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = c.Env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := Result{Output: out.Bytes()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = err
	}
	return res
}
