/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package toolexec runs the external command-line tools used during a release.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
	"github.com/kballard/go-shellquote"
)

// Command is a single tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the current process environment.
	Env []string
}

// String renders the command as a shell-quoted line.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Runner executes commands.
type Runner interface {
	// Run executes cmd, feeding stdin when non-nil.
	Run(ctx context.Context, cmd Command, stdin io.Reader) error
	// Output executes cmd and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ToolError reports a tool that ran and exited unsuccessfully.
type ToolError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    logr.Logger
}

// NewExecRunner returns a runner that forwards tool output to the process streams.
func NewExecRunner(log logr.Logger) *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr, Log: log}
}

var _ Runner = (*ExecRunner)(nil)

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, stdin io.Reader) error {
	c, err := r.command(ctx, cmd)
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	c.Stdin = stdin
	c.Stdout = r.Stdout
	c.Stderr = io.MultiWriter(nonNil(r.Stderr), &stderr)

	r.Log.V(1).Info("running command", "command", cmd.String(), "dir", cmd.Dir)
	return wrapExitError(cmd, c.Run(), stderr.String())
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	c, err := r.command(ctx, cmd)
	if err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = io.MultiWriter(nonNil(r.Stderr), &stderr)

	r.Log.V(1).Info("running command", "command", cmd.String(), "dir", cmd.Dir)
	if err := wrapExitError(cmd, c.Run(), stderr.String()); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) command(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w", cmd.Name, err)
	}
	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c, nil
}

func wrapExitError(cmd Command, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Command: cmd, ExitCode: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("%s: %w", cmd, err)
}

func nonNil(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
