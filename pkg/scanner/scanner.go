// Copyright 2025 venslabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scanner validates manifests and runs the external audit tool.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"

	"github.com/venslabs/depaudit/pkg/scanerror"
)

const (
	DefaultTimeout = 600 * time.Second
	// waitDelay bounds how long Run waits for the output pipes after the
	// process was killed.
	waitDelay = 5 * time.Second
)

// Result holds what the audit tool produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Validate fails with scanerror.FileNotFound unless path is an existing regular file.
func Validate(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return scanerror.Wrap(scanerror.FileNotFound, err, "File not found: %s", path)
	}
	if fi.IsDir() {
		return scanerror.New(scanerror.FileNotFound, "File not found: %s is a directory", path)
	}
	return nil
}

// Opts configures the Invoker.
type Opts struct {
	Tool    Tool
	Timeout time.Duration
}

// Invoker runs the audit tool against a manifest.
type Invoker struct {
	o Opts
}

// New creates a new Invoker with the given options.
func New(o Opts) (*Invoker, error) {
	if len(o.Tool.Command) == 0 {
		return nil, errors.New("no tool command")
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Tool.Name == "" {
		o.Tool.Name = o.Tool.Command[0]
	}
	return &Invoker{o: o}, nil
}

// ToolName returns the display name of the configured tool.
func (i *Invoker) ToolName() string { return i.o.Tool.Name }

// Run executes the tool. A non-zero exit code is not an error: audit tools
// use it to signal findings. Errors are always *scanerror.Error.
func (i *Invoker) Run(ctx context.Context, manifest string) (*Result, error) {
	argv := i.o.Tool.Argv(manifest)
	name := i.o.Tool.Name

	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, i.notInstalled(err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.o.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "Running audit tool", "tool", name, "args", strings.Join(argv, " "), "timeout", i.o.Timeout)
	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, scanerror.Wrap(scanerror.Timeout, ctx.Err(), "%s scan timed out after %s", name, i.o.Timeout)
		case errors.Is(err, exec.ErrNotFound):
			return nil, i.notInstalled(err)
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			e := scanerror.Wrap(scanerror.UnexpectedError, err, "Unexpected error running %s: %v", name, err)
			e.Trace = fmt.Sprintf("%#v\n%s", err, debug.Stack())
			return nil, e
		}
	}
	slog.DebugContext(ctx, "Audit tool finished", "tool", name, "exit_code", res.ExitCode, "duration", res.Duration)

	if strings.TrimSpace(res.Stdout) == "" && res.ExitCode != 0 {
		return nil, scanerror.New(scanerror.ToolExecutionFailed,
			"%s exited with code %d and produced no output: %s", name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

func (i *Invoker) notInstalled(err error) error {
	return scanerror.Wrap(scanerror.ToolNotInstalled, err,
		"%s command not found. Please install it: %s", i.o.Tool.Name, i.o.Tool.InstallHint)
}
