package nmt_runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Command is an external program invocation. A nil Env inherits the
// current environment.
type Command struct {
	Name string
	Args []string
	Env  []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Executor runs external programs; the framework's runner and vocabulary
// builder are only ever reached through one.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecExecutor runs commands as child processes, streaming their output.
type ExecExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *ExecExecutor) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed", c.Name)
	}
	return nil
}
