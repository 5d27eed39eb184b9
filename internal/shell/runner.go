// Package shell runs batches of privileged statements in one interpreter
// session. Statements are written to the interpreter's stdin one per line,
// followed by "exit". The batch succeeds only if the interpreter exits 0.
package shell

import (
	"bytes"
	"errors"
	"io"
	"os/exec"

	hostErrors "github.com/wadbctl/host/internal/errors"
)

// Runner executes statement batches.
type Runner struct {
	// execCommand allows mocking exec.Command in tests.
	execCommand func(name string, arg ...string) *exec.Cmd
}

// NewRunner creates a Runner that starts real interpreters.
func NewRunner() *Runner {
	return &Runner{execCommand: exec.Command}
}

// RunBatch starts shell and feeds it statements. A started batch always runs
// to completion; it is not tied to a context because interrupting it
// half-way would leave the daemon stopped.
//
// Errors:
//   - shell.start_failed: the interpreter could not be started
//   - shell.write_failed: a statement did not reach the interpreter
//   - shell.exit_status: the interpreter exited non-zero
func (r *Runner) RunBatch(shell string, statements []string) error {
	cmd := r.execCommand(shell)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return hostErrors.ShellStartFailed(shell, err)
	}
	if err := cmd.Start(); err != nil {
		return hostErrors.ShellStartFailed(shell, err)
	}

	writeErr := writeStatements(stdin, statements)
	_ = stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil {
		return writeErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
				waitErr = errors.New(string(msg))
			}
			return hostErrors.ShellExitStatus(exitErr.ExitCode(), waitErr)
		}
		return hostErrors.ShellExitStatus(-1, waitErr)
	}
	return nil
}

func writeStatements(w io.Writer, statements []string) error {
	for _, s := range statements {
		if _, err := io.WriteString(w, s+"\n"); err != nil {
			return hostErrors.ShellWriteFailed(s, err)
		}
	}
	if _, err := io.WriteString(w, "exit\n"); err != nil {
		return hostErrors.ShellWriteFailed("exit", err)
	}
	return nil
}
