package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/apex/log"
)

// CommandResult represents the result of an external command execution
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// CheckCommandAvailable checks if a command is available in PATH
func CheckCommandAvailable(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return nil
}

// ExecuteCommand runs name with the specified arguments and working directory.
// The command is killed when ctx is cancelled.
func ExecuteCommand(ctx context.Context, logger log.Interface, workingDir, name string, args ...string) *CommandResult {
	logger = LoggerOrDiscard(logger)
	logger.WithField("dir", workingDir).Debugf("Executing %s %v", name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Error:  err,
	}

	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
		} else {
			result.ExitCode = -1 // Unknown exit code
		}
	}

	logger.Debugf("%s completed with exit code: %d", name, result.ExitCode)
	return result
}

// Succeeded reports whether the command ran and exited with status 0
func (r *CommandResult) Succeeded() bool {
	return r.Error == nil && r.ExitCode == 0
}

// Err returns a descriptive error for a failed command, including its stderr output
func (r *CommandResult) Err(name string) error {
	if r.Succeeded() {
		return nil
	}
	stderr := bytes.TrimSpace(r.Stderr)
	if len(stderr) > 512 {
		stderr = stderr[len(stderr)-512:]
	}
	if len(stderr) > 0 {
		return fmt.Errorf("%s failed with exit code %d: %w: %s", name, r.ExitCode, r.Error, stderr)
	}
	return fmt.Errorf("%s failed with exit code %d: %w", name, r.ExitCode, r.Error)
}
