package optimizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Result is the terminal state of an external process.
type Result struct {
	ExitCode int
	Output   []string
}

// Executor runs an external binary to completion. onLine, when non-nil,
// receives every output line as it is read. A non-zero exit is reported
// through Result; err is reserved for failures to run at all.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) (Result, error)
}

// CommandExecutor runs binaries with os/exec, merging stdout and stderr lines.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		lines   []string
		scanErr error
		once    sync.Once
	)

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			lines = append(lines, line)
			if onLine != nil {
				onLine(line)
			}
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Result{Output: lines}, fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return Result{ExitCode: exitErr.ExitCode(), Output: lines}, nil
		}
		return Result{Output: lines}, fmt.Errorf("wait command: %w", err)
	}
	return Result{Output: lines}, nil
}
