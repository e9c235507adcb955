// Package optimizer runs the external lossless image optimizers (optipng and
// jpegtran) against files in place.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"assetcdn/internal/logging"
	"assetcdn/internal/services"
)

// Optimizer invokes the configured optimizer binaries.
type Optimizer struct {
	exec     Executor
	optipng  string
	jpegtran string
	logger   *slog.Logger
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithExecutor overrides the process executor.
func WithExecutor(exec Executor) Option {
	return func(o *Optimizer) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// New constructs an Optimizer using the given binaries.
func New(optipngBinary, jpegtranBinary string, logger *slog.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		exec:     CommandExecutor{},
		optipng:  defaultString(optipngBinary, "optipng"),
		jpegtran: defaultString(jpegtranBinary, "jpegtran"),
		logger:   logging.NewComponentLogger(logger, "optimizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizePNG runs optipng against path in place.
func (o *Optimizer) OptimizePNG(ctx context.Context, path string) error {
	return o.run(ctx, o.optipng, []string{path})
}

// OptimizeJPEG runs jpegtran against path, rewriting it in place.
func (o *Optimizer) OptimizeJPEG(ctx context.Context, path string) error {
	return o.run(ctx, o.jpegtran, []string{"-copy", "none", "-optimize", "-outfile", path, path})
}

func (o *Optimizer) run(ctx context.Context, binary string, args []string) error {
	logger := logging.WithContext(ctx, o.logger)
	logger.Debug("running optimizer",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	res, err := o.exec.Run(ctx, binary, args, func(line string) {
		logger.Info("optimizer output", logging.String("binary", binary), logging.String("line", line))
	})
	if err != nil {
		return services.Wrap(services.ErrTransform, "optimizer", binary, "run failed", err)
	}
	if res.ExitCode != 0 {
		return services.Wrap(services.ErrTransform, "optimizer", binary,
			fmt.Sprintf("exit status %d: %s", res.ExitCode, strings.Join(tail(res.Output, 3), " | ")), nil)
	}
	logger.Info("optimizer finished", logging.String("binary", binary))
	return nil
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
