package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"assetcdn/internal/assets"
	"assetcdn/internal/config"
	"assetcdn/internal/deps"
	"assetcdn/internal/logging"
	"assetcdn/internal/manifest"
	"assetcdn/internal/optimizer"
	"assetcdn/internal/pipeline"
	"assetcdn/internal/scan"
	"assetcdn/internal/services"
	"assetcdn/internal/staleness"
	"assetcdn/internal/store"
	"assetcdn/internal/transform"
	"assetcdn/internal/upload"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "publish [asset...]",
		Short: "Publish referenced assets to the object store",
		Long: `Publish scans the views directory for CDN(...) references (or takes the
assets given as arguments, with bundles written as a.js,b.js), uploads every
stale asset and writes the manifest when the run succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !cfg.CDN.Production {
				fmt.Fprintln(out, "Production mode is off; assets are served locally and nothing was published")
				return nil
			}
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}

			lock, err := manifest.AcquireLock(manifest.LockPath(cfg.Paths.CacheFile))
			if err != nil {
				return err
			}
			defer lock.Release()

			if !force {
				skip, err := manifest.ShouldSkip(cfg.Paths.CacheFile)
				if err != nil {
					return err
				}
				if skip {
					attrs := append(logging.DecisionAttrs("manifest", "skip", "manifest file present"),
						logging.String("manifest", cfg.Paths.CacheFile))
					logger.Info("manifest present, publish skipped", logging.Args(attrs...)...)
					fmt.Fprintf(out, "Manifest %s exists; skipping publish (use --force to publish anyway)\n", cfg.Paths.CacheFile)
					return nil
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reqs, err := publishRequests(runCtx, cfg, args, logger)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Fprintln(out, "No assets referenced; nothing to publish")
				return nil
			}

			objects, err := newObjectStore(cfg)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			runCtx = services.WithRunID(runCtx, runID)
			runLogger := logging.WithContext(runCtx, logger)
			warnMissingOptimizers(cfg, runLogger)

			started := time.Now()
			runLogger.Info("publish started",
				logging.Int("requests", len(reqs)),
				logging.String("store_driver", cfg.Store.Driver),
			)
			outcomes, runErr := newPipeline(cfg, objects, logger).Run(runCtx, reqs)
			report := manifest.New(runID, time.Now(), outcomes)
			runLogger.Info("publish finished",
				logging.Int("published", report.Summary.Published),
				logging.Int("skipped", report.Summary.Skipped),
				logging.Int("failed", report.Summary.Failed),
				logging.Duration("elapsed", time.Since(started)),
			)

			if runErr == nil && cfg.Paths.CacheFile != "" {
				if err := manifest.Write(cfg.Paths.CacheFile, report); err != nil {
					return err
				}
				runLogger.Info("manifest written", logging.String("manifest", cfg.Paths.CacheFile))
			}

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderOutcomes(report.Outcomes, shouldColorize(out)))
				fmt.Fprintf(out, "Run %s: %d published, %d up to date, %d failed\n",
					runID, report.Summary.Published, report.Summary.Skipped, report.Summary.Failed)
			}
			if runErr != nil {
				return fmt.Errorf("publish aborted: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Publish even when the manifest file exists")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run report as JSON")
	return cmd
}

// publishRequests returns the explicit asset arguments, or the result of
// scanning the views directory.
func publishRequests(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger) ([]assets.Request, error) {
	if len(args) > 0 {
		return parseAssetArgs(args)
	}
	if cfg.Scan.DisableWalk {
		logger.Info("views walk disabled", logging.Args(logging.DecisionAttrs("views_walk", "skip", "scan.disable_walk is set")...)...)
		return nil, nil
	}
	return scan.New(cfg.Scan.Extensions, logger).Dir(ctx, cfg.Paths.ViewsDir)
}

func newObjectStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.StoreDriverLocal {
		return store.NewLocalStore(cfg.Store.LocalDir)
	}
	return store.NewS3Store(store.S3Config{
		Endpoint:  cfg.Store.Endpoint,
		Region:    cfg.Store.Region,
		Bucket:    cfg.Store.Bucket,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		UseSSL:    cfg.Store.UseSSL,
	})
}

func newPipeline(cfg *config.Config, objects store.Store, logger *slog.Logger) *pipeline.Pipeline {
	images := optimizer.New(cfg.Optimizers.OptiPNG, cfg.Optimizers.Jpegtran, logger)
	dispatch := transform.New(transform.Options{
		PublicDir:         cfg.Paths.PublicDir,
		Production:        cfg.CDN.Production,
		ContinueOnFailure: cfg.Publish.ContinueOnFailure,
		DebugDir:          cfg.Paths.DebugDir,
	}, images, logger)
	uploader := upload.New(objects, logger,
		upload.WithRetryMaxAttempts(cfg.Publish.UploadAttempts),
		upload.WithRetryBackoff(cfg.RetryBaseDelay(), cfg.RetryMaxDelay()),
		upload.WithRateLimit(cfg.Publish.UploadsPerSecond),
	)
	return pipeline.New(pipeline.Options{
		Prefix:            cfg.Store.Prefix,
		Concurrency:       cfg.Publish.Concurrency,
		ContinueOnFailure: cfg.Publish.ContinueOnFailure,
	}, assets.NewNamer(cfg.Paths.PublicDir), staleness.New(objects, logger), dispatch, uploader, logger)
}

func warnMissingOptimizers(cfg *config.Config, logger *slog.Logger) {
	for _, status := range deps.Missing(deps.CheckBinaries(deps.OptimizerRequirements(cfg))) {
		logging.WarnWithContext(logger, "image optimizer unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install "+status.Name+" or set optimizers."+status.Name),
			logging.String(logging.FieldImpact, "images of this type fail to publish"),
		)
	}
}

func renderOutcomes(outcomes []pipeline.Outcome, colorize bool) string {
	var raw, gzipped uint64
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		attempts, size := "", ""
		if o.Attempts > 0 {
			attempts = strconv.Itoa(o.Attempts)
		}
		if o.Published {
			size = humanize.Bytes(uint64(o.GzipBytes))
			raw += uint64(o.RawBytes)
			gzipped += uint64(o.GzipBytes)
		}
		status := o.Status()
		if o.Failed() {
			status += " (" + string(o.ErrorKind) + ")"
		}
		rows = append(rows, []string{
			o.Request.String(),
			o.Key,
			colorizeStatus(status, outcomeStatusKind(o), colorize),
			attempts,
			size,
			o.Parent,
		})
	}
	var footer []string
	if gzipped > 0 {
		footer = []string{"", "", "", "total", fmt.Sprintf("%s of %s", humanize.Bytes(gzipped), humanize.Bytes(raw)), ""}
	}
	return renderTable(
		[]column{
			leftColumn("Asset"),
			leftColumn("Key"),
			leftColumn("Status"),
			rightColumn("Attempts"),
			rightColumn("Gzip Size"),
			leftColumn("Referenced By"),
		},
		rows,
		footer,
	)
}

func outcomeStatusKind(o pipeline.Outcome) statusKind {
	switch {
	case o.Failed():
		return statusError
	case o.Degraded:
		return statusWarn
	case o.Published:
		return statusOK
	default:
		return statusInfo
	}
}
