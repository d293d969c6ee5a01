package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"showsweep/internal/actions"
	"showsweep/internal/config"
	"showsweep/internal/logging"
	"showsweep/internal/notifications"
	"showsweep/internal/runlock"
	"showsweep/internal/sweep"
)

type sweepFlags struct {
	skipRequests       bool
	skipWatchStats     bool
	skipWatchHistory   bool
	ignoreFirstSeason  bool
	ignoreFirstEpisode bool
	forceRefresh       bool
	skipConfirmation   bool
	dryRun             bool
	diskUsage          bool
	action             string
	jsonOutput         bool
}

// sweepSettings is the config merged with flags; flags only ever switch a
// toggle on.
type sweepSettings struct {
	rules            sweep.Rules
	forceRefresh     bool
	skipConfirmation bool
	dryRun           bool
	diskUsage        bool
	disposition      actions.Disposition
}

func resolveSweepSettings(cfg config.Sweep, flags sweepFlags) (sweepSettings, error) {
	action := cfg.Action
	if strings.TrimSpace(flags.action) != "" {
		action = flags.action
	}
	disposition, err := actions.ParseDisposition(action)
	if err != nil {
		return sweepSettings{}, err
	}
	return sweepSettings{
		rules: sweep.Rules{
			SkipRequests:       cfg.SkipRequests || flags.skipRequests,
			SkipWatchStats:     cfg.SkipWatchStats || flags.skipWatchStats,
			SkipWatchHistory:   cfg.SkipWatchHistory || flags.skipWatchHistory,
			IgnoreFirstSeason:  cfg.IgnoreFirstSeason || flags.ignoreFirstSeason,
			IgnoreFirstEpisode: cfg.IgnoreFirstEpisode || flags.ignoreFirstEpisode,
		},
		forceRefresh:     cfg.ForceRefresh || flags.forceRefresh,
		skipConfirmation: cfg.SkipConfirmation || flags.skipConfirmation,
		dryRun:           cfg.DryRun || flags.dryRun,
		diskUsage:        cfg.DiskUsage || flags.diskUsage,
		disposition:      disposition,
	}, nil
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var flags sweepFlags

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find unwatched series and apply a cleanup action",
		Long: "Enumerates the media server library, rejects series that were requested\n" +
			"recently or have any recorded plays, and applies the chosen action to the rest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := resolveSweepSettings(cfg.Sweep, flags)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runSweep(cmd, cfg, logger, settings, flags.jsonOutput)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.skipRequests, "skip-requests", false, "Skip the recent-request check")
	f.BoolVar(&flags.skipWatchStats, "skip-watch-stats", false, "Skip the history service watch check")
	f.BoolVar(&flags.skipWatchHistory, "skip-watch-history", false, "Skip the media server watch check")
	f.BoolVar(&flags.ignoreFirstSeason, "ignore-first-season", false, "Exclude series that only have their first season")
	f.BoolVar(&flags.ignoreFirstEpisode, "ignore-first-episode", false, "Exclude series that only have one episode")
	f.BoolVar(&flags.forceRefresh, "force-refresh", false, "Ignore cached facts and query every source")
	f.BoolVar(&flags.skipConfirmation, "skip-confirmation", false, "Apply --action to every eligible series without prompting")
	f.StringVar(&flags.action, "action", "", "Action for non-interactive runs: "+strings.Join(config.Actions, ", "))
	f.BoolVar(&flags.dryRun, "dry-run", false, "Classify and report without changing anything")
	f.BoolVar(&flags.diskUsage, "disk-usage", false, "Report the disk space eligible series occupy")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func runSweep(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, settings sweepSettings, jsonOutput bool) error {
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	runID := uuid.NewString()
	started := time.Now()
	runLogger, runLogPath, closeRunLog, err := logging.OpenRunLog(logger, cfg.Paths.LogDir, runID, started)
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is only logged to the main log"),
		)
	}
	defer closeRunLog()
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logging.RunLogPattern,
		Exclude: []string{runLogPath},
	})

	rt, err := openRuntime(cfg, runLogger)
	if err != nil {
		return err
	}
	defer rt.Close()

	deps, coordinator := rt.pipeline(settings.forceRefresh, settings.rules)
	if !settings.diskUsage {
		deps.Sizer = nil
	}
	deps.Applier = coordinator
	deps.Chooser = chooserFor(cmd, settings, runLogger)

	notifier := notifications.NewService(cfg)
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	report, runErr := sweep.Run(runCtx, sweep.Options{
		RunID:     runID,
		Rules:     settings.rules,
		DryRun:    settings.dryRun,
		DiskUsage: settings.diskUsage,
	}, deps)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return runErr
		}
		publish(runCtx, notifier, runLogger, notifications.EventError, notifications.Payload{"context": "sweep", "error": runErr})
		return runErr
	}

	failed := failedActions(report.Acted)
	for _, res := range report.Acted {
		if res.Err != nil {
			publish(runCtx, notifier, runLogger, notifications.EventActionFailed, notifications.Payload{
				"action": string(res.Disposition),
				"title":  res.Item.DisplayTitle(),
				"error":  res.Err,
			})
		}
	}
	publish(runCtx, notifier, runLogger, notifications.EventSweepCompleted, notifications.Payload{
		"scanned":          report.Scanned,
		"eligible":         len(report.Eligible),
		"acted":            len(report.Acted),
		"failed":           failed,
		"reclaimableBytes": report.ReclaimableBytes,
		"duration":         report.Finished.Sub(report.Started),
		"dryRun":           report.DryRun,
	})

	if jsonOutput {
		if err := writeJSON(cmd, newReportJSON(report)); err != nil {
			return err
		}
	} else {
		renderReport(cmd.OutOrStdout(), report, isTerminal(cmd.OutOrStdout()))
		if runLogPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\nRun log: %s\n", runLogPath)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d actions did not complete; see the run log", failed, len(report.Acted))
	}
	return nil
}

// chooserFor prompts only when confirmation is wanted and stdin is a
// terminal. Without a terminal every series is kept.
func chooserFor(cmd *cobra.Command, settings sweepSettings, logger *slog.Logger) sweep.Chooser {
	if settings.skipConfirmation {
		return sweep.FixedChooser(settings.disposition)
	}
	if !isTerminal(cmd.InOrStdin()) {
		logging.WarnWithContext(logger, "stdin is not a terminal; keeping every series", "prompt_unavailable",
			logging.String(logging.FieldImpact, "no series will be changed this run"),
			logging.String(logging.FieldErrorHint, "pass --skip-confirmation with --action for unattended runs"),
		)
		return sweep.FixedChooser(actions.Keep)
	}
	return newPromptChooser(cmd.InOrStdin(), cmd.OutOrStdout())
}

func publish(ctx context.Context, notifier notifications.Service, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run result not pushed"),
			logging.String(logging.FieldErrorHint, "run `showsweep notify test`"),
		)
	}
}
