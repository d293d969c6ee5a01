package sweep

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"showsweep/internal/actions"
	"showsweep/internal/logging"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

// Inventory enumerates the series on the media server.
type Inventory interface {
	ListItems(ctx context.Context) ([]sources.Item, error)
}

// Applier applies a disposition to one eligible series.
type Applier interface {
	Apply(ctx context.Context, req actions.Request) (actions.Result, error)
}

// Sizer reports the on-disk size of a series.
type Sizer interface {
	DiskUsage(ctx context.Context, key string) (int64, error)
}

// Options configures one run.
type Options struct {
	// RunID defaults to a fresh UUID.
	RunID     string
	Rules     Rules
	DryRun    bool
	DiskUsage bool
}

// Deps are the collaborators a run uses. Applier may be nil to classify
// only; Chooser defaults to keep.
type Deps struct {
	Inventory Inventory
	Checks    Checks
	Store     CrossRefStore
	Applier   Applier
	Chooser   Chooser
	Sizer     Sizer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Run enumerates the inventory, classifies every item, and applies the
// chosen disposition to each eligible one. A store failure aborts the run
// and is returned with the partial report; every other failure is
// confined to the item it concerns.
func Run(ctx context.Context, opts Options, deps Deps) (Report, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(deps.Logger, "sweep"))
	report := newReport(runID, now(), opts.DryRun)

	logger.Info("sweep started",
		logging.String(logging.FieldEventType, "sweep_start"),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("skip_requests", opts.Rules.SkipRequests),
		logging.Bool("skip_watch_stats", opts.Rules.SkipWatchStats),
		logging.Bool("skip_watch_history", opts.Rules.SkipWatchHistory),
	)

	var items []sources.Item
	if deps.Inventory != nil {
		listed, err := deps.Inventory.ListItems(ctx)
		if err != nil {
			report.InventoryError = err.Error()
			logging.WarnWithContext(logger, "inventory enumeration failed", "inventory_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no series processed this run"),
				logging.String(logging.FieldErrorHint, sources.Hint("plex", err)),
			)
		} else {
			items = listed
		}
	}
	report.Scanned = len(items)

	engine := NewEngine(deps.Checks, deps.Store, opts.Rules, deps.Logger)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return finish(report, now), err
		}
		decision, err := engine.Classify(ctx, item)
		if err != nil {
			if services.IsFatal(err) || errors.Is(err, context.Canceled) {
				logging.ErrorWithContext(logger, "sweep aborted", "sweep_aborted",
					logging.String(logging.FieldItemKey, item.Key),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "run `showsweep db check`"),
				)
				return finish(report, now), err
			}
			report.Errors++
			logging.WarnWithContext(logger, "series skipped after failure", "item_failed",
				logging.String(logging.FieldItemKey, item.Key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "series not classified this run"),
			)
			continue
		}
		report.add(decision)
	}
	sortDecisions(report.Eligible)

	if opts.DiskUsage && deps.Sizer != nil {
		for i := range report.Eligible {
			key := report.Eligible[i].Item.Key
			size, err := deps.Sizer.DiskUsage(ctx, key)
			if err != nil {
				logging.WarnWithContext(logger, "disk usage unavailable", "disk_usage_failed",
					logging.String(logging.FieldItemKey, key),
					logging.Error(err),
					logging.String(logging.FieldImpact, "reclaimable total understated"),
				)
				continue
			}
			report.Eligible[i].Item.SizeBytes = size
			report.ReclaimableBytes += size
		}
	}

	if deps.Applier != nil {
		chooser := deps.Chooser
		if chooser == nil {
			chooser = FixedChooser(actions.Keep)
		}
		for _, decision := range report.Eligible {
			if err := ctx.Err(); err != nil {
				return finish(report, now), err
			}
			disposition, err := chooser.Choose(ctx, decision)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return finish(report, now), err
				}
				logging.WarnWithContext(logger, "no disposition chosen", "choose_failed",
					logging.String(logging.FieldItemKey, decision.Item.Key),
					logging.Error(err),
					logging.String(logging.FieldImpact, "series left untouched"),
				)
				continue
			}
			result, err := deps.Applier.Apply(ctx, actions.Request{
				RunID:       runID,
				Item:        decision.Item,
				CrossRefID:  decision.CrossRefID,
				Disposition: disposition,
				DryRun:      opts.DryRun,
			})
			if err != nil {
				logging.ErrorWithContext(logger, "sweep aborted", "sweep_aborted",
					logging.String(logging.FieldItemKey, decision.Item.Key),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "run `showsweep db check`"),
				)
				return finish(report, now), err
			}
			report.Acted = append(report.Acted, result)
		}
	}

	report = finish(report, now)
	logger.Info("sweep finished",
		logging.String(logging.FieldEventType, "sweep_complete"),
		logging.Int("scanned", report.Scanned),
		logging.Int("rejected", report.RejectedTotal()),
		logging.Int("eligible", len(report.Eligible)),
		logging.Int("acted", len(report.Acted)),
		logging.Bytes("reclaimable", report.ReclaimableBytes),
		logging.Duration("duration", report.Finished.Sub(report.Started)),
	)
	return report, nil
}

func finish(report Report, now func() time.Time) Report {
	report.Finished = now()
	return report
}
