package actions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"showsweep/internal/logging"
	"showsweep/internal/services"
	"showsweep/internal/sources"
	"showsweep/internal/sources/plex"
	"showsweep/internal/store"
)

// Library performs structural operations on the media server.
type Library interface {
	DeleteShow(ctx context.Context, key string) error
	KeepFirstSeason(ctx context.Context, key string) (plex.TrimResult, error)
	KeepFirstEpisode(ctx context.Context, key string) (plex.TrimResult, error)
}

// Monitor stops the monitoring service from tracking a series.
type Monitor interface {
	StopTracking(ctx context.Context, tvdbID string) error
}

// Recorder is the durable action log and status projection.
type Recorder interface {
	GetStatus(ctx context.Context, key string) (*store.ItemStatus, error)
	CrossRef(ctx context.Context, key string) (string, error)
	RecordAction(ctx context.Context, rec store.ActionRecord) (store.ActionRecord, error)
}

// Request asks the coordinator to apply one disposition.
type Request struct {
	RunID       string
	Item        sources.Item
	CrossRefID  string
	Disposition Disposition
	DryRun      bool
}

// Step is one sub-step of an applied disposition.
type Step struct {
	Name    string
	Skipped bool
	Err     error
}

// Result describes what happened to one series.
type Result struct {
	Item        sources.Item
	Disposition Disposition
	Outcome     store.Outcome
	Steps       []Step
	Record      store.ActionRecord
	// Refused is set when an action was already recorded for the item in
	// the same run; nothing was attempted.
	Refused bool
	// Err is tagged services.ErrPartialAction when any sub-step failed.
	Err error
}

// Coordinator applies dispositions and records every attempt.
type Coordinator struct {
	library  Library
	monitor  Monitor
	recorder Recorder
	logger   *slog.Logger
}

// NewCoordinator wires the coordinator. monitor may be nil when no
// monitoring service is configured.
func NewCoordinator(library Library, monitor Monitor, recorder Recorder, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		library:  library,
		monitor:  monitor,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "actions"),
	}
}

// Apply runs req. The returned error is non-nil only when the store fails;
// external failures are reported through Result.Err and Result.Outcome.
func (c *Coordinator) Apply(ctx context.Context, req Request) (Result, error) {
	item := req.Item
	result := Result{Item: item, Disposition: req.Disposition}
	logger := c.logger.With(
		logging.String(logging.FieldItemKey, item.Key),
		logging.String(logging.FieldDisposition, string(req.Disposition)),
	)

	status, err := c.recorder.GetStatus(ctx, item.Key)
	if err != nil {
		return result, err
	}
	if req.RunID != "" && status != nil && status.Acted() && status.LastRunID == req.RunID {
		result.Refused = true
		logging.WarnWithContext(logger, "action already recorded this run",
			"action_refused",
			logging.String("previous_action", status.LastAction),
			logging.String(logging.FieldImpact, "second action skipped"),
			logging.String(logging.FieldErrorHint, "start a new run to act on this series again"),
		)
		return result, nil
	}

	if req.DryRun {
		result.Outcome = store.OutcomeDryRun
		logger.Info("dry run; no action taken", logging.String("title", item.Title))
		return result, nil
	}

	if step, ok := c.structural(ctx, req); ok {
		result.Steps = append(result.Steps, step)
	}
	if req.Disposition.Destructive() {
		result.Steps = append(result.Steps, c.stopTracking(ctx, req))
	}
	for _, step := range result.Steps {
		switch {
		case step.Err != nil:
			logging.WarnWithContext(logger, "action step failed",
				"action_step_failed",
				logging.String("step", step.Name),
				logging.Error(step.Err),
				logging.String(logging.FieldImpact, "step not retried; other steps unaffected"),
				logging.String(logging.FieldErrorHint, "finish the step manually or rerun after fixing the service"),
			)
		case step.Skipped:
			logger.Info("action step skipped", logging.String("step", step.Name))
		default:
			logger.Info("action step complete", logging.String("step", step.Name))
		}
	}

	result.Outcome, result.Err = summarize(result.Steps)
	rec, err := c.recorder.RecordAction(ctx, store.ActionRecord{
		ItemKey: item.Key,
		Title:   item.Title,
		Year:    item.Year,
		Action:  string(req.Disposition),
		RunID:   req.RunID,
		Outcome: result.Outcome,
		Detail:  detail(result.Steps),
	})
	if err != nil {
		return result, err
	}
	result.Record = rec
	logger.Info("action recorded",
		logging.String("title", item.Title),
		logging.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

func (c *Coordinator) structural(ctx context.Context, req Request) (Step, bool) {
	key := req.Item.Key
	switch req.Disposition {
	case Delete:
		return Step{Name: "delete series", Err: c.library.DeleteShow(ctx, key)}, true
	case KeepFirstSeason:
		_, err := c.library.KeepFirstSeason(ctx, key)
		return Step{Name: "keep first season", Err: err}, true
	case KeepFirstEpisode:
		_, err := c.library.KeepFirstEpisode(ctx, key)
		return Step{Name: "keep first episode", Err: err}, true
	default:
		return Step{}, false
	}
}

func (c *Coordinator) stopTracking(ctx context.Context, req Request) Step {
	step := Step{Name: "unmonitor"}
	if c.monitor == nil {
		step.Skipped = true
		return step
	}
	tvdbID := strings.TrimSpace(req.CrossRefID)
	if tvdbID == "" {
		stored, err := c.recorder.CrossRef(ctx, req.Item.Key)
		if err != nil {
			step.Err = err
			return step
		}
		tvdbID = stored
	}
	if tvdbID == "" {
		tvdbID = sources.LegacyCrossRef(req.Item.GUID)
	}
	if tvdbID == "" {
		step.Err = services.Wrap(services.ErrNotFound, "actions", "unmonitor", "no tvdb id known for "+req.Item.Key, nil)
		return step
	}
	step.Err = c.monitor.StopTracking(ctx, tvdbID)
	return step
}

func summarize(steps []Step) (store.Outcome, error) {
	attempted, failed := 0, 0
	var errs []error
	for _, step := range steps {
		if step.Skipped {
			continue
		}
		attempted++
		if step.Err != nil {
			failed++
			errs = append(errs, step.Err)
		}
	}
	switch {
	case failed == 0:
		return store.OutcomeOK, nil
	case failed == attempted:
		return store.OutcomeFailed, services.Wrap(services.ErrPartialAction, "actions", "apply", "every step failed", errors.Join(errs...))
	default:
		return store.OutcomePartial, services.Wrap(services.ErrPartialAction, "actions", "apply", "", errors.Join(errs...))
	}
}

func detail(steps []Step) string {
	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		switch {
		case step.Err != nil:
			parts = append(parts, step.Name+": "+step.Err.Error())
		case step.Skipped:
			parts = append(parts, step.Name+": skipped")
		}
	}
	return strings.Join(parts, "; ")
}
