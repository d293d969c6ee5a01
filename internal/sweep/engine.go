package sweep

import (
	"context"
	"log/slog"
	"strings"

	"showsweep/internal/logging"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

// RequestChecker answers whether a series was requested recently.
type RequestChecker interface {
	IsRecentRequest(ctx context.Context, item sources.Item) (sources.Finding, error)
}

// WatchStatsChecker answers whether the history service recorded plays.
type WatchStatsChecker interface {
	HasWatchStats(ctx context.Context, item sources.Item) (sources.Finding, error)
}

// WatchHistoryChecker answers whether the media server recorded plays.
type WatchHistoryChecker interface {
	HasWatchHistory(ctx context.Context, item sources.Item) (sources.Finding, error)
}

// CrossRefResolver looks up a cross-reference id on demand. It returns ""
// when none can be found.
type CrossRefResolver interface {
	ResolveCrossRef(ctx context.Context, key string) string
}

// CrossRefStore persists cross-reference ids against items.
type CrossRefStore interface {
	CrossRef(ctx context.Context, key string) (string, error)
	SaveCrossRef(ctx context.Context, key, title string, year int, crossRef string) error
}

// Checks bundles the source adapters the guard chain consults. A nil
// checker for an enabled guard answers Unknown.
type Checks struct {
	Requests     RequestChecker
	WatchStats   WatchStatsChecker
	WatchHistory WatchHistoryChecker
	Resolver     CrossRefResolver
}

// Rules toggles guards for a run.
type Rules struct {
	SkipRequests       bool
	SkipWatchStats     bool
	SkipWatchHistory   bool
	IgnoreFirstSeason  bool
	IgnoreFirstEpisode bool
}

// Decision is the classification of one item.
type Decision struct {
	Item           sources.Item
	Classification Classification
	// Guard names the guard that rejected the item; empty when eligible.
	Guard  string
	Reason string
	// CrossRefID is resolved only for eligible items.
	CrossRefID     string
	CrossRefSource string
}

// crossRef carries an id discovered by one step into the next.
type crossRef struct {
	id     string
	source string
}

type guard struct {
	name    string
	onYes   Classification
	yesText string
	check   func(ctx context.Context, item sources.Item) (sources.Finding, error)
}

// Engine runs the guard chain.
type Engine struct {
	rules    Rules
	guards   []guard
	resolver CrossRefResolver
	store    CrossRefStore
	logger   *slog.Logger
}

// NewEngine builds the chain for rules. Disabled guards are left out
// entirely, so their sources are never called.
func NewEngine(checks Checks, store CrossRefStore, rules Rules, logger *slog.Logger) *Engine {
	e := &Engine{
		rules:    rules,
		resolver: checks.Resolver,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "sweep"),
	}
	if !rules.SkipRequests {
		var check func(context.Context, sources.Item) (sources.Finding, error)
		if checks.Requests != nil {
			check = checks.Requests.IsRecentRequest
		}
		e.guards = append(e.guards, guard{name: GuardRecentRequest, onYes: RejectedRecentRequest, yesText: "requested recently", check: check})
	}
	if !rules.SkipWatchStats {
		var check func(context.Context, sources.Item) (sources.Finding, error)
		if checks.WatchStats != nil {
			check = checks.WatchStats.HasWatchStats
		}
		e.guards = append(e.guards, guard{name: GuardWatchStats, onYes: RejectedWatched, yesText: "plays recorded by history service", check: check})
	}
	if !rules.SkipWatchHistory {
		var check func(context.Context, sources.Item) (sources.Finding, error)
		if checks.WatchHistory != nil {
			check = checks.WatchHistory.HasWatchHistory
		}
		e.guards = append(e.guards, guard{name: GuardWatchHistory, onYes: RejectedWatched, yesText: "plays recorded by media server", check: check})
	}
	return e
}

// Classify evaluates item. The error is non-nil only when the store fails.
func (e *Engine) Classify(ctx context.Context, item sources.Item) (Decision, error) {
	ctx = services.WithItemKey(ctx, item.Key)
	logger := logging.WithContext(ctx, e.logger)
	decision := Decision{Item: item}

	if reason, rejected := e.structural(item); rejected {
		return e.reject(logger, decision, RejectedStructural, GuardStructural, reason), nil
	}

	var ref *crossRef
	if id := strings.TrimSpace(item.CrossRefID); id != "" {
		ref = &crossRef{id: id, source: "inventory"}
	}

	for _, g := range e.guards {
		finding := sources.Finding{}
		if g.check != nil {
			var err error
			finding, err = g.check(services.WithSource(ctx, g.name), item)
			if err != nil {
				return decision, err
			}
		}
		if ref == nil && finding.CrossRefID != "" {
			ref = &crossRef{id: finding.CrossRefID, source: g.name}
			if err := e.persist(ctx, item, ref.id); err != nil {
				return decision, err
			}
		}
		switch finding.Verdict {
		case sources.Yes:
			return e.reject(logger, decision, g.onYes, g.name, g.yesText), nil
		case sources.Unknown:
			return e.reject(logger, decision, RejectedUnverified, g.name, "source could not answer"), nil
		}
	}

	ref, err := e.resolve(ctx, item, ref)
	if err != nil {
		return decision, err
	}
	decision.Classification = Eligible
	if ref != nil {
		decision.CrossRefID = ref.id
		decision.CrossRefSource = ref.source
	}
	if err := e.persist(ctx, item, decision.CrossRefID); err != nil {
		return decision, err
	}
	attrs := append(logging.DecisionAttrs("eligibility", string(Eligible), "all enabled guards passed"),
		logging.String("title", item.DisplayTitle()),
		logging.String("cross_ref_id", decision.CrossRefID),
		logging.String("cross_ref_source", decision.CrossRefSource),
	)
	logger.Info("series eligible", logging.Args(attrs...)...)
	if decision.CrossRefID == "" {
		logging.WarnWithContext(logger, "no cross-reference id for eligible series",
			"cross_ref_missing",
			logging.String(logging.FieldImpact, "monitoring service cannot be updated for this series"),
			logging.String(logging.FieldErrorHint, "check the series agent or history service metadata"),
		)
	}
	return decision, nil
}

func (e *Engine) structural(item sources.Item) (string, bool) {
	switch {
	case e.rules.IgnoreFirstEpisode && item.SingleEpisode:
		return "only one episode present", true
	case e.rules.IgnoreFirstSeason && item.SingleSeason:
		return "only the first season present", true
	default:
		return "", false
	}
}

// resolve prefers an id already discovered this run, then the stored id,
// then one lookup against the resolver.
func (e *Engine) resolve(ctx context.Context, item sources.Item, ref *crossRef) (*crossRef, error) {
	if ref != nil {
		return ref, nil
	}
	if e.store != nil {
		stored, err := e.store.CrossRef(ctx, item.Key)
		if err != nil {
			return nil, err
		}
		if stored != "" {
			return &crossRef{id: stored, source: "store"}, nil
		}
	}
	if e.resolver != nil {
		if id := e.resolver.ResolveCrossRef(ctx, item.Key); id != "" {
			return &crossRef{id: id, source: "lookup"}, nil
		}
	}
	return nil, nil
}

func (e *Engine) persist(ctx context.Context, item sources.Item, id string) error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveCrossRef(ctx, item.Key, item.Title, item.Year, id)
}

func (e *Engine) reject(logger *slog.Logger, decision Decision, class Classification, guardName, reason string) Decision {
	decision.Classification = class
	decision.Guard = guardName
	decision.Reason = reason
	attrs := append(logging.DecisionAttrs("eligibility", string(class), reason),
		logging.String(logging.FieldGuard, guardName),
		logging.String("title", decision.Item.DisplayTitle()),
	)
	if class == RejectedUnverified {
		logging.WarnWithContext(logger, "series kept; check unverified", "guard_unverified",
			append(attrs,
				logging.String(logging.FieldImpact, "series treated as not eligible this run"),
				logging.String(logging.FieldErrorHint, "check the source service and rerun"),
			)...,
		)
		return decision
	}
	logger.Debug("series rejected", logging.Args(attrs...)...)
	return decision
}
