package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/config"
	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/holders"
	"github.com/notifyhub/xnft-notify/internal/provider"
	"github.com/notifyhub/xnft-notify/internal/repository"
	"github.com/notifyhub/xnft-notify/internal/worker"
)

// Hooks carries the metric callbacks injected by main. All are optional.
type Hooks struct {
	OnHolders  func(n int)
	OnBatch    func(worker.BatchStats)
	OnDispatch func(recipients int, out domain.DispatchOutcome)
}

// Orchestrator runs the holder → resolve → cache → notify pipeline.
//
// Live runs move through idle, scanning, resolving, caching, notifying and
// done; replays through idle, loading_replay_list, notifying and done. Only
// a failed scan, an unreadable replay list or missing lookup configuration
// end a run in the failed state. Lookup and cache failures only shrink the
// set of recipients, and notifying is skipped when that set is empty.
type Orchestrator struct {
	cfg        config.Config
	resolver   provider.Resolver
	cache      repository.UserCache
	dispatcher provider.Dispatcher
	logger     *zap.Logger
	hooks      Hooks
}

func NewOrchestrator(
	cfg config.Config,
	resolver provider.Resolver,
	cache repository.UserCache,
	dispatcher provider.Dispatcher,
	logger *zap.Logger,
	hooks Hooks,
) *Orchestrator {
	if hooks.OnHolders == nil {
		hooks.OnHolders = func(int) {}
	}
	if hooks.OnDispatch == nil {
		hooks.OnDispatch = func(int, domain.DispatchOutcome) {}
	}
	return &Orchestrator{
		cfg: cfg, resolver: resolver, cache: cache, dispatcher: dispatcher,
		logger: logger, hooks: hooks,
	}
}

// run holds the per-run state threaded through the pipeline steps.
type run struct {
	ctx    context.Context
	report domain.RunReport
	start  time.Time
	log    *zap.Logger
}

func (o *Orchestrator) begin(ctx context.Context, mode domain.Mode) *run {
	id := uuid.New().String()
	r := &run{
		ctx:    provider.WithCorrelationID(ctx, id),
		report: domain.RunReport{RunID: id, Mode: mode, State: domain.StateIdle},
		start:  time.Now(),
		log:    o.logger.With(zap.String("run_id", id), zap.String("mode", string(mode))),
	}
	r.log.Info("run started")
	return r
}

func (r *run) transition(to domain.RunState) {
	if r.report.State.IsTerminal() {
		r.log.Warn("ignoring transition out of terminal state",
			zap.String("from", string(r.report.State)),
			zap.String("to", string(to)),
		)
		return
	}
	r.log.Debug("state transition",
		zap.String("from", string(r.report.State)),
		zap.String("to", string(to)),
	)
	r.report.State = to
}

func (r *run) fail(err error) (domain.RunReport, error) {
	r.transition(domain.StateFailed)
	r.report.Duration = time.Since(r.start)
	r.log.Error("run aborted", zap.Error(err))
	return r.report, err
}

func (r *run) done() (domain.RunReport, error) {
	r.transition(domain.StateDone)
	r.report.Duration = time.Since(r.start)
	r.log.Info("run finished",
		zap.Int("holders", r.report.Holders),
		zap.Int("resolved", r.report.Resolved),
		zap.Int("unresolved", r.report.Unresolved),
		zap.Bool("sent", r.report.Dispatch.Sent),
		zap.Duration("duration", r.report.Duration),
	)
	return r.report, nil
}

// RunCollection resolves every holder of src in batches, appends the
// resolved ids to the cache and notifies them.
func (o *Orchestrator) RunCollection(ctx context.Context, src holders.Source, opts worker.BatchOptions) (domain.RunReport, error) {
	r := o.begin(ctx, domain.ModeCollection)

	if err := o.cfg.ValidateLookup(); err != nil {
		return r.fail(err)
	}
	if opts.Size < 1 {
		return r.fail(fmt.Errorf("%w: got %d", domain.ErrInvalidBatchSize, opts.Size))
	}

	list, err := o.scan(r, src)
	if err != nil {
		return r.fail(err)
	}

	resolved, err := o.resolve(r, list, opts)
	if err != nil {
		return r.fail(err)
	}

	r.transition(domain.StateCaching)
	if err := o.cache.Append(r.ctx, resolved); err != nil {
		r.log.Error("error updating user cache", zap.Error(err))
	}

	o.notify(r, resolved)
	return r.done()
}

// RunApp is a single unbatched pass over a live scan: every holder is
// resolved at once, nothing is cached.
func (o *Orchestrator) RunApp(ctx context.Context, src holders.Source) (domain.RunReport, error) {
	r := o.begin(ctx, domain.ModeApp)

	if err := o.cfg.ValidateLookup(); err != nil {
		return r.fail(err)
	}

	list, err := o.scan(r, src)
	if err != nil {
		return r.fail(err)
	}

	resolved, err := o.resolve(r, list, worker.BatchOptions{Size: max(len(list), 1)})
	if err != nil {
		return r.fail(err)
	}

	o.notify(r, resolved)
	return r.done()
}

// Replay sends the notification to the ids stored at path, skipping
// resolution entirely. path must hold a JSON array of strings.
func (o *Orchestrator) Replay(ctx context.Context, path string) (domain.RunReport, error) {
	r := o.begin(ctx, domain.ModeReplay)

	r.transition(domain.StateLoadingReplayList)
	ids, err := repository.ReadUserIDs(path)
	if err != nil {
		return r.fail(fmt.Errorf("load replay list: %w", err))
	}
	r.report.Resolved = len(ids)
	r.log.Info("replay list loaded", zap.String("path", path), zap.Int("user_ids", len(ids)))

	o.notify(r, ids)
	return r.done()
}

func (o *Orchestrator) scan(r *run, src holders.Source) ([]domain.HolderID, error) {
	r.transition(domain.StateScanning)
	list, err := src.Holders(r.ctx)
	if err != nil {
		return nil, fmt.Errorf("scan holders: %w", err)
	}
	r.report.Holders = len(list)
	o.hooks.OnHolders(len(list))
	r.log.Info("holders loaded", zap.Int("holders", len(list)))
	return list, nil
}

func (o *Orchestrator) resolve(r *run, list []domain.HolderID, opts worker.BatchOptions) ([]domain.UserID, error) {
	r.transition(domain.StateResolving)
	r.log.Info("resolving holders",
		zap.Int("holders", len(list)),
		zap.Int("batch_size", opts.Size),
		zap.Int("batches", worker.BatchCount(len(list), opts.Size)),
		zap.Duration("delay", opts.Delay),
	)

	onBatch := opts.OnBatch
	opts.OnBatch = func(s worker.BatchStats) {
		r.report.Batches++
		r.log.Info("batch settled",
			zap.Int("batch", s.Index),
			zap.Int("size", s.Size),
			zap.Int("resolved", s.Resolved),
			zap.Duration("elapsed", s.Elapsed),
		)
		if onBatch != nil {
			onBatch(s)
		}
		if o.hooks.OnBatch != nil {
			o.hooks.OnBatch(s)
		}
	}

	results, err := worker.RunBatches(r.ctx, list, opts, o.resolver.Resolve)
	if err != nil {
		return nil, fmt.Errorf("resolve holders: %w", err)
	}

	resolved := worker.Values(results)
	r.report.Resolved = len(resolved)
	r.report.Unresolved = len(results) - len(resolved)
	return resolved, nil
}

func (o *Orchestrator) notify(r *run, ids []domain.UserID) {
	r.report.Recipients = ids
	if len(ids) == 0 {
		r.log.Info("no user ids to notify, skipping push notification")
		r.report.Dispatch = domain.DispatchOutcome{Skipped: true}
		return
	}

	r.transition(domain.StateNotifying)
	out := o.dispatcher.Send(r.ctx, domain.Payload{
		Title:      o.cfg.Title,
		Body:       o.cfg.Message,
		Recipients: ids,
	})
	r.report.Dispatch = out
	o.hooks.OnDispatch(len(ids), out)
}
