package streamswap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/plugin"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Engine is the stream swap engine. Every state changing operation runs
// under its stream's exclusive scope, syncs the stream to the current
// instant and commits its result as one store changeset.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time
	fees    payment.FeeCalculator
	locks   *streamLocks

	defaultParams factory.Params
	paramsMu      sync.Mutex

	// Background sync worker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	syncInterval    time.Duration
	syncConcurrency int
	skipMigrate     bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		clock:           time.Now,
		locks:           newStreamLocks(),
		defaultParams:   factory.DefaultParams(),
		stopChan:        make(chan struct{}),
		syncConcurrency: 4,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds how long each plugin hook may run.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithClock replaces the wall clock. Tests use it to drive the schedule.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithFeeCalculator overrides the exit fee split applied at finalization.
func WithFeeCalculator(fc payment.FeeCalculator) Option {
	return func(e *Engine) {
		e.fees = fc
	}
}

// WithDefaultParams sets the parameters seeded on first start.
func WithDefaultParams(p factory.Params) Option {
	return func(e *Engine) {
		e.defaultParams = p
	}
}

// WithSyncInterval enables the background worker that syncs every live
// stream on the given interval. Zero disables it.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.syncInterval = d
	}
}

// WithSyncConcurrency bounds how many streams the worker syncs at once.
func WithSyncConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.syncConcurrency = n
		}
	}
}

// WithoutMigrate makes Start skip store migration. The schema must already
// exist.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Start migrates the store, seeds the protocol parameters when none are
// stored and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	if _, err := e.store.GetParams(ctx); err != nil {
		if !IsNotFound(err) {
			return err
		}
		if err := e.defaultParams.Validate(); err != nil {
			return err
		}
		seed := e.defaultParams
		seed.UpdatedAt = e.now()
		if err := e.store.SaveParams(ctx, &seed); err != nil {
			return err
		}
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	if e.syncInterval > 0 {
		e.wg.Add(1)
		go e.syncWorker(ctx)
	}

	e.logger.Info("streamswap started",
		"sync_interval", e.syncInterval,
		"sync_concurrency", e.syncConcurrency,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

func (e *Engine) now() time.Time { return e.clock().UTC() }

// params returns the stored parameters, falling back to the configured
// defaults before the first Start.
func (e *Engine) params(ctx context.Context) (factory.Params, error) {
	p, err := e.store.GetParams(ctx)
	if err != nil {
		if IsNotFound(err) {
			return e.defaultParams, nil
		}
		return factory.Params{}, err
	}
	return *p, nil
}

// feeCalculator picks the exit fee split: an explicit option first, then a
// registered plugin, then the percentage from the parameters.
func (e *Engine) feeCalculator(p factory.Params) payment.FeeCalculator {
	if e.fees != nil {
		return e.fees
	}
	if fc := e.plugins.FeeCalculator(); fc != nil {
		return fc
	}
	return payment.PercentFee{Rate: p.ExitFeePercent}
}

// ──────────────────────────────────────────────────
// Operation scaffolding
// ──────────────────────────────────────────────────

// Result is what a state changing operation committed.
type Result struct {
	Stream    *stream.Stream       `json:"stream"`
	Position  *position.Position   `json:"position,omitempty"`
	Transfers []*transfer.Transfer `json:"transfers,omitempty"`
}

// op carries one operation's working copies between load and commit.
type op struct {
	ctx    context.Context
	engine *Engine
	now    time.Time
	params factory.Params
	stream *stream.Stream
	tick   stream.Tick
	cs     store.Changeset
}

// run executes fn on a synced copy of the stream under its exclusive scope
// and commits the changeset fn built. Nothing is written when fn fails.
func (e *Engine) run(ctx context.Context, streamID uint64, fn func(o *op) error) (*op, error) {
	release := e.locks.lock(streamID)
	defer release()

	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	params, err := e.params(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	tick, err := s.Sync(now)
	if err != nil {
		return nil, err
	}
	s.Activate(now)

	o := &op{
		ctx:    ctx,
		engine: e,
		now:    now,
		params: params,
		stream: s,
		tick:   tick,
		cs:     store.Changeset{Stream: s},
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	s.Touch(now)

	if err := e.store.Commit(ctx, &o.cs); err != nil {
		return nil, fmt.Errorf("stream %d: commit: %w", streamID, err)
	}

	if !tick.Distributed.IsZero() || !tick.Spent.IsZero() {
		e.plugins.EmitStreamSynced(ctx, s, tick)
	}
	return o, nil
}

// position loads owner's position, checks that sender may act on it and
// syncs it against the operation's stream.
func (o *op) position(owner, sender string) (*position.Position, position.SyncResult, error) {
	p, err := o.engine.store.GetPosition(o.ctx, o.stream.ID, owner)
	if err != nil {
		return nil, position.SyncResult{}, err
	}
	if !p.CanAct(sender) {
		return nil, position.SyncResult{}, fmt.Errorf("%w: %s cannot act for %s", ErrUnauthorized, sender, owner)
	}
	res, err := p.Sync(o.stream)
	if err != nil {
		return nil, position.SyncResult{}, err
	}
	p.Touch(o.now)
	return p, res, nil
}

// pay records a transfer. Zero amounts are skipped.
func (o *op) pay(kind transfer.Kind, recipient, denom string, amount types.Amount) {
	if amount.IsZero() {
		return
	}
	o.cs.Transfers = append(o.cs.Transfers,
		transfer.New(o.stream.ID, kind, recipient, types.NewCoin(denom, amount), o.now))
}

func (o *op) result(p *position.Position) *Result {
	return &Result{Stream: o.stream, Position: p, Transfers: o.cs.Transfers}
}

// ──────────────────────────────────────────────────
// Background sync
// ──────────────────────────────────────────────────

// syncWorker periodically syncs every Waiting or Active stream so queries
// observe a recent index even when no buyer touches a stream.
func (e *Engine) syncWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.SyncAll(ctx); err != nil {
				e.logger.Error("failed to sync streams", "error", err)
			}
		}
	}
}

// SyncAll syncs every Waiting or Active stream, at most syncConcurrency at
// a time.
func (e *Engine) SyncAll(ctx context.Context) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.syncConcurrency)

	var (
		after  uint64
		synced int
	)
	for {
		page, err := e.store.ListStreams(ctx, stream.ListOpts{
			StartAfter: after,
			Statuses:   []stream.Status{stream.StatusWaiting, stream.StatusActive},
			Limit:      MaxLimit,
		})
		if err != nil {
			return errors.Join(err, g.Wait())
		}
		for _, s := range page {
			streamID := s.ID
			synced++
			g.Go(func() error {
				_, err := e.UpdateStream(gctx, streamID)
				return err
			})
		}
		if len(page) < MaxLimit {
			break
		}
		after = page[len(page)-1].ID
	}

	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Debug("streams synced",
		"count", synced,
		"elapsed", time.Since(start),
	)
	return nil
}
