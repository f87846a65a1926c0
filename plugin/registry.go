package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// DefaultTimeout bounds how long a single hook may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onStreamCreated   []OnStreamCreated
	onStreamSynced    []OnStreamSynced
	onStreamPaused    []OnStreamPaused
	onStreamResumed   []OnStreamResumed
	onStreamCancelled []OnStreamCancelled
	onStreamFinalized []OnStreamFinalized
	onSubscribed      []OnSubscribed
	onWithdrawn       []OnWithdrawn
	onPositionSynced  []OnPositionSynced
	onOperatorUpdated []OnOperatorUpdated
	onStreamExited    []OnStreamExited
	onCancelledExit   []OnCancelledExit
	onParamsUpdated   []OnParamsUpdated
	feeCalculators    []FeeCalculator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamSynced); ok {
		r.onStreamSynced = append(r.onStreamSynced, v)
	}
	if v, ok := p.(OnStreamPaused); ok {
		r.onStreamPaused = append(r.onStreamPaused, v)
	}
	if v, ok := p.(OnStreamResumed); ok {
		r.onStreamResumed = append(r.onStreamResumed, v)
	}
	if v, ok := p.(OnStreamCancelled); ok {
		r.onStreamCancelled = append(r.onStreamCancelled, v)
	}
	if v, ok := p.(OnStreamFinalized); ok {
		r.onStreamFinalized = append(r.onStreamFinalized, v)
	}
	if v, ok := p.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
	}
	if v, ok := p.(OnPositionSynced); ok {
		r.onPositionSynced = append(r.onPositionSynced, v)
	}
	if v, ok := p.(OnOperatorUpdated); ok {
		r.onOperatorUpdated = append(r.onOperatorUpdated, v)
	}
	if v, ok := p.(OnStreamExited); ok {
		r.onStreamExited = append(r.onStreamExited, v)
	}
	if v, ok := p.(OnCancelledExit); ok {
		r.onCancelledExit = append(r.onCancelledExit, v)
	}
	if v, ok := p.(OnParamsUpdated); ok {
		r.onParamsUpdated = append(r.onParamsUpdated, v)
	}
	if v, ok := p.(FeeCalculator); ok {
		r.feeCalculators = append(r.feeCalculators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnStreamCreated)(nil)).Elem(), "OnStreamCreated")
	checkInterface(reflect.TypeOf((*OnStreamSynced)(nil)).Elem(), "OnStreamSynced")
	checkInterface(reflect.TypeOf((*OnStreamPaused)(nil)).Elem(), "OnStreamPaused")
	checkInterface(reflect.TypeOf((*OnStreamResumed)(nil)).Elem(), "OnStreamResumed")
	checkInterface(reflect.TypeOf((*OnStreamCancelled)(nil)).Elem(), "OnStreamCancelled")
	checkInterface(reflect.TypeOf((*OnStreamFinalized)(nil)).Elem(), "OnStreamFinalized")
	checkInterface(reflect.TypeOf((*OnSubscribed)(nil)).Elem(), "OnSubscribed")
	checkInterface(reflect.TypeOf((*OnWithdrawn)(nil)).Elem(), "OnWithdrawn")
	checkInterface(reflect.TypeOf((*OnPositionSynced)(nil)).Elem(), "OnPositionSynced")
	checkInterface(reflect.TypeOf((*OnOperatorUpdated)(nil)).Elem(), "OnOperatorUpdated")
	checkInterface(reflect.TypeOf((*OnStreamExited)(nil)).Elem(), "OnStreamExited")
	checkInterface(reflect.TypeOf((*OnCancelledExit)(nil)).Elem(), "OnCancelledExit")
	checkInterface(reflect.TypeOf((*OnParamsUpdated)(nil)).Elem(), "OnParamsUpdated")
	checkInterface(reflect.TypeOf((*FeeCalculator)(nil)).Elem(), "FeeCalculator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// FeeCalculator returns the first registered fee calculator, or nil.
func (r *Registry) FeeCalculator() FeeCalculator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.feeCalculators) == 0 {
		return nil
	}
	return r.feeCalculators[0]
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// snapshot copies a cached hook list under the read lock.
func snapshot[T Plugin](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(*list))
	copy(out, *list)
	return out
}

// dispatch runs fn for every plugin, logging failures. Hooks never fail the
// operation that emitted them.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	dispatch(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, s *stream.Stream) {
	dispatch(ctx, r, "OnStreamCreated", snapshot(r, &r.onStreamCreated), func(p OnStreamCreated) error {
		return p.OnStreamCreated(ctx, s)
	})
}

// EmitStreamSynced emits a stream synced event.
func (r *Registry) EmitStreamSynced(ctx context.Context, s *stream.Stream, tick stream.Tick) {
	dispatch(ctx, r, "OnStreamSynced", snapshot(r, &r.onStreamSynced), func(p OnStreamSynced) error {
		return p.OnStreamSynced(ctx, s, tick)
	})
}

// EmitStreamPaused emits a stream paused event.
func (r *Registry) EmitStreamPaused(ctx context.Context, s *stream.Stream) {
	dispatch(ctx, r, "OnStreamPaused", snapshot(r, &r.onStreamPaused), func(p OnStreamPaused) error {
		return p.OnStreamPaused(ctx, s)
	})
}

// EmitStreamResumed emits a stream resumed event.
func (r *Registry) EmitStreamResumed(ctx context.Context, s *stream.Stream) {
	dispatch(ctx, r, "OnStreamResumed", snapshot(r, &r.onStreamResumed), func(p OnStreamResumed) error {
		return p.OnStreamResumed(ctx, s)
	})
}

// EmitStreamCancelled emits a stream cancelled event.
func (r *Registry) EmitStreamCancelled(ctx context.Context, s *stream.Stream, ts []*transfer.Transfer) {
	dispatch(ctx, r, "OnStreamCancelled", snapshot(r, &r.onStreamCancelled), func(p OnStreamCancelled) error {
		return p.OnStreamCancelled(ctx, s, ts)
	})
}

// EmitStreamFinalized emits a stream finalized event.
func (r *Registry) EmitStreamFinalized(ctx context.Context, s *stream.Stream, ts []*transfer.Transfer) {
	dispatch(ctx, r, "OnStreamFinalized", snapshot(r, &r.onStreamFinalized), func(p OnStreamFinalized) error {
		return p.OnStreamFinalized(ctx, s, ts)
	})
}

// EmitSubscribed emits a subscribed event.
func (r *Registry) EmitSubscribed(ctx context.Context, s *stream.Stream, pos *position.Position, amount types.Amount) {
	dispatch(ctx, r, "OnSubscribed", snapshot(r, &r.onSubscribed), func(p OnSubscribed) error {
		return p.OnSubscribed(ctx, s, pos, amount)
	})
}

// EmitWithdrawn emits a withdrawn event.
func (r *Registry) EmitWithdrawn(ctx context.Context, s *stream.Stream, pos *position.Position, amount types.Amount) {
	dispatch(ctx, r, "OnWithdrawn", snapshot(r, &r.onWithdrawn), func(p OnWithdrawn) error {
		return p.OnWithdrawn(ctx, s, pos, amount)
	})
}

// EmitPositionSynced emits a position synced event.
func (r *Registry) EmitPositionSynced(ctx context.Context, pos *position.Position, res position.SyncResult) {
	dispatch(ctx, r, "OnPositionSynced", snapshot(r, &r.onPositionSynced), func(p OnPositionSynced) error {
		return p.OnPositionSynced(ctx, pos, res)
	})
}

// EmitOperatorUpdated emits an operator updated event.
func (r *Registry) EmitOperatorUpdated(ctx context.Context, pos *position.Position) {
	dispatch(ctx, r, "OnOperatorUpdated", snapshot(r, &r.onOperatorUpdated), func(p OnOperatorUpdated) error {
		return p.OnOperatorUpdated(ctx, pos)
	})
}

// EmitStreamExited emits a stream exited event.
func (r *Registry) EmitStreamExited(ctx context.Context, s *stream.Stream, pos *position.Position, ts []*transfer.Transfer) {
	dispatch(ctx, r, "OnStreamExited", snapshot(r, &r.onStreamExited), func(p OnStreamExited) error {
		return p.OnStreamExited(ctx, s, pos, ts)
	})
}

// EmitCancelledExit emits a cancelled exit event.
func (r *Registry) EmitCancelledExit(ctx context.Context, s *stream.Stream, pos *position.Position, ts []*transfer.Transfer) {
	dispatch(ctx, r, "OnCancelledExit", snapshot(r, &r.onCancelledExit), func(p OnCancelledExit) error {
		return p.OnCancelledExit(ctx, s, pos, ts)
	})
}

// EmitParamsUpdated emits a params updated event.
func (r *Registry) EmitParamsUpdated(ctx context.Context, oldParams, newParams *factory.Params) {
	dispatch(ctx, r, "OnParamsUpdated", snapshot(r, &r.onParamsUpdated), func(p OnParamsUpdated) error {
		return p.OnParamsUpdated(ctx, oldParams, newParams)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the distribution pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
