package skin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/calvinalkan/flagskin/internal/host"
)

// Options configures an [Engine].
type Options struct {
	World  host.World
	Loader AssetLoader
	Config Config
	Logger *slog.Logger
}

// pendingLoad is the in-flight load of one faction.
type pendingLoad struct {
	cancel context.CancelFunc
	gen    uint64
}

// Engine owns the palette, the slot map and the per-faction loads, and
// applies the palette to the host's flags.
//
// All mutation of shared state happens under one mutex: load completions,
// apply passes, reverts and resets are serialized.
type Engine struct {
	mu sync.Mutex

	world   host.World
	loader  AssetLoader
	cfg     Config
	log     *slog.Logger
	mapper  *SlotMapper
	palette *PaletteManager

	// originals holds the host material first seen at each slot the engine
	// writes, used by Revert.
	originals map[int]host.Material

	probed bool
	inert  bool
	closed bool

	loads [factionCount]pendingLoad
	gens  [factionCount]uint64
	wg    sync.WaitGroup
}

// New returns an engine. Nothing touches the host until the first call.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		world:     opts.World,
		loader:    opts.Loader,
		cfg:       opts.Config,
		log:       logger,
		mapper:    NewSlotMapper(opts.Config.NeutralDiscriminant, logger),
		palette:   NewPaletteManager(opts.World, logger),
		originals: make(map[int]host.Material),
	}
}

// Init probes the host and finds the base template. It reports whether the
// engine is ready to derive materials. Safe to call repeatedly.
func (e *Engine) Init() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.readyLocked()
}

// Available reports whether the host probe succeeded. It is false before the
// first probe.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.probed && !e.inert
}

// Config returns the engine's current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg
}

// Palette returns a copy of the current palette.
func (e *Engine) Palette() Palette {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.palette.Palette()
}

// Slot returns f's static slot in the current generation.
func (e *Engine) Slot(f Faction) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mapper.Map().Slot(f)
}

// Configure swaps the configuration. Disabling cancels loads and restores
// the host's materials; otherwise every faction is resolved again.
func (e *Engine) Configure(ctx context.Context, cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasEnabled := e.cfg.Enabled
	e.cfg = cfg
	e.mapper.SetNeutralDiscriminant(cfg.NeutralDiscriminant)

	if e.closed {
		return
	}

	if !cfg.Enabled {
		e.cancelLoadsLocked()

		if wasEnabled {
			e.revertLocked()
		}

		return
	}

	e.updateAllLocked(ctx)
}

// UpdateAll starts a load for every faction.
func (e *Engine) UpdateAll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateAllLocked(ctx)
}

// Update starts a load for f, canceling any load of f still in flight. It
// reports whether a load was started.
func (e *Engine) Update(ctx context.Context, f Faction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !f.Valid() || !e.activeLocked() {
		return false
	}

	e.startLoadLocked(ctx, f, e.cfg.Source(f))

	return true
}

// SetFaction replaces f's configured appearance and reloads only f. It
// reports whether a load was started.
func (e *Engine) SetFaction(ctx context.Context, f Faction, fc FactionConfig) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !f.Valid() {
		return false
	}

	*e.cfg.Faction(f) = fc

	if !e.activeLocked() {
		return false
	}

	e.startLoadLocked(ctx, f, e.cfg.Source(f))

	return true
}

// Wait blocks until no load is in flight.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Pending reports whether a load of f is in flight.
func (e *Engine) Pending(f Faction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return f.Valid() && e.loads[f].cancel != nil
}

// Reset cancels loads, restores the host's materials, releases the palette
// and starts a new slot generation. The next call re-discovers everything.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
}

// Shutdown resets the engine and waits for canceled loads to return. The
// engine stays inert afterwards.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.resetLocked()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	e.log.Debug("engine shut down")
}

func (e *Engine) activeLocked() bool {
	return !e.closed && e.cfg.Enabled && e.readyLocked()
}

func (e *Engine) updateAllLocked(ctx context.Context) {
	if !e.activeLocked() {
		return
	}

	for _, f := range Factions {
		e.startLoadLocked(ctx, f, e.cfg.Source(f))
	}
}

func (e *Engine) startLoadLocked(ctx context.Context, f Faction, src Source) {
	if prev := e.loads[f]; prev.cancel != nil {
		prev.cancel()
		e.log.Debug("canceled superseded load", "faction", f.String(), "generation", prev.gen)
	}

	e.gens[f]++
	gen := e.gens[f]

	loadCtx, cancel := context.WithCancel(ctx)
	e.loads[f] = pendingLoad{cancel: cancel, gen: gen}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer cancel()

		img, err := e.loader.Load(loadCtx, f, src)
		e.finishLoad(loadCtx, f, gen, src, img, err)
	}()
}

// finishLoad applies a load result unless the load was superseded or
// canceled in the meantime.
func (e *Engine) finishLoad(ctx context.Context, f Faction, gen uint64, src Source, img *Image, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loads[f].gen != gen || ctx.Err() != nil || e.closed {
		if e.loads[f].gen == gen {
			e.loads[f] = pendingLoad{}
		}

		e.log.Debug("discarding stale load result", "faction", f.String(), "generation", gen)

		return
	}

	e.loads[f] = pendingLoad{}

	if err != nil && !errors.Is(err, ErrNoImage) {
		e.log.Warn("texture load failed, using color", "faction", f.String(), "error", err)
		img = nil
	}

	mat := e.palette.Derive(f, img, src.Color)
	if mat == nil {
		return
	}

	e.palette.Replace(f, mat)

	source := "color " + FormatHexColor(src.Color)
	if img != nil {
		source = img.Source
	}

	e.log.Debug("material updated", "faction", f.String(), "material", mat.Name(), "source", source)

	e.applyLocked()
}

func (e *Engine) cancelLoadsLocked() {
	for i := range e.loads {
		if e.loads[i].cancel != nil {
			e.loads[i].cancel()
			e.loads[i] = pendingLoad{}
		}
	}
}

func (e *Engine) resetLocked() {
	e.cancelLoadsLocked()

	if e.probed && !e.inert {
		e.revertLocked()
	}

	e.palette.Reset()
	e.palette.SetBase(nil)
	e.mapper.Reset()
	e.originals = make(map[int]host.Material)
}

// readyLocked probes the host once and looks for a base template until one
// is found.
func (e *Engine) readyLocked() bool {
	if !e.probeLocked() {
		return false
	}

	if e.palette.Base() != nil {
		return true
	}

	for _, inst := range e.world.Instances() {
		mats := inst.Materials()
		if len(mats) == 0 || mats[0] == nil || IsSelfOwned(mats[0]) {
			continue
		}

		e.palette.SetBase(mats[0])
		e.log.Debug("base template found", "material", mats[0].Name())

		return true
	}

	e.log.Debug("no base template in scene yet")

	return false
}

// probeLocked reports host availability. A failed probe is reported once
// and the engine stays inert for the rest of the run.
func (e *Engine) probeLocked() bool {
	if e.probed {
		return !e.inert
	}

	e.probed = true

	if e.world == nil {
		e.inert = true
		e.log.Warn("host world missing, flag skinning disabled for this run")

		return false
	}

	if err := e.world.Probe(); err != nil {
		e.inert = true
		e.log.Warn("host flag type unavailable, flag skinning disabled for this run", "error", err)

		return false
	}

	return true
}
