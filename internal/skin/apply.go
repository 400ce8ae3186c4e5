package skin

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/flagskin/internal/host"
)

// dynamicMarker appears in the names of materials the host swaps in for
// unrelated overlays. Instances displaying one are left alone.
const dynamicMarker = "Dynamic"

// Apply writes the palette into every instance's material array and selects
// the displayed slot. It returns how many instances had a material assigned.
func (e *Engine) Apply() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.cfg.Enabled || !e.readyLocked() {
		return 0
	}

	return e.applyLocked()
}

// Revert puts the host's original materials back at the faction slots and
// re-selects the displayed slot. It returns how many instances were updated.
func (e *Engine) Revert() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.probed || e.inert {
		return 0
	}

	return e.revertLocked()
}

func (e *Engine) applyLocked() int {
	instances := e.world.Instances()
	palette := e.palette.Palette()
	applied := 0

	for _, inst := range instances {
		mats := inst.Materials()
		if len(mats) == 0 {
			continue
		}

		r := inst.Renderer()
		if r == nil {
			continue
		}

		current := r.SharedMaterial()
		if current != nil && strings.Contains(current.Name(), dynamicMarker) && !IsSelfOwned(current) {
			continue
		}

		e.mapper.Detect(mats)

		ev := evidenceFor(inst, mats, current)
		e.mapper.Observe(ev)
		e.recordOriginalsLocked(mats)

		for _, f := range Factions {
			slot, ok := e.mapper.Map().Slot(f)
			if !ok || slot >= len(mats) || palette[f] == nil {
				continue
			}

			mats[slot] = palette[f]
		}

		if e.selectLocked(r, mats, ev) {
			applied++
		}
	}

	e.log.Debug("applied palette", "applied", applied, "instances", len(instances))

	return applied
}

func (e *Engine) revertLocked() int {
	if len(e.originals) == 0 {
		return 0
	}

	instances := e.world.Instances()
	reverted := 0

	for _, inst := range instances {
		mats := inst.Materials()
		if len(mats) == 0 {
			continue
		}

		ev := evidenceFor(inst, mats, nil)

		// Only entries still holding one of our materials go back; a slot the
		// host changed since is left alone.
		for slot, orig := range e.originals {
			if slot < len(mats) && mats[slot] != nil && IsSelfOwned(mats[slot]) {
				mats[slot] = orig
			}
		}

		r := inst.Renderer()
		if r == nil {
			continue
		}

		// Select by discriminant only; the displayed material is ours.
		if e.selectLocked(r, mats, ev) {
			reverted++
		}
	}

	e.log.Info("reverted flag materials", "flags", reverted)

	return reverted
}

// selectLocked assigns the active slot's material to r. An unresolvable
// slot or an empty entry keeps the displayed material.
func (e *Engine) selectLocked(r host.Renderer, mats []host.Material, ev Evidence) bool {
	i, rule, ok := e.mapper.Active(ev)
	if !ok || mats[i] == nil {
		return false
	}

	r.SetSharedMaterial(mats[i])

	if e.log.Enabled(context.Background(), slog.LevelDebug) {
		disc := "n/a"
		if ev.HasDiscriminant {
			disc = strconv.Itoa(ev.Discriminant)
		}

		displayed := "none"
		if ev.Displayed != nil {
			displayed = ev.Displayed.Name()
		}

		e.log.Debug("flag material selected",
			"discriminant", disc, "previous", displayed, "materials", len(mats),
			"index", i, "rule", rule, "applied", mats[i].Name())
	}

	return true
}

// recordOriginalsLocked remembers the host material at each faction's static
// slot before the palette is written there. Slots the engine never writes are
// never recorded.
func (e *Engine) recordOriginalsLocked(mats []host.Material) {
	for _, f := range Factions {
		slot, ok := e.mapper.Map().Slot(f)
		if !ok || slot >= len(mats) {
			continue
		}

		if _, seen := e.originals[slot]; seen {
			continue
		}

		if m := mats[slot]; m != nil && !IsSelfOwned(m) {
			e.originals[slot] = m
		}
	}
}

func evidenceFor(inst host.Instance, mats []host.Material, displayed host.Material) Evidence {
	disc, ok := inst.Discriminant()

	return Evidence{
		Materials:       slices.Clone(mats),
		Displayed:       displayed,
		Discriminant:    disc,
		HasDiscriminant: ok,
	}
}
