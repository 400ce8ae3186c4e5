package skin

import (
	"log/slog"

	"github.com/calvinalkan/flagskin/internal/host"
)

// DefaultNeutralDiscriminant is the discriminant value the host uses for
// flags that belong to no faction.
const DefaultNeutralDiscriminant = 99

// slotSource records how a faction's static slot was determined.
type slotSource uint8

const (
	slotUnset slotSource = iota
	// slotPositional is a guess from the array layout. It may be upgraded
	// once by an observation.
	slotPositional
	slotKeyword
	slotObserved
)

func (s slotSource) String() string {
	switch s {
	case slotPositional:
		return "positional"
	case slotKeyword:
		return "keyword"
	case slotObserved:
		return "observed"
	default:
		return "unset"
	}
}

// SlotMap is what the mapper has learned in the current generation.
type SlotMap struct {
	slots   [factionCount]int
	sources [factionCount]slotSource

	// observed maps a discriminant value to the slot its instances displayed.
	observed map[int]int

	neutralDiscriminant int
}

func newSlotMap(neutralDiscriminant int) SlotMap {
	return SlotMap{
		observed:            make(map[int]int),
		neutralDiscriminant: neutralDiscriminant,
	}
}

// Slot returns f's static slot.
func (m *SlotMap) Slot(f Faction) (int, bool) {
	if !f.Valid() || m.sources[f] == slotUnset {
		return -1, false
	}

	return m.slots[f], true
}

// Observed returns the slot learned for a discriminant value.
func (m *SlotMap) Observed(discriminant int) (int, bool) {
	i, ok := m.observed[discriminant]

	return i, ok
}

func (m *SlotMap) detected() bool {
	return m.sources[Sorcerer] != slotUnset
}

// Evidence is what an apply pass knows about one instance.
type Evidence struct {
	// Materials is the instance's material array as it was before the pass
	// wrote the palette into it.
	Materials []host.Material

	// Displayed is the renderer's current material, or nil.
	Displayed host.Material

	Discriminant    int
	HasDiscriminant bool
}

func (ev Evidence) indexOf(m host.Material) int {
	if m == nil {
		return -1
	}

	for i, candidate := range ev.Materials {
		if candidate == m {
			return i
		}
	}

	return -1
}

// slotRule proposes an active slot for an instance.
type slotRule func(ev Evidence, m *SlotMap) (int, bool)

// activeSlotRules are tried in order; the first in-range proposal wins.
var activeSlotRules = []struct {
	name string
	rule slotRule
}{
	{"observed", ruleObserved},
	{"neutral-discriminant", ruleNeutralDiscriminant},
	{"faction-ordinal", ruleFactionOrdinal},
	{"direct-index", ruleDirectIndex},
	{"displayed-identity", ruleDisplayedIdentity},
	{"displayed-name", ruleDisplayedName},
	{"default", ruleDefault},
}

func ruleObserved(ev Evidence, m *SlotMap) (int, bool) {
	if !ev.HasDiscriminant {
		return -1, false
	}

	return m.Observed(ev.Discriminant)
}

func ruleNeutralDiscriminant(ev Evidence, m *SlotMap) (int, bool) {
	if !ev.HasDiscriminant || ev.Discriminant != m.neutralDiscriminant {
		return -1, false
	}

	return m.Slot(Neutral)
}

func ruleFactionOrdinal(ev Evidence, m *SlotMap) (int, bool) {
	if !ev.HasDiscriminant {
		return -1, false
	}

	f := Faction(ev.Discriminant)
	if !f.Valid() {
		return -1, false
	}

	return m.Slot(f)
}

func ruleDirectIndex(ev Evidence, _ *SlotMap) (int, bool) {
	if !ev.HasDiscriminant {
		return -1, false
	}

	return ev.Discriminant, true
}

func ruleDisplayedIdentity(ev Evidence, _ *SlotMap) (int, bool) {
	i := ev.indexOf(ev.Displayed)

	return i, i >= 0
}

func ruleDisplayedName(ev Evidence, m *SlotMap) (int, bool) {
	if ev.Displayed == nil {
		return -1, false
	}

	f, ok := factionByKeyword(ev.Displayed.Name())
	if !ok {
		return -1, false
	}

	return m.Slot(f)
}

// ruleDefault falls back to the Neutral slot. Without detection that is the
// positional Neutral slot: 2 for arrays of three or more, else 0.
func ruleDefault(ev Evidence, m *SlotMap) (int, bool) {
	if i, ok := m.Slot(Neutral); ok {
		return i, true
	}

	return positionalSlot(Neutral, len(ev.Materials)), true
}

func positionalSlot(f Faction, n int) int {
	if int(f) < n {
		return int(f)
	}

	return 0
}

// SlotMapper maps factions to material slots on host instances.
//
// It is not safe for concurrent use; the [Engine] serializes access.
type SlotMapper struct {
	m          SlotMap
	generation uint64
	log        *slog.Logger
}

// NewSlotMapper returns a mapper with an empty first generation.
// neutralDiscriminant is the value that always selects the Neutral slot.
func NewSlotMapper(neutralDiscriminant int, logger *slog.Logger) *SlotMapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SlotMapper{
		m:          newSlotMap(neutralDiscriminant),
		generation: 1,
		log:        logger,
	}
}

// Map returns the current slot map. The observation table is shared with
// the mapper and must not be modified.
func (s *SlotMapper) Map() *SlotMap {
	return &s.m
}

// Generation counts resets, starting at 1.
func (s *SlotMapper) Generation() uint64 {
	return s.generation
}

// SetNeutralDiscriminant changes the neutral discriminant value. Learned
// slots are kept.
func (s *SlotMapper) SetNeutralDiscriminant(v int) {
	s.m.neutralDiscriminant = v
}

// Reset forgets all slots and observations and starts a new generation.
func (s *SlotMapper) Reset() {
	s.m = newSlotMap(s.m.neutralDiscriminant)
	s.generation++
}

// Detect assigns every faction a static slot from mats, once per generation.
// It reports whether detection ran on this call.
//
// Material names are searched index-ascending for faction keywords; the
// first matching index wins. Factions without a keyword match get their
// positional slot.
func (s *SlotMapper) Detect(mats []host.Material) bool {
	if s.m.detected() || len(mats) == 0 {
		return false
	}

	for _, f := range Factions {
		for i, mat := range mats {
			if mat != nil && f.matchesKeyword(mat.Name()) {
				s.m.slots[f], s.m.sources[f] = i, slotKeyword

				break
			}
		}

		if s.m.sources[f] == slotUnset {
			s.m.slots[f], s.m.sources[f] = positionalSlot(f, len(mats)), slotPositional
		}
	}

	s.log.Debug("detected faction slots",
		"generation", s.generation,
		"materials", materialNames(mats),
		"sorcerer", s.m.slots[Sorcerer], "sorcerer_source", s.m.sources[Sorcerer].String(),
		"warlock", s.m.slots[Warlock], "warlock_source", s.m.sources[Warlock].String(),
		"neutral", s.m.slots[Neutral], "neutral_source", s.m.sources[Neutral].String(),
	)

	return true
}

// Observe learns discriminant -> slot from an instance that displays one of
// its own host materials. It reports whether anything was learned.
//
// Each discriminant is learned once. When the displayed material's name
// names a faction whose slot was only a positional guess, that slot moves to
// the observed index.
func (s *SlotMapper) Observe(ev Evidence) bool {
	if !ev.HasDiscriminant || ev.Displayed == nil || IsSelfOwned(ev.Displayed) {
		return false
	}

	if _, known := s.m.observed[ev.Discriminant]; known {
		return false
	}

	i := ev.indexOf(ev.Displayed)
	if i < 0 {
		return false
	}

	s.m.observed[ev.Discriminant] = i

	s.log.Debug("observed discriminant mapping",
		"discriminant", ev.Discriminant, "index", i, "material", ev.Displayed.Name())

	if f, ok := factionByKeyword(ev.Displayed.Name()); ok && s.m.sources[f] == slotPositional {
		s.m.slots[f], s.m.sources[f] = i, slotObserved
		s.log.Debug("faction slot corrected by observation", "faction", f.String(), "index", i)
	}

	return true
}

// Active picks the slot an instance should display. ok is false only when
// the instance has no materials.
func (s *SlotMapper) Active(ev Evidence) (index int, rule string, ok bool) {
	n := len(ev.Materials)
	if n == 0 {
		return -1, "", false
	}

	for _, r := range activeSlotRules {
		if i, ok := r.rule(ev, &s.m); ok && i >= 0 && i < n {
			return i, r.name, true
		}
	}

	return -1, "", false
}

func materialNames(mats []host.Material) []string {
	names := make([]string, len(mats))
	for i, m := range mats {
		if m == nil {
			names[i] = "<nil>"

			continue
		}

		names[i] = m.Name()
	}

	return names
}
