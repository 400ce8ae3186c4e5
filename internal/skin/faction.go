// Package skin re-skins the host's faction flags.
//
// The engine has four parts:
//   - [SlotMapper] works out which material slot belongs to which faction and
//     which slot an instance should display
//   - [Loader] resolves a faction's image from a URL (through the disk [Cache])
//     or a local path
//   - [PaletteManager] owns the one derived material per faction
//   - [Engine] ties them together, runs one cancelable load per faction and
//     applies the palette to every live instance
package skin

import (
	"fmt"
	"image/color"
	"strings"
)

// Faction is one of the fixed visual categories that can be re-skinned.
// The numeric values match the host's own faction ordinals.
type Faction int

const (
	Sorcerer Faction = iota
	Warlock
	Neutral
)

const factionCount = 3

// Factions lists every faction in ordinal order.
var Factions = [factionCount]Faction{Sorcerer, Warlock, Neutral}

var factionNames = [factionCount]string{"Sorcerer", "Warlock", "Neutral"}

// Substrings that identify a faction's material by name. Compared against
// lowercased names.
var factionKeywords = [factionCount][]string{
	Sorcerer: {"sorcerer", "team0", "teama"},
	Warlock:  {"warlock", "team1", "teamb"},
	Neutral:  {"neutral", "blank"},
}

var defaultColors = [factionCount]color.NRGBA{
	Sorcerer: {R: 0x4B, G: 0x4A, B: 0x6A, A: 0xFF},
	Warlock:  {R: 0x2A, G: 0x1E, B: 0x28, A: 0xFF},
	Neutral:  {R: 0xD6, G: 0xD6, B: 0xD6, A: 0xFF},
}

func (f Faction) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Faction(%d)", int(f))
	}

	return factionNames[f]
}

// Valid reports whether f is one of [Factions].
func (f Faction) Valid() bool {
	return f >= 0 && f < factionCount
}

// DefaultColor is the flat color used when nothing else is configured.
func (f Faction) DefaultColor() color.NRGBA {
	return defaultColors[f]
}

// ParseFaction parses a faction name, case-insensitively.
func ParseFaction(s string) (Faction, error) {
	for _, f := range Factions {
		if strings.EqualFold(s, factionNames[f]) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFaction, s)
}

// matchesKeyword reports whether name carries one of f's keywords.
func (f Faction) matchesKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range factionKeywords[f] {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// factionByKeyword returns the first faction, in ordinal order, whose
// keywords appear in name.
func factionByKeyword(name string) (Faction, bool) {
	for _, f := range Factions {
		if f.matchesKeyword(name) {
			return f, true
		}
	}

	return 0, false
}
