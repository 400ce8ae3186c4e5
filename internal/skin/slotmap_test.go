package skin_test

import (
	"testing"

	"github.com/calvinalkan/flagskin/internal/host"
	"github.com/calvinalkan/flagskin/internal/host/memhost"
	"github.com/calvinalkan/flagskin/internal/skin"
)

func slots(t *testing.T, m *skin.SlotMapper) [3]int {
	t.Helper()

	var out [3]int

	for _, f := range skin.Factions {
		i, ok := m.Map().Slot(f)
		if !ok {
			t.Fatalf("slot for %s not assigned", f)
		}

		out[f] = i
	}

	return out
}

func Test_SlotMapper_Detect_Uses_Keywords_When_Names_Carry_Them(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)

	if !m.Detect(mats("Flag_Blank", "Flag_Team0", "Flag_Warlock")) {
		t.Fatal("Detect=false, want true on first call")
	}

	got := slots(t, m)
	want := [3]int{skin.Sorcerer: 1, skin.Warlock: 2, skin.Neutral: 0}

	if got != want {
		t.Fatalf("slots=%v, want %v", got, want)
	}
}

func Test_SlotMapper_Detect_Falls_Back_To_Positions_When_No_Keywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mats []host.Material
		want [3]int
	}{
		{name: "three entries", mats: mats("A", "B", "C"), want: [3]int{0, 1, 2}},
		{name: "four entries", mats: mats("A", "B", "C", "D"), want: [3]int{0, 1, 2}},
		{name: "two entries", mats: mats("A", "B"), want: [3]int{0, 1, 0}},
		{name: "one entry", mats: mats("A"), want: [3]int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
			m.Detect(tt.mats)

			if got := slots(t, m); got != tt.want {
				t.Fatalf("slots=%v, want %v", got, tt.want)
			}
		})
	}
}

func Test_SlotMapper_Detect_Fills_Missing_Factions_Positionally_When_Keywords_Partial(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	m.Detect(mats("Cloth", "Flag_Neutral", "Other"))

	got := slots(t, m)
	want := [3]int{skin.Sorcerer: 0, skin.Warlock: 1, skin.Neutral: 1}

	if got != want {
		t.Fatalf("slots=%v, want %v", got, want)
	}
}

func Test_SlotMapper_Detect_Runs_Once_When_Called_Again(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	m.Detect(mats("A", "B", "C"))

	if m.Detect(mats("Flag_Warlock", "Flag_Sorcerer", "Flag_Neutral")) {
		t.Fatal("second Detect=true, want false")
	}

	if got, want := slots(t, m), [3]int{0, 1, 2}; got != want {
		t.Fatalf("slots=%v, want %v (unchanged)", got, want)
	}
}

func Test_SlotMapper_Detect_Ignores_Empty_Array(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)

	if m.Detect(nil) {
		t.Fatal("Detect(nil)=true, want false")
	}

	if _, ok := m.Map().Slot(skin.Sorcerer); ok {
		t.Fatal("slot assigned after empty detection")
	}
}

func Test_SlotMapper_Observe_Learns_Discriminant_When_Host_Material_Displayed(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	arr := mats("Red", "Blue", "White")
	m.Detect(arr)

	ev := skin.Evidence{Materials: arr, Displayed: arr[1], Discriminant: 0, HasDiscriminant: true}

	if !m.Observe(ev) {
		t.Fatal("Observe=false, want true")
	}

	if i, ok := m.Map().Observed(0); !ok || i != 1 {
		t.Fatalf("Observed(0)=(%d, %t), want (1, true)", i, ok)
	}

	i, rule, ok := m.Active(skin.Evidence{Materials: arr, Discriminant: 0, HasDiscriminant: true})
	if !ok || i != 1 || rule != "observed" {
		t.Fatalf("Active=(%d, %q, %t), want (1, observed, true)", i, rule, ok)
	}
}

func Test_SlotMapper_Observe_Is_Stable_When_Discriminant_Seen_Again(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	arr := mats("Red", "Blue", "White")

	m.Observe(skin.Evidence{Materials: arr, Displayed: arr[1], Discriminant: 4, HasDiscriminant: true})

	if m.Observe(skin.Evidence{Materials: arr, Displayed: arr[2], Discriminant: 4, HasDiscriminant: true}) {
		t.Fatal("second Observe=true, want false")
	}

	if i, _ := m.Map().Observed(4); i != 1 {
		t.Fatalf("Observed(4)=%d, want 1", i)
	}
}

func Test_SlotMapper_Observe_Skips_When_Evidence_Unusable(t *testing.T) {
	t.Parallel()

	arr := mats("Red", "Blue", "White")
	owned := memhost.NewMaterial(skin.MaterialMarker + "Color_Sorcerer")

	tests := []struct {
		name string
		ev   skin.Evidence
	}{
		{name: "no discriminant", ev: skin.Evidence{Materials: arr, Displayed: arr[0]}},
		{name: "nothing displayed", ev: skin.Evidence{Materials: arr, HasDiscriminant: true}},
		{name: "self-owned displayed", ev: skin.Evidence{
			Materials: append(append([]host.Material(nil), arr...), owned), Displayed: owned, HasDiscriminant: true,
		}},
		{name: "displayed not in array", ev: skin.Evidence{
			Materials: arr, Displayed: memhost.NewMaterial("Stranger"), HasDiscriminant: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
			if m.Observe(tt.ev) {
				t.Fatal("Observe=true, want false")
			}
		})
	}
}

func Test_SlotMapper_Observe_Corrects_Positional_Slot_When_Name_Names_Faction(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	m.Detect(mats("X", "Y", "Z"))

	arr := mats("P", "Q", "Banner_Warlock")
	m.Observe(skin.Evidence{Materials: arr, Displayed: arr[2], Discriminant: 1, HasDiscriminant: true})

	if i, _ := m.Map().Slot(skin.Warlock); i != 2 {
		t.Fatalf("Warlock slot=%d, want 2", i)
	}

	// An observed slot is not corrected again.
	other := mats("Banner_Warlock", "Q", "R")
	m.Observe(skin.Evidence{Materials: other, Displayed: other[0], Discriminant: 7, HasDiscriminant: true})

	if i, _ := m.Map().Slot(skin.Warlock); i != 2 {
		t.Fatalf("Warlock slot=%d after second observation, want 2", i)
	}
}

func Test_SlotMapper_Observe_Keeps_Keyword_Slot_When_Observation_Disagrees(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	m.Detect(mats("Flag_Sorcerer", "Flag_Warlock", "Flag_Neutral"))

	arr := mats("Flag_Warlock_Alt", "B", "C")
	m.Observe(skin.Evidence{Materials: arr, Displayed: arr[0], Discriminant: 1, HasDiscriminant: true})

	if i, _ := m.Map().Slot(skin.Warlock); i != 1 {
		t.Fatalf("Warlock slot=%d, want keyword slot 1", i)
	}
}

func Test_SlotMapper_Active_Applies_Rules_In_Order(t *testing.T) {
	t.Parallel()

	keyword := mats("Flag_Neutral", "Flag_Warlock", "Flag_Sorcerer")
	positional := mats("A", "B", "C", "D")
	stranger := memhost.NewMaterial("Copy_Of_Warlock")

	tests := []struct {
		name     string
		detect   []host.Material
		ev       skin.Evidence
		wantIdx  int
		wantRule string
	}{
		{
			name:     "neutral discriminant",
			detect:   positional,
			ev:       skin.Evidence{Materials: positional, Discriminant: 99, HasDiscriminant: true},
			wantIdx:  2,
			wantRule: "neutral-discriminant",
		},
		{
			name:     "faction ordinal",
			detect:   keyword,
			ev:       skin.Evidence{Materials: keyword, Discriminant: 0, HasDiscriminant: true},
			wantIdx:  2,
			wantRule: "faction-ordinal",
		},
		{
			name:     "direct index",
			detect:   positional,
			ev:       skin.Evidence{Materials: positional, Discriminant: 3, HasDiscriminant: true},
			wantIdx:  3,
			wantRule: "direct-index",
		},
		{
			name:     "displayed identity",
			detect:   positional,
			ev:       skin.Evidence{Materials: positional, Displayed: positional[1]},
			wantIdx:  1,
			wantRule: "displayed-identity",
		},
		{
			name:     "displayed name",
			detect:   keyword,
			ev:       skin.Evidence{Materials: keyword, Displayed: stranger},
			wantIdx:  1,
			wantRule: "displayed-name",
		},
		{
			name:     "default neutral slot",
			detect:   keyword,
			ev:       skin.Evidence{Materials: keyword},
			wantIdx:  0,
			wantRule: "default",
		},
		{
			name:     "out of range discriminant falls through",
			ev:       skin.Evidence{Materials: mats("A", "B", "C"), Discriminant: 7, HasDiscriminant: true},
			wantIdx:  2,
			wantRule: "default",
		},
		{
			name:     "default without detection on short array",
			ev:       skin.Evidence{Materials: mats("A", "B")},
			wantIdx:  0,
			wantRule: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
			if tt.detect != nil {
				m.Detect(tt.detect)
			}

			i, rule, ok := m.Active(tt.ev)
			if !ok || i != tt.wantIdx || rule != tt.wantRule {
				t.Fatalf("Active=(%d, %q, %t), want (%d, %q, true)", i, rule, ok, tt.wantIdx, tt.wantRule)
			}
		})
	}
}

func Test_SlotMapper_Active_Returns_False_When_Array_Empty(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)

	if _, _, ok := m.Active(skin.Evidence{Discriminant: 0, HasDiscriminant: true}); ok {
		t.Fatal("Active ok=true on empty array")
	}
}

func Test_SlotMapper_Active_Uses_Configured_Neutral_Discriminant(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	m.SetNeutralDiscriminant(-1)

	arr := mats("A", "B", "C")
	m.Detect(arr)

	i, rule, _ := m.Active(skin.Evidence{Materials: arr, Discriminant: -1, HasDiscriminant: true})
	if i != 2 || rule != "neutral-discriminant" {
		t.Fatalf("Active=(%d, %q), want (2, neutral-discriminant)", i, rule)
	}
}

func Test_SlotMapper_Reset_Starts_New_Generation(t *testing.T) {
	t.Parallel()

	m := skin.NewSlotMapper(skin.DefaultNeutralDiscriminant, nil)
	arr := mats("A", "B", "C")
	m.Detect(arr)
	m.Observe(skin.Evidence{Materials: arr, Displayed: arr[0], Discriminant: 5, HasDiscriminant: true})

	m.Reset()

	if m.Generation() != 2 {
		t.Fatalf("Generation=%d, want 2", m.Generation())
	}

	if _, ok := m.Map().Slot(skin.Neutral); ok {
		t.Fatal("slot survived reset")
	}

	if _, ok := m.Map().Observed(5); ok {
		t.Fatal("observation survived reset")
	}

	if !m.Detect(mats("Flag_Warlock", "B")) {
		t.Fatal("Detect after reset=false, want true")
	}
}
