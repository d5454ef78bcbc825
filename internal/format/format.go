// Package format holds the static veto data: the competitive map pool
// and, per match format, the ordered ban/pick sequence with the acting
// slot for each step. Adding a format is a table entry, not a code path.
package format

import "slices"

type Format string

const (
	BO1 Format = "bo1"
	BO3 Format = "bo3"
	BO5 Format = "bo5"
)

type Kind string

const (
	KindBan  Kind = "ban"
	KindPick Kind = "pick"
)

type Side string

const (
	SideCT Side = "CT"
	SideT  Side = "T"
)

// Step is one required action in a veto sequence. Slot is the abstract
// team position (1 or 2) resolved to a real team when the session
// starts. Side marks pick steps where the acting team also chooses a
// starting side.
type Step struct {
	Kind Kind `json:"kind"`
	Slot int  `json:"slot"`
	Side bool `json:"side,omitempty"`
}

var pool = []string{
	"Ancient",
	"Anubis",
	"Dust2",
	"Inferno",
	"Mirage",
	"Nuke",
	"Train",
}

// Every sequence consumes the full seven-map pool.
var sequences = map[Format][]Step{
	BO1: {
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindPick, Slot: 1, Side: true},
	},
	BO3: {
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindPick, Slot: 1, Side: true},
		{Kind: KindPick, Slot: 2, Side: true},
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindPick, Slot: 1, Side: true},
	},
	BO5: {
		{Kind: KindBan, Slot: 1},
		{Kind: KindBan, Slot: 2},
		{Kind: KindPick, Slot: 1, Side: true},
		{Kind: KindPick, Slot: 2, Side: true},
		{Kind: KindPick, Slot: 1, Side: true},
		{Kind: KindPick, Slot: 2, Side: true},
		{Kind: KindPick, Slot: 1, Side: true},
	},
}

// Parse maps a wire string to a Format.
func Parse(s string) (Format, bool) {
	switch Format(s) {
	case BO1, BO3, BO5:
		return Format(s), true
	default:
		return "", false
	}
}

// Sequence returns a copy of the action sequence for f.
func Sequence(f Format) []Step {
	return slices.Clone(sequences[f])
}

// FullPool returns a copy of the map pool.
func FullPool() []string {
	return slices.Clone(pool)
}

// ValidSide reports whether s is one of the two playable sides.
func ValidSide(s Side) bool {
	return s == SideCT || s == SideT
}
