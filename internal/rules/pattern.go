// Package rules implements GuanDan card-combination rules: classification of
// a set of cards into a pattern, legality of a play against the last play on
// the table, and end-of-round scoring.
package rules

// Kind is the name of a card combination as it appears on the wire.
type Kind string

const (
	KindInvalid        Kind = "invalid"
	KindSingle         Kind = "single"
	KindPair           Kind = "pair"
	KindTriple         Kind = "triple"
	KindTripleWithPair Kind = "triple_with_pair"
	KindStraight       Kind = "straight"
	KindTriplePair     Kind = "triple_pair"
	KindSteelPlate     Kind = "steel_plate"
	KindBomb4          Kind = "bomb_4"
	KindBomb5          Kind = "bomb_5"
	KindBomb6          Kind = "bomb_6"
	KindBomb7          Kind = "bomb_7"
	KindBomb8          Kind = "bomb_8"
	KindStraightFlush  Kind = "straight_flush"
	KindFourKings      Kind = "four_kings"
)

// PriorityOrdinary is shared by every non-bomb kind; such plays only beat
// plays of the same kind and size.
const PriorityOrdinary = 10

var priorities = map[Kind]int{
	KindFourKings:     100,
	KindBomb8:         90,
	KindBomb7:         89,
	KindBomb6:         88,
	KindStraightFlush: 87,
	KindBomb5:         86,
	KindBomb4:         85,

	KindTriplePair:     PriorityOrdinary,
	KindSteelPlate:     PriorityOrdinary,
	KindStraight:       PriorityOrdinary,
	KindTripleWithPair: PriorityOrdinary,
	KindTriple:         PriorityOrdinary,
	KindPair:           PriorityOrdinary,
	KindSingle:         PriorityOrdinary,
}

var bombKinds = map[int]Kind{4: KindBomb4, 5: KindBomb5, 6: KindBomb6, 7: KindBomb7, 8: KindBomb8}

// Priority returns the cross-kind strength of k. Invalid is 0.
func (k Kind) Priority() int {
	return priorities[k]
}

// IsBomb reports whether k beats ordinary plays regardless of their kind.
func (k Kind) IsBomb() bool {
	return k.Priority() > PriorityOrdinary
}

// Pattern is the classification of a concrete set of cards.
type Pattern struct {
	Kind     Kind `json:"type"`
	Size     int  `json:"size"`
	Base     int  `json:"baseValue"`
	Priority int  `json:"priority"`
}

// Valid reports whether the pattern is a legal combination.
func (p Pattern) Valid() bool {
	return p.Kind != KindInvalid && p.Kind != ""
}

func newPattern(k Kind, size, base int) Pattern {
	return Pattern{Kind: k, Size: size, Base: base, Priority: k.Priority()}
}

var invalidPattern = Pattern{Kind: KindInvalid}
