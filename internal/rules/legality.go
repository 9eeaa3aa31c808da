package rules

import (
	"errors"

	"github.com/jason-s-yu/guandan/internal/cards"
)

var (
	// ErrCardsNotInHand means the candidate uses cards the player does not hold.
	ErrCardsNotInHand = errors.New("cards not in hand")
	// ErrInvalidPattern means the candidate is not a recognised combination.
	ErrInvalidPattern = errors.New("invalid card combination")
	// ErrCannotBeat means the candidate is legal but does not beat the table.
	ErrCannotBeat = errors.New("play does not beat the last play")
)

// CanBeat reports whether candidate beats last. Across priorities the higher
// priority wins. Within a priority the kind and size must match and the base
// value must be strictly greater.
func CanBeat(candidate, last Pattern) bool {
	if !candidate.Valid() {
		return false
	}
	if candidate.Priority != last.Priority {
		return candidate.Priority > last.Priority
	}
	if candidate.Kind != last.Kind || candidate.Size != last.Size {
		return false
	}
	return candidate.Base > last.Base
}

// IsPlayValid checks a candidate play against the player's hand and the last
// play on the table (nil when the table is empty). On success it returns the
// hand with the played cards removed and the classified pattern. The input
// hand is never modified.
func IsPlayValid(candidate []cards.Card, last *Pattern, hand []cards.Card, level int) ([]cards.Card, Pattern, error) {
	if len(candidate) == 0 {
		return nil, invalidPattern, ErrInvalidPattern
	}
	rest, ok := cards.RemoveAll(hand, candidate)
	if !ok {
		return nil, invalidPattern, ErrCardsNotInHand
	}

	// Values are recomputed from the hand's level so a client cannot inflate them.
	p := Classify(cards.Revalue(candidate, level), level)
	if !p.Valid() {
		return nil, p, ErrInvalidPattern
	}
	if last != nil && !CanBeat(p, *last) {
		return nil, p, ErrCannotBeat
	}
	return rest, p, nil
}
