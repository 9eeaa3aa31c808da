package cards

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
)

const (
	// PlayerCount is the fixed table size.
	PlayerCount = 4
	// HandSize is the number of cards each seat receives.
	HandSize = 27
	// DeckSize is two standard decks with jokers.
	DeckSize = PlayerCount * HandSize
)

// ErrInvalidPlayerCount is returned when dealing to anything but four seats.
var ErrInvalidPlayerCount = errors.New("exactly 4 players are required to deal")

// NewDeck builds the 108-card double deck valued for level, unshuffled.
func NewDeck(level int) []Card {
	deck := make([]Card, 0, DeckSize)
	for copyIdx := 0; copyIdx < 2; copyIdx++ {
		for _, s := range StandardSuits {
			for rank := RankAce; rank <= RankKing; rank++ {
				deck = append(deck, NewCard(s, rank, level))
			}
		}
		deck = append(deck, NewCard(SuitJoker, RankSmallJoker, level))
		deck = append(deck, NewCard(SuitJoker, RankBigJoker, level))
	}
	return deck
}

// Shuffle performs an in-place Fisher-Yates shuffle using rng.
func Shuffle(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal shuffles a fresh deck and deals it round-robin to exactly four players.
// Each returned hand is sorted ascending by value.
func Deal(playerIDs []uuid.UUID, level int, rng *rand.Rand) (map[uuid.UUID][]Card, error) {
	if len(playerIDs) != PlayerCount {
		return nil, ErrInvalidPlayerCount
	}
	deck := NewDeck(level)
	Shuffle(deck, rng)

	hands := make(map[uuid.UUID][]Card, PlayerCount)
	for _, id := range playerIDs {
		hands[id] = make([]Card, 0, HandSize)
	}
	for i, c := range deck {
		id := playerIDs[i%PlayerCount]
		hands[id] = append(hands[id], c)
	}
	for _, id := range playerIDs {
		SortHand(hands[id])
	}
	return hands, nil
}

// DealPractice returns a sorted hand of size cards drawn from a fresh shuffled
// deck. It is not tied to any round and is only used while a table is filling up.
func DealPractice(level, size int, rng *rand.Rand) []Card {
	if size <= 0 || size > DeckSize {
		size = HandSize
	}
	deck := NewDeck(level)
	Shuffle(deck, rng)
	hand := append([]Card(nil), deck[:size]...)
	SortHand(hand)
	return hand
}
