// internal/cards/card.go
package cards

import (
	"fmt"
	"sort"
)

// Suit identifies the suit of a card. Jokers carry their own pseudo-suit.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
	SuitJoker    Suit = "joker"
)

// StandardSuits lists the four non-joker suits in deck construction order.
var StandardSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Ranks. Ace is 1; the jokers take the two ranks above King.
const (
	RankAce        = 1
	RankJack       = 11
	RankQueen      = 12
	RankKing       = 13
	RankSmallJoker = 14
	RankBigJoker   = 15
)

// Level bounds. Levels run 2..14 where 14 means Ace.
const (
	MinLevel = 2
	LevelAce = 14
)

// Fixed values for the cards that sit above the ordinary order.
const (
	ValueBigJoker   = 99
	ValueSmallJoker = 98
	ValueWildcard   = 97
	ValueLevelRank  = 96
)

// ordinaryOrder is the strength order of non-level ranks, weakest first.
var ordinaryOrder = []int{2, 3, 4, 5, 6, 7, 8, 9, 10, RankJack, RankQueen, RankKing, RankAce}

// Card is a single playing card. Identity for hand matching is Suit+Rank;
// Value depends on the level the card was dealt under.
type Card struct {
	Suit        Suit   `json:"suit"`
	Rank        int    `json:"rank"`
	Value       int    `json:"value"`
	DisplayName string `json:"displayName"`
}

// LevelRank maps a level (2..14) onto the card rank that is trump for it.
func LevelRank(level int) int {
	if level == LevelAce {
		return RankAce
	}
	return level
}

// CardValue returns the comparison value of a card of the given rank and suit
// under the given level.
func CardValue(rank, level int, suit Suit) int {
	switch rank {
	case RankBigJoker:
		return ValueBigJoker
	case RankSmallJoker:
		return ValueSmallJoker
	}
	if rank == LevelRank(level) {
		if suit == SuitHearts {
			return ValueWildcard
		}
		return ValueLevelRank
	}
	for i, r := range ordinaryOrder {
		if r == rank {
			return 10 + i
		}
	}
	return 0
}

// NewCard builds a card with its value and display name filled in for level.
func NewCard(suit Suit, rank, level int) Card {
	return Card{
		Suit:        suit,
		Rank:        rank,
		Value:       CardValue(rank, level, suit),
		DisplayName: displayName(suit, rank),
	}
}

// IsJoker reports whether the card is one of the four jokers.
func (c Card) IsJoker() bool {
	return c.Rank == RankSmallJoker || c.Rank == RankBigJoker
}

// IsWildcard reports whether the card is the hearts copy of the level rank.
func (c Card) IsWildcard(level int) bool {
	return c.Suit == SuitHearts && c.Rank == LevelRank(level)
}

// SameCard compares identity (suit and rank), ignoring value.
func (c Card) SameCard(o Card) bool {
	return c.Suit == o.Suit && c.Rank == o.Rank
}

func (c Card) String() string {
	return c.DisplayName
}

func rankLabel(rank int) string {
	switch rank {
	case RankAce:
		return "A"
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	}
	return fmt.Sprintf("%d", rank)
}

func displayName(suit Suit, rank int) string {
	switch rank {
	case RankBigJoker:
		return "Big Joker"
	case RankSmallJoker:
		return "Small Joker"
	}
	return fmt.Sprintf("%s of %s", rankLabel(rank), suit)
}

// Revalue recomputes the values of cards for a new level. The input is not mutated.
func Revalue(cs []Card, level int) []Card {
	out := make([]Card, len(cs))
	for i, c := range cs {
		out[i] = NewCard(c.Suit, c.Rank, level)
	}
	return out
}

// SortHand orders a hand ascending by value, breaking ties by suit then rank
// so identical inputs always sort the same way.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		if hand[i].Value != hand[j].Value {
			return hand[i].Value < hand[j].Value
		}
		if hand[i].Suit != hand[j].Suit {
			return hand[i].Suit < hand[j].Suit
		}
		return hand[i].Rank < hand[j].Rank
	})
}

// RemoveAll returns a copy of hand with each card in remove taken out once,
// counting duplicates (the deck has two copies of every card). The boolean is
// false if some card could not be found; hand is never mutated.
func RemoveAll(hand, remove []Card) ([]Card, bool) {
	rest := make([]Card, len(hand))
	copy(rest, hand)
	for _, r := range remove {
		idx := -1
		for i, c := range rest {
			if c.SameCard(r) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
		rest = append(rest[:idx], rest[idx+1:]...)
	}
	return rest, true
}
