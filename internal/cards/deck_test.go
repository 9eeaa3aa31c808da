package cards

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourPlayers() []uuid.UUID {
	return []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
}

func TestCardValue(t *testing.T) {
	level := 5
	assert.Equal(t, ValueBigJoker, CardValue(RankBigJoker, level, SuitJoker))
	assert.Equal(t, ValueSmallJoker, CardValue(RankSmallJoker, level, SuitJoker))
	assert.Equal(t, ValueWildcard, CardValue(5, level, SuitHearts))
	assert.Equal(t, ValueLevelRank, CardValue(5, level, SuitSpades))

	// ordinary order: 2 lowest, ace highest
	assert.Less(t, CardValue(2, level, SuitClubs), CardValue(3, level, SuitClubs))
	assert.Less(t, CardValue(9, level, SuitClubs), CardValue(10, level, SuitClubs))
	assert.Less(t, CardValue(10, level, SuitClubs), CardValue(RankJack, level, SuitClubs))
	assert.Less(t, CardValue(RankKing, level, SuitClubs), CardValue(RankAce, level, SuitClubs))
	assert.Less(t, CardValue(RankAce, level, SuitClubs), ValueLevelRank)
}

func TestLevelAceUsesAceAsLevelRank(t *testing.T) {
	assert.Equal(t, RankAce, LevelRank(LevelAce))
	assert.Equal(t, ValueWildcard, CardValue(RankAce, LevelAce, SuitHearts))
	assert.True(t, NewCard(SuitHearts, RankAce, LevelAce).IsWildcard(LevelAce))
	assert.False(t, NewCard(SuitSpades, RankAce, LevelAce).IsWildcard(LevelAce))
}

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck(2)
	require.Len(t, deck, DeckSize)

	counts := map[Card]int{}
	for _, c := range deck {
		counts[Card{Suit: c.Suit, Rank: c.Rank}]++
	}
	for _, s := range StandardSuits {
		for r := RankAce; r <= RankKing; r++ {
			assert.Equal(t, 2, counts[Card{Suit: s, Rank: r}], "%s %d", s, r)
		}
	}
	assert.Equal(t, 2, counts[Card{Suit: SuitJoker, Rank: RankSmallJoker}])
	assert.Equal(t, 2, counts[Card{Suit: SuitJoker, Rank: RankBigJoker}])
}

func TestDealDistributesWholeDeck(t *testing.T) {
	players := fourPlayers()
	hands, err := Deal(players, 2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, hands, PlayerCount)

	var all []Card
	for _, id := range players {
		h := hands[id]
		assert.Len(t, h, HandSize)
		for i := 1; i < len(h); i++ {
			assert.LessOrEqual(t, h[i-1].Value, h[i].Value, "hand must be sorted")
		}
		all = append(all, h...)
	}
	rest, ok := RemoveAll(NewDeck(2), all)
	assert.True(t, ok, "dealt cards must be exactly the deck")
	assert.Empty(t, rest)
}

func TestDealRejectsWrongPlayerCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Deal(fourPlayers()[:3], 2, rng)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)

	_, err = Deal(append(fourPlayers(), uuid.New()), 2, rng)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
}

func TestDealPractice(t *testing.T) {
	h := DealPractice(3, 13, rand.New(rand.NewSource(7)))
	assert.Len(t, h, 13)
	_, ok := RemoveAll(NewDeck(3), h)
	assert.True(t, ok)
}

func TestRemoveAllCountsDuplicates(t *testing.T) {
	level := 2
	c := NewCard(SuitSpades, 9, level)
	hand := []Card{c, NewCard(SuitClubs, 4, level)}

	_, ok := RemoveAll(hand, []Card{c, c})
	assert.False(t, ok, "only one copy is held")

	rest, ok := RemoveAll(hand, []Card{c})
	require.True(t, ok)
	assert.Len(t, rest, 1)
	assert.Len(t, hand, 2, "input hand must not be mutated")
}

func TestRevalue(t *testing.T) {
	cs := []Card{NewCard(SuitHearts, 3, 2)}
	re := Revalue(cs, 3)
	assert.Equal(t, ValueWildcard, re[0].Value)
	assert.NotEqual(t, ValueWildcard, cs[0].Value)
}
