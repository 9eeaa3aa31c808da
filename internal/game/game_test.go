// internal/game/game_test.go
package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]GameEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) ofType(t GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastPlayerEvent(playerID uuid.UUID) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	evs := mb.playerEvents[playerID]
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

// slowTiming keeps timers armed but never firing within a test.
var slowTiming = TimingRules{ThinkingUnits: 60, TurnUnits: 30, TimeUnit: time.Hour}

type testTable struct {
	g   *GuandanGame
	mu  *sync.Mutex
	mb  *mockBroadcaster
	ids []uuid.UUID
}

// setupTestGame seats four connected players and deals the first round.
func setupTestGame(t *testing.T, timing TimingRules) *testTable {
	t.Helper()
	mu := &sync.Mutex{}
	seats := make([]*Seat, 4)
	ids := make([]uuid.UUID, 4)
	for i := range seats {
		ids[i] = uuid.New()
		seats[i] = &Seat{UserID: ids[i], Username: "p" + string(rune('0'+i)), Connected: true}
	}
	g := NewGuandanGame(uuid.New(), seats, mu, timing)
	g.SetRand(rand.New(rand.NewSource(1)))
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	mu.Lock()
	require.NoError(t, g.StartRound())
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		g.Stop()
		mu.Unlock()
	})
	return &testTable{g: g, mu: mu, mb: mb, ids: ids}
}

// startPlaying skips the thinking phase and installs the given hands, indexed
// by play-order position. Seat 0 of the play order leads.
func (tt *testTable) startPlaying(t *testing.T, hands [][]cards.Card) []uuid.UUID {
	t.Helper()
	tt.mu.Lock()
	defer tt.mu.Unlock()
	order := tt.g.PlayOrder
	for i, h := range hands {
		tt.g.Hands[order[i]] = h
	}
	tt.g.CurrentPlayerIndex = 0
	tt.g.beginPlay()
	require.Equal(t, PhasePlaying, tt.g.Phase)
	tt.mb.clear()
	return append([]uuid.UUID{}, order...)
}

func c(s cards.Suit, rank int) cards.Card {
	return cards.NewCard(s, rank, cards.MinLevel)
}

func TestStartRoundDealsAndEntersThinking(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	g := tt.g

	tt.mu.Lock()
	defer tt.mu.Unlock()

	assert.Equal(t, PhaseThinking, g.Phase)
	assert.Equal(t, 1, g.Round)
	assert.True(t, g.IsFirstPlay)
	assert.Len(t, g.PlayOrder, 4)
	assert.ElementsMatch(t, tt.ids, g.PlayOrder)
	for _, id := range tt.ids {
		assert.Len(t, g.Hands[id], cards.HandSize)
		ev := tt.mb.lastPlayerEvent(id)
		require.NotNil(t, ev)
		assert.Equal(t, EventYourHand, ev.Type)
	}

	started := tt.mb.ofType(EventGameStarted)
	require.Len(t, started, 1)
	assert.Equal(t, g.CurrentPlayerID(), started[0].Payload["currentPlayerId"])
	assert.Equal(t, cards.MinLevel, started[0].Payload["currentLevel"])

	require.NotNil(t, g.Timer)
	assert.Equal(t, TimerThinking, g.Timer.Phase)
	assert.Equal(t, 60, g.Timer.Duration)
}

func TestStartRoundRequiresFourSeats(t *testing.T) {
	mu := &sync.Mutex{}
	g := NewGuandanGame(uuid.New(), []*Seat{{UserID: uuid.New()}, {UserID: uuid.New()}}, mu, slowTiming)
	assert.ErrorIs(t, g.StartRound(), cards.ErrInvalidPlayerCount)
	assert.Equal(t, PhaseWaiting, g.Phase)
}

func TestPlayRejectedDuringThinking(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	tt.mu.Lock()
	defer tt.mu.Unlock()

	cur := tt.g.CurrentPlayerID()
	err := tt.g.HandlePlay(cur, tt.g.Hands[cur][:1])
	assert.ErrorIs(t, err, ErrGameNotActive)
}

func TestNotYourTurnAndUnknownPlayer(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{
		{c(cards.SuitSpades, 9)},
		{c(cards.SuitSpades, 3)},
		{c(cards.SuitClubs, 5)},
		{c(cards.SuitDiamonds, 7)},
	})

	tt.mu.Lock()
	defer tt.mu.Unlock()
	assert.ErrorIs(t, tt.g.HandlePlay(order[1], []cards.Card{c(cards.SuitSpades, 3)}), ErrNotYourTurn)
	assert.ErrorIs(t, tt.g.HandlePass(order[2], false), ErrNotYourTurn)
	assert.ErrorIs(t, tt.g.HandlePass(uuid.New(), false), ErrPlayerNotInGame)
}

func TestIllegalPlayLeavesStateUntouched(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{
		{c(cards.SuitSpades, 9), c(cards.SuitSpades, 4)},
		{c(cards.SuitSpades, 3)},
		{c(cards.SuitClubs, 5)},
		{c(cards.SuitDiamonds, 7)},
	})

	tt.mu.Lock()
	defer tt.mu.Unlock()
	g := tt.g
	assert.ErrorIs(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitHearts, 9)}), rules.ErrCardsNotInHand)
	assert.ErrorIs(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitSpades, 9), c(cards.SuitSpades, 4)}), rules.ErrInvalidPattern)
	assert.Len(t, g.Hands[order[0]], 2)
	assert.Nil(t, g.LastPlay)
	assert.Equal(t, order[0], g.CurrentPlayerID())

	require.NoError(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitSpades, 9)}))
	assert.ErrorIs(t, g.HandlePlay(order[1], []cards.Card{c(cards.SuitSpades, 3)}), rules.ErrCannotBeat)
}

func TestTrickResetsAfterEveryoneElsePasses(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{
		{c(cards.SuitSpades, 9), c(cards.SuitSpades, 10)},
		{c(cards.SuitSpades, 3)},
		{c(cards.SuitClubs, 5)},
		{c(cards.SuitDiamonds, 7)},
	})

	tt.mu.Lock()
	defer tt.mu.Unlock()
	g := tt.g

	require.NoError(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitSpades, 9)}))
	assert.False(t, g.IsFirstPlay)
	assert.Equal(t, order[1], g.CurrentPlayerID())

	require.NoError(t, g.HandlePass(order[1], false))
	require.NoError(t, g.HandlePass(order[2], false))
	assert.NotNil(t, g.LastPlay)
	assert.Equal(t, 2, g.ConsecutivePasses)

	require.NoError(t, g.HandlePass(order[3], false))
	assert.Nil(t, g.LastPlay)
	assert.Empty(t, g.PassedPlayers)
	assert.True(t, g.IsFirstPlay)
	assert.Equal(t, order[0], g.CurrentPlayerID(), "owner of the last play leads again")
	assert.Len(t, tt.mb.ofType(EventTrickReset), 1)

	passed := tt.mb.ofType(EventTurnPassed)
	require.Len(t, passed, 3)
	assert.Equal(t, false, passed[2].Payload["isAutoPass"])
	assert.Equal(t, order[0], passed[2].Payload["nextPlayer"])
}

func TestAceBeatsKing(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{
		{c(cards.SuitSpades, cards.RankKing), c(cards.SuitSpades, 4)},
		{c(cards.SuitClubs, cards.RankAce), c(cards.SuitClubs, 6)},
		{c(cards.SuitClubs, 5)},
		{c(cards.SuitDiamonds, 7)},
	})

	tt.mu.Lock()
	defer tt.mu.Unlock()
	g := tt.g

	require.NoError(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitSpades, cards.RankKing)}))
	require.NoError(t, g.HandlePlay(order[1], []cards.Card{c(cards.SuitClubs, cards.RankAce)}))

	assert.Len(t, g.Hands[order[1]], 1)
	assert.Equal(t, []cards.Card{c(cards.SuitClubs, 6)}, g.Hands[order[1]])
	assert.Equal(t, order[2], g.CurrentPlayerID())
	require.NotNil(t, g.LastPlay)
	assert.Equal(t, order[1], g.LastPlay.PlayerID)
	assert.Equal(t, rules.KindSingle, g.LastPlay.Pattern.Kind)

	played := tt.mb.ofType(EventCardsPlayed)
	require.Len(t, played, 2)
	assert.Equal(t, order[2], played[1].Payload["nextPlayer"])
	assert.Equal(t, false, played[1].Payload["isBomb"])
}

func TestRoundCompletesAndScores(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{
		{c(cards.SuitSpades, 9)},
		{c(cards.SuitSpades, 3)},
		{c(cards.SuitClubs, 5)},
		{c(cards.SuitDiamonds, 7), c(cards.SuitDiamonds, 8)},
	})

	var gotResult *rules.RoundResult
	tt.g.OnRoundEnd = func(roomID uuid.UUID, res rules.RoundResult, matchOver bool) {
		gotResult = &res
		assert.False(t, matchOver)
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()
	g := tt.g

	require.NoError(t, g.HandlePlay(order[0], []cards.Card{c(cards.SuitSpades, 9)}))
	assert.Equal(t, []uuid.UUID{order[0]}, g.FinishedPlayers)
	assert.Equal(t, order[1], g.CurrentPlayerID())

	require.NoError(t, g.HandlePass(order[1], false))
	require.NoError(t, g.HandlePass(order[2], false))
	require.NoError(t, g.HandlePass(order[3], false))
	assert.Nil(t, g.LastPlay, "finished owner cannot hold the table")
	assert.Equal(t, order[1], g.CurrentPlayerID(), "finished seats are skipped")

	require.NoError(t, g.HandlePlay(order[1], []cards.Card{c(cards.SuitSpades, 3)}))
	require.NoError(t, g.HandlePlay(order[2], []cards.Card{c(cards.SuitClubs, 5)}))

	assert.Equal(t, PhaseFinished, g.Phase)
	assert.Equal(t, order, g.FinishedPlayers, "last seat is appended automatically")
	assert.Nil(t, g.Timer)

	require.NotNil(t, gotResult)
	assert.Equal(t, rules.TeamA, gotResult.WinningTeam)
	assert.Equal(t, 2, gotResult.LevelDelta)
	assert.Equal(t, 4, g.TeamLevels[rules.TeamA])
	assert.Equal(t, cards.MinLevel, g.TeamLevels[rules.TeamB])

	finished := tt.mb.ofType(EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, 2, finished[0].Payload["levelChange"])

	assert.ErrorIs(t, g.HandlePass(order[3], false), ErrGameNotActive)

	// next round is played at the winners' level with tribute recorded
	require.NoError(t, g.NextRound())
	assert.Equal(t, PhaseThinking, g.Phase)
	assert.Equal(t, 4, g.CurrentLevel)
	assert.Equal(t, 2, g.Round)
	assert.Equal(t, order, g.PlayOrder, "seating is kept between rounds")
	assert.Equal(t, order[0], g.CurrentPlayerID(), "previous winner leads")
	assert.Contains(t, []rules.TributeType{rules.TributeSingle, rules.TributeResist}, g.Tribute.Type)
}

func TestFinishedPlayerNotDuplicated(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	order := tt.startPlaying(t, [][]cards.Card{{c(cards.SuitSpades, 9)}, {}, {}, {}})

	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.g.markFinished(order[0])
	tt.g.markFinished(order[0])
	assert.Equal(t, []uuid.UUID{order[0]}, tt.g.FinishedPlayers)
}

func TestTimersDriveThinkingAndAutoPass(t *testing.T) {
	tt := setupTestGame(t, TimingRules{ThinkingUnits: 2, TurnUnits: 2, TimeUnit: 5 * time.Millisecond})

	require.Eventually(t, func() bool {
		tt.mu.Lock()
		defer tt.mu.Unlock()
		return tt.g.Phase == PhasePlaying
	}, time.Second, 5*time.Millisecond)

	// Inspect the table under the room lock right after an auto-pass that
	// did not clear the pass set.
	var (
		passer, next, timerPlayer uuid.UUID
		passerMarked              bool
	)
	require.Eventually(t, func() bool {
		tt.mu.Lock()
		defer tt.mu.Unlock()
		passed := tt.mb.ofType(EventTurnPassed)
		if len(passed) == 0 || tt.g.ConsecutivePasses == 0 || tt.g.Timer == nil {
			return false
		}
		last := passed[len(passed)-1]
		if last.Payload["isAutoPass"] != true {
			return false
		}
		passer = last.Payload["passedPlayer"].(uuid.UUID)
		next = tt.g.CurrentPlayerID()
		timerPlayer = tt.g.Timer.CurrentPlayer
		passerMarked = tt.g.PassedPlayers[passer]
		return true
	}, time.Second, 2*time.Millisecond)

	assert.True(t, passerMarked, "auto-passer is recorded as passed")
	assert.NotEqual(t, passer, next)
	assert.Equal(t, next, timerPlayer, "new turn timer is bound to the next seat")

	updates := tt.mb.ofType(EventTimerUpdate)
	require.NotEmpty(t, updates)
	assert.Equal(t, TimerThinking, updates[0].Payload["phase"])
	assert.Equal(t, 1, updates[0].Payload["remainingTime"])
}

func TestDisconnectSuspendsTimerAndReconnectRearms(t *testing.T) {
	tt := setupTestGame(t, TimingRules{ThinkingUnits: 1000, TurnUnits: 30, TimeUnit: 2 * time.Millisecond})

	tt.mu.Lock()
	require.NotNil(t, tt.g.Timer)
	tt.g.SetConnected(tt.ids[0], false)
	assert.Nil(t, tt.g.Timer)
	tt.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	before := len(tt.mb.ofType(EventTimerUpdate))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, len(tt.mb.ofType(EventTimerUpdate)), "no ticks while a seat is disconnected")

	tt.mu.Lock()
	tt.g.SetConnected(tt.ids[0], true)
	require.NotNil(t, tt.g.Timer)
	assert.Equal(t, TimerThinking, tt.g.Timer.Phase)
	assert.Equal(t, 1000, tt.g.Timer.Duration)
	tt.mu.Unlock()
}

func TestStaleTimerGenerationIsIgnored(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	tt.mu.Lock()
	staleGen := tt.g.timerGen
	tt.g.armTimer(TimerThinking, 60)
	tt.mu.Unlock()

	assert.False(t, tt.g.tick(staleGen))
	tt.mu.Lock()
	defer tt.mu.Unlock()
	assert.Equal(t, 60, tt.g.Timer.RemainingTime)
}

func TestSnapshotHidesOtherHands(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	tt.mu.Lock()
	defer tt.mu.Unlock()

	me := tt.ids[0]
	v := tt.g.Snapshot(me)
	assert.Equal(t, PhaseThinking, v.GamePhase)
	assert.Len(t, v.YourCards, cards.HandSize)
	require.Len(t, v.Seats, 4)
	for _, s := range v.Seats {
		assert.Equal(t, cards.HandSize, s.HandSize)
	}
	assert.Empty(t, tt.g.Snapshot(uuid.New()).YourCards)
}

func TestIllegalTransitionRefused(t *testing.T) {
	tt := setupTestGame(t, slowTiming)
	tt.mu.Lock()
	defer tt.mu.Unlock()
	assert.ErrorIs(t, tt.g.setPhase(PhaseFinished), ErrIllegalTransition)
	assert.ErrorIs(t, tt.g.NextRound(), ErrIllegalTransition)
	assert.Equal(t, PhaseThinking, tt.g.Phase)
}
