// internal/game/game.go
package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	"github.com/jason-s-yu/guandan/internal/rules"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotYourTurn is returned when a seat acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrGameNotActive is returned for play/pass outside the playing phase.
	ErrGameNotActive = errors.New("game is not in the playing phase")
	// ErrPlayerNotInGame is returned for users without a seat.
	ErrPlayerNotInGame = errors.New("player is not seated in this game")
	// ErrIllegalTransition is returned when a phase change is not allowed.
	ErrIllegalTransition = errors.New("illegal phase transition")
)

// Phase of a game.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseThinking Phase = "thinking"
	PhasePlaying  Phase = "playing"
	PhaseTribute  Phase = "tribute"
	PhaseFinished Phase = "finished"
)

var transitions = map[Phase][]Phase{
	PhaseWaiting:  {PhaseThinking},
	PhaseThinking: {PhasePlaying},
	PhasePlaying:  {PhaseFinished},
	PhaseFinished: {PhaseTribute, PhaseThinking},
	PhaseTribute:  {PhaseThinking},
}

// OnRoundEndFunc is invoked once a round has been scored.
type OnRoundEndFunc func(roomID uuid.UUID, result rules.RoundResult, matchOver bool)

// OnActionFunc receives a short record of every state-changing action.
type OnActionFunc func(actorID uuid.UUID, actionType string, payload map[string]interface{})

// Seat is one of the four places at the table.
type Seat struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Connected bool      `json:"connected"`
}

// GuandanGame holds the authoritative state of one room's game.
//
// Methods assume the room's lock is held by the caller. The same lock is
// passed in at construction so timer goroutines serialize with room actions.
type GuandanGame struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	Timing TimingRules

	Seats     []*Seat
	PlayOrder []uuid.UUID
	Hands     map[uuid.UUID][]cards.Card

	CurrentPlayerIndex int
	LastPlay           *LastPlay
	Phase              Phase
	CurrentLevel       int
	TeamLevels         [2]int
	Round              int

	FinishedPlayers   []uuid.UUID
	PassedPlayers     map[uuid.UUID]bool
	ConsecutivePasses int
	IsFirstPlay       bool

	Timer      *TimerState
	LastResult *rules.RoundResult
	Tribute    rules.TributeInfo
	MatchOver  bool

	lock        sync.Locker
	timerGen    uint64
	timerStop   chan struct{}
	owedTribute *rules.TributeInfo
	rng         *rand.Rand
	actionIndex int

	// BroadcastFn sends an event to every seat.
	BroadcastFn func(ev GameEvent)
	// BroadcastToPlayerFn sends an event to one seat.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnRoundEnd          OnRoundEndFunc
	OnAction            OnActionFunc
}

// NewGuandanGame builds a game in the waiting phase for the given seats.
func NewGuandanGame(roomID uuid.UUID, seats []*Seat, lock sync.Locker, timing TimingRules) *GuandanGame {
	return &GuandanGame{
		ID:            uuid.New(),
		RoomID:        roomID,
		Timing:        timing,
		Seats:         seats,
		Hands:         make(map[uuid.UUID][]cards.Card),
		Phase:         PhaseWaiting,
		CurrentLevel:  cards.MinLevel,
		TeamLevels:    [2]int{cards.MinLevel, cards.MinLevel},
		PassedPlayers: make(map[uuid.UUID]bool),
		lock:          lock,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the random source. Used by tests for reproducible deals.
func (g *GuandanGame) SetRand(rng *rand.Rand) {
	g.rng = rng
}

func (g *GuandanGame) setPhase(to Phase) error {
	for _, p := range transitions[g.Phase] {
		if p == to {
			g.Phase = to
			return nil
		}
	}
	log.Warnf("game %s: refused phase transition %s -> %s", g.ID, g.Phase, to)
	return ErrIllegalTransition
}

// CurrentPlayerID returns the seat whose turn it is, or uuid.Nil before dealing.
func (g *GuandanGame) CurrentPlayerID() uuid.UUID {
	if len(g.PlayOrder) == 0 {
		return uuid.Nil
	}
	return g.PlayOrder[g.CurrentPlayerIndex]
}

func (g *GuandanGame) seat(userID uuid.UUID) *Seat {
	for _, s := range g.Seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

func (g *GuandanGame) connectedCount() int {
	n := 0
	for _, s := range g.Seats {
		if s.Connected {
			n++
		}
	}
	return n
}

func (g *GuandanGame) isFinished(userID uuid.UUID) bool {
	for _, id := range g.FinishedPlayers {
		if id == userID {
			return true
		}
	}
	return false
}

// StartRound deals a new round and enters the thinking phase. The first round
// of a match shuffles the play order and picks a random leader; later rounds
// keep the seating and let the previous winner lead.
func (g *GuandanGame) StartRound() error {
	if len(g.Seats) != cards.PlayerCount {
		return cards.ErrInvalidPlayerCount
	}
	if g.Phase != PhaseWaiting && g.Phase != PhaseTribute && g.Phase != PhaseFinished {
		return ErrIllegalTransition
	}

	if g.Round == 0 || len(g.PlayOrder) != cards.PlayerCount {
		g.PlayOrder = make([]uuid.UUID, 0, cards.PlayerCount)
		for _, s := range g.Seats {
			g.PlayOrder = append(g.PlayOrder, s.UserID)
		}
		g.rng.Shuffle(len(g.PlayOrder), func(i, j int) {
			g.PlayOrder[i], g.PlayOrder[j] = g.PlayOrder[j], g.PlayOrder[i]
		})
	}

	hands, err := cards.Deal(g.PlayOrder, g.CurrentLevel, g.rng)
	if err != nil {
		return err
	}
	if err := g.setPhase(PhaseThinking); err != nil {
		return err
	}

	g.Hands = hands
	g.CurrentPlayerIndex = g.rng.Intn(cards.PlayerCount)
	if g.LastResult != nil && g.Round > 0 {
		for i, id := range g.PlayOrder {
			if id == g.LastResult.Rankings[0] {
				g.CurrentPlayerIndex = i
			}
		}
	}
	g.Tribute = rules.TributeInfo{Type: rules.TributeNone}
	if g.owedTribute != nil {
		g.Tribute = rules.ResolveTribute(*g.owedTribute, hands)
		g.owedTribute = nil
	}
	g.LastPlay = nil
	g.FinishedPlayers = nil
	g.PassedPlayers = make(map[uuid.UUID]bool)
	g.ConsecutivePasses = 0
	g.IsFirstPlay = true
	g.Round++

	log.Infof("game %s: round %d started at level %d", g.ID, g.Round, g.CurrentLevel)
	g.logAction(uuid.Nil, "round_start", map[string]interface{}{
		"round": g.Round,
		"level": g.CurrentLevel,
	})

	g.broadcast(EventGameStarted, map[string]interface{}{
		"roomId":          g.RoomID,
		"playOrder":       g.PlayOrder,
		"currentPlayerId": g.CurrentPlayerID(),
		"gamePhase":       g.Phase,
		"currentLevel":    g.CurrentLevel,
		"teamLevels":      g.TeamLevels,
		"teams":           rules.Teams(g.PlayOrder),
		"round":           g.Round,
		"tribute":         g.Tribute,
	})
	for _, id := range g.PlayOrder {
		g.sendHand(id)
	}

	g.armTimer(TimerThinking, g.Timing.ThinkingUnits)
	return nil
}

// beginPlay ends the thinking phase.
func (g *GuandanGame) beginPlay() {
	if err := g.setPhase(PhasePlaying); err != nil {
		return
	}
	g.logAction(uuid.Nil, "play_phase_start", nil)
	g.broadcastTurn()
	g.armTimer(TimerPlayTurn, g.Timing.TurnUnits)
}

func (g *GuandanGame) checkTurn(userID uuid.UUID) error {
	if g.seat(userID) == nil {
		return ErrPlayerNotInGame
	}
	if g.Phase != PhasePlaying {
		return ErrGameNotActive
	}
	if g.CurrentPlayerID() != userID {
		return ErrNotYourTurn
	}
	return nil
}

// HandlePlay validates and applies a play by userID.
func (g *GuandanGame) HandlePlay(userID uuid.UUID, played []cards.Card) error {
	if err := g.checkTurn(userID); err != nil {
		return err
	}

	var last *rules.Pattern
	if g.LastPlay != nil {
		p := g.LastPlay.Pattern
		last = &p
	}
	rest, pattern, err := rules.IsPlayValid(played, last, g.Hands[userID], g.CurrentLevel)
	if err != nil {
		return err
	}

	tableCards := cards.Revalue(played, g.CurrentLevel)
	cards.SortHand(tableCards)
	g.Hands[userID] = rest
	g.LastPlay = &LastPlay{
		Cards:       tableCards,
		PlayType:    pattern.Kind,
		PlayerID:    userID,
		CanBeBeaten: pattern.Kind != rules.KindFourKings,
		Priority:    pattern.Priority,
		Pattern:     pattern,
	}
	g.PassedPlayers = make(map[uuid.UUID]bool)
	g.ConsecutivePasses = 0
	g.IsFirstPlay = false

	g.logAction(userID, "play_cards", map[string]interface{}{
		"cards":    tableCards,
		"playType": pattern.Kind,
		"isBomb":   pattern.Kind.IsBomb(),
	})

	if len(rest) == 0 {
		g.markFinished(userID)
	}

	payload := map[string]interface{}{
		"playerId":       userID,
		"cards":          tableCards,
		"playType":       pattern.Kind,
		"isBomb":         pattern.Kind.IsBomb(),
		"remainingCards": len(rest),
	}

	if len(g.FinishedPlayers) >= cards.PlayerCount {
		g.broadcast(EventCardsPlayed, payload)
		g.sendHand(userID)
		g.finishRound()
		return nil
	}

	g.advanceTurn()
	payload["nextPlayer"] = g.CurrentPlayerID()
	g.broadcast(EventCardsPlayed, payload)
	g.sendHand(userID)
	g.broadcastTurn()
	g.armTimer(TimerPlayTurn, g.Timing.TurnUnits)
	return nil
}

// HandlePass records a pass. auto marks passes synthesized by the turn timer.
func (g *GuandanGame) HandlePass(userID uuid.UUID, auto bool) error {
	if err := g.checkTurn(userID); err != nil {
		return err
	}

	g.PassedPlayers[userID] = true
	g.ConsecutivePasses++
	g.logAction(userID, "pass_turn", map[string]interface{}{"auto": auto})

	reset := g.shouldResetTrick()
	if reset {
		g.LastPlay = nil
		g.PassedPlayers = make(map[uuid.UUID]bool)
		g.ConsecutivePasses = 0
		g.IsFirstPlay = true
	}

	g.advanceTurn()
	g.broadcast(EventTurnPassed, map[string]interface{}{
		"passedPlayer": userID,
		"nextPlayer":   g.CurrentPlayerID(),
		"isAutoPass":   auto,
	})
	if reset {
		g.broadcast(EventTrickReset, map[string]interface{}{
			"nextPlayer": g.CurrentPlayerID(),
		})
	}
	g.broadcastTurn()
	g.armTimer(TimerPlayTurn, g.Timing.TurnUnits)
	return nil
}

// shouldResetTrick reports whether every active seat other than the owner of
// the last play has passed. With an empty table a full round of passes only
// clears the pass set.
func (g *GuandanGame) shouldResetTrick() bool {
	if g.LastPlay == nil {
		for _, id := range g.PlayOrder {
			if !g.isFinished(id) && !g.PassedPlayers[id] {
				return false
			}
		}
		g.PassedPlayers = make(map[uuid.UUID]bool)
		g.ConsecutivePasses = 0
		return false
	}
	for _, id := range g.PlayOrder {
		if id == g.LastPlay.PlayerID || g.isFinished(id) {
			continue
		}
		if !g.PassedPlayers[id] {
			return false
		}
	}
	return true
}

// advanceTurn moves to the next seat in play order that still holds cards.
func (g *GuandanGame) advanceTurn() {
	n := len(g.PlayOrder)
	for step := 1; step <= n; step++ {
		idx := (g.CurrentPlayerIndex + step) % n
		if !g.isFinished(g.PlayOrder[idx]) {
			g.CurrentPlayerIndex = idx
			return
		}
	}
}

// markFinished appends userID to the finishing order once. When three seats
// are out the last one is appended as well.
func (g *GuandanGame) markFinished(userID uuid.UUID) {
	if g.isFinished(userID) {
		return
	}
	g.FinishedPlayers = append(g.FinishedPlayers, userID)
	g.logAction(userID, "player_finished", map[string]interface{}{"place": len(g.FinishedPlayers)})

	if len(g.FinishedPlayers) == cards.PlayerCount-1 {
		for _, id := range g.PlayOrder {
			if !g.isFinished(id) {
				g.FinishedPlayers = append(g.FinishedPlayers, id)
				break
			}
		}
	}
}

// finishRound scores the round and advances the winning team's level.
func (g *GuandanGame) finishRound() {
	g.cancelTimer()
	if err := g.setPhase(PhaseFinished); err != nil {
		return
	}

	res, err := rules.ScoreRound(g.PlayOrder, g.FinishedPlayers)
	if err != nil {
		log.Errorf("game %s: scoring failed: %v", g.ID, err)
		return
	}
	level, won := rules.AdvanceLevel(g.TeamLevels[res.WinningTeam], res.LevelDelta)
	g.TeamLevels[res.WinningTeam] = level
	g.MatchOver = won
	g.LastResult = &res
	if won {
		g.owedTribute = nil
	} else {
		owed := res.Tribute
		g.owedTribute = &owed
	}

	log.Infof("game %s: round %d finished, team %d +%d (match over: %v)", g.ID, g.Round, res.WinningTeam, res.LevelDelta, won)
	g.logAction(uuid.Nil, "round_finished", map[string]interface{}{
		"rankings":   res.Rankings,
		"levelDelta": res.LevelDelta,
	})

	g.broadcast(EventGameFinished, map[string]interface{}{
		"rankings":    res.Rankings,
		"teams":       res.Teams,
		"winningTeam": res.WinningTeam,
		"levelChange": res.LevelDelta,
		"teamLevels":  g.TeamLevels,
		"tribute":     res.Tribute,
		"matchOver":   won,
	})

	if g.OnRoundEnd != nil {
		g.OnRoundEnd(g.RoomID, res, won)
	}
}

// NextRound starts the following round at the winning team's level. After a
// won match the levels are reset and a new match begins.
func (g *GuandanGame) NextRound() error {
	if g.Phase != PhaseFinished || g.LastResult == nil {
		return ErrIllegalTransition
	}
	if g.MatchOver {
		g.TeamLevels = [2]int{cards.MinLevel, cards.MinLevel}
		g.CurrentLevel = cards.MinLevel
		g.Round = 0
		g.MatchOver = false
		g.LastResult = nil
		g.owedTribute = nil
		return g.StartRound()
	}
	if err := g.setPhase(PhaseTribute); err != nil {
		return err
	}
	g.CurrentLevel = g.TeamLevels[g.LastResult.WinningTeam]
	return g.StartRound()
}

// SetConnected updates a seat's connection flag. Losing a seat suspends the
// phase timer; regaining the fourth seat re-arms it with a full duration.
func (g *GuandanGame) SetConnected(userID uuid.UUID, connected bool) {
	s := g.seat(userID)
	if s == nil {
		return
	}
	s.Connected = connected
	if !connected {
		if g.Timer != nil {
			g.cancelTimer()
		}
		return
	}
	if g.Timer != nil {
		return
	}
	switch g.Phase {
	case PhaseThinking:
		g.armTimer(TimerThinking, g.Timing.ThinkingUnits)
	case PhasePlaying:
		g.armTimer(TimerPlayTurn, g.Timing.TurnUnits)
	}
}

// Hand returns a copy of a seat's hand.
func (g *GuandanGame) Hand(userID uuid.UUID) []cards.Card {
	return append([]cards.Card{}, g.Hands[userID]...)
}

// Stop cancels any running timer. The game must not be used afterwards.
func (g *GuandanGame) Stop() {
	g.cancelTimer()
}

func (g *GuandanGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	log.Debugf("game %s action #%d %s by %s", g.ID, g.actionIndex, actionType, actorID)
	if g.OnAction != nil {
		g.OnAction(actorID, actionType, payload)
	}
}
