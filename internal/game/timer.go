// internal/game/timer.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/cards"
	log "github.com/sirupsen/logrus"
)

// TimerPhase identifies which countdown is running.
type TimerPhase string

const (
	TimerThinking TimerPhase = "thinking"
	TimerPlayTurn TimerPhase = "play_turn"
)

// TimerState is the observable state of the active countdown.
type TimerState struct {
	Phase         TimerPhase `json:"phase"`
	RemainingTime int        `json:"remainingTime"`
	Duration      int        `json:"duration"`
	StartTime     time.Time  `json:"startTime"`
	CurrentPlayer uuid.UUID  `json:"currentPlayer,omitempty"`
}

// timerPreconditions: all four seats connected and a timed phase.
func (g *GuandanGame) timerPreconditions() bool {
	if len(g.Seats) != cards.PlayerCount || g.connectedCount() != cards.PlayerCount {
		return false
	}
	return g.Phase == PhaseThinking || g.Phase == PhasePlaying
}

// armTimer replaces any running countdown. If the preconditions do not hold
// no timer is started; SetConnected re-arms once they do.
func (g *GuandanGame) armTimer(phase TimerPhase, units int) {
	g.cancelTimer()
	if !g.timerPreconditions() {
		return
	}

	g.timerGen++
	gen := g.timerGen
	stop := make(chan struct{})
	g.timerStop = stop

	ts := &TimerState{
		Phase:         phase,
		RemainingTime: units,
		Duration:      units,
		StartTime:     time.Now(),
	}
	if phase == TimerPlayTurn {
		ts.CurrentPlayer = g.CurrentPlayerID()
	}
	g.Timer = ts

	go g.runTimer(gen, stop, g.Timing.TimeUnit)
}

// cancelTimer invalidates the active countdown. Ticks already waiting on the
// lock see a different generation and exit.
func (g *GuandanGame) cancelTimer() {
	if g.timerStop != nil {
		close(g.timerStop)
		g.timerStop = nil
	}
	g.timerGen++
	g.Timer = nil
}

func (g *GuandanGame) runTimer(gen uint64, stop <-chan struct{}, unit time.Duration) {
	ticker := time.NewTicker(unit)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.tick(gen) {
				return
			}
		}
	}
}

// tick runs one countdown step under the room lock. It returns false once the
// timer is stale, cancelled or expired.
func (g *GuandanGame) tick(gen uint64) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	if gen != g.timerGen || g.Timer == nil {
		return false
	}
	if !g.timerPreconditions() {
		log.Debugf("game %s: timer preconditions lost, cancelling", g.ID)
		g.cancelTimer()
		return false
	}

	g.Timer.RemainingTime--
	g.broadcast(EventTimerUpdate, map[string]interface{}{
		"phase":         g.Timer.Phase,
		"remainingTime": g.Timer.RemainingTime,
		"duration":      g.Timer.Duration,
		"currentPlayer": g.Timer.CurrentPlayer,
	})
	if g.Timer.RemainingTime > 0 {
		return true
	}

	expired := *g.Timer
	// This goroutine exits after returning, so the stop channel is dropped rather than closed.
	g.timerStop = nil
	g.timerGen++
	g.Timer = nil
	g.onTimerExpired(expired)
	return false
}

func (g *GuandanGame) onTimerExpired(ts TimerState) {
	switch ts.Phase {
	case TimerThinking:
		if g.Phase == PhaseThinking {
			g.beginPlay()
		}
	case TimerPlayTurn:
		if g.Phase != PhasePlaying || g.CurrentPlayerID() != ts.CurrentPlayer {
			return
		}
		log.Infof("game %s: turn timer expired for %s, auto-passing", g.ID, ts.CurrentPlayer)
		if err := g.HandlePass(ts.CurrentPlayer, true); err != nil {
			log.Debugf("game %s: auto-pass rejected: %v", g.ID, err)
		}
	}
}
