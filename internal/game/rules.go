// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// TimingRules controls phase timers. Durations are counted in TimeUnit ticks;
// production runs with one-second units, tests shrink the unit.
type TimingRules struct {
	ThinkingUnits int           `json:"thinkingSeconds"`
	TurnUnits     int           `json:"turnSeconds"`
	TimeUnit      time.Duration `json:"-"`
}

// DefaultTimingRules returns the standard 60s thinking / 30s turn timers.
func DefaultTimingRules() TimingRules {
	return TimingRules{
		ThinkingUnits: 60,
		TurnUnits:     30,
		TimeUnit:      time.Second,
	}
}

// Validate rejects non-positive timings.
func (r TimingRules) Validate() error {
	if r.ThinkingUnits <= 0 {
		return fmt.Errorf("thinking duration must be positive, got %d", r.ThinkingUnits)
	}
	if r.TurnUnits <= 0 {
		return fmt.Errorf("turn duration must be positive, got %d", r.TurnUnits)
	}
	if r.TimeUnit <= 0 {
		return fmt.Errorf("time unit must be positive, got %s", r.TimeUnit)
	}
	return nil
}
