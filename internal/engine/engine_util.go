package engine

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
)

var DefaultBetOptions = []int64{10, 50, 100, 200}

func NewSession(userID gateway.UserID, rules Rules) Session {
	if len(rules.BetOptions) == 0 {
		rules.BetOptions = DefaultBetOptions
	}
	return Session{
		Phase:  PhaseIdle,
		UserID: userID,
		Rules:  rules,
	}
}

func ContainsEffect(effects []Effect, t EffectType) bool {
	for _, e := range effects {
		if e.Type == t {
			return true
		}
	}
	return false
}

// PhaseTrail returns the phases an effect list walked through, in order.
func PhaseTrail(effects []Effect) []Phase {
	var out []Phase
	for _, e := range effects {
		if e.Type == EffPhaseChanged {
			out = append(out, e.Phase)
		}
	}
	return out
}

func HoldsGame(p Phase) bool {
	return gamePhases[p]
}

// Remote reports whether the command needs a call to the game service
// before it can be applied.
func Remote(t CommandType) bool {
	switch t {
	case CmdJoin, CmdContinue, CmdClaim, CmdAccept, CmdCall, CmdBingo:
		return true
	}
	return false
}

// ParseCommand maps a player-facing action name to its command type. Poll
// results are internal and cannot be dispatched by name.
func ParseCommand(name string) (CommandType, bool) {
	t := CommandType(name)
	if t == CmdPollResult {
		return "", false
	}
	_, ok := AllowedIn[t]
	return t, ok
}

// CheckInvariant verifies a resting session: the game id is present exactly
// in game-holding phases, and Finished is never a resting phase.
func CheckInvariant(s Session) error {
	if s.Phase == PhaseFinished {
		return fmt.Errorf("session resting in %s", s.Phase)
	}
	if HoldsGame(s.Phase) != (s.GameID != "") {
		return fmt.Errorf("phase %s with game id %q", s.Phase, s.GameID)
	}
	return nil
}

func CanTransition(from, to Phase) bool {
	return slices.Contains(Transitions[from], to)
}
