package master

import (
	"defusal-go/errcode"
	"defusal-go/types"
	"defusal-go/x/timex"
)

var transitions = map[types.Phase][]types.Phase{
	types.PhaseBoot:       {types.PhaseMenu},
	types.PhaseMenu:       {types.PhaseProvision},
	types.PhaseProvision:  {types.PhaseAwaitReady, types.PhaseMenu},
	types.PhaseAwaitReady: {types.PhaseCountdown, types.PhaseEnded},
	types.PhaseCountdown:  {types.PhaseActive},
	types.PhaseActive:     {types.PhaseEnded},
}

// Game owns the session state. All event entry points run on the service
// goroutine and check for a terminal transition before returning.
type Game struct {
	reg   *Registry
	phase types.Phase
	cfg   types.GameConfig

	lives   int
	time    int
	trace   []PeerID
	outcome types.Outcome
	reason  types.EndReason
}

func NewGame(reg *Registry) *Game {
	return &Game{
		reg:     reg,
		phase:   types.PhaseBoot,
		outcome: types.OutcomeUndetermined,
	}
}

func (g *Game) Phase() types.Phase { return g.phase }

// Advance moves to the next phase when the edge is allowed.
func (g *Game) Advance(to types.Phase) error {
	for _, p := range transitions[g.phase] {
		if p == to {
			g.phase = to
			return nil
		}
	}
	return errcode.New(errcode.InvalidTransition, "advance", string(g.phase)+" -> "+string(to))
}

// Configure loads the session budget from a freshly generated configuration.
// Only valid before readiness is awaited.
func (g *Game) Configure(cfg types.GameConfig) error {
	if g.phase != types.PhaseProvision {
		return errcode.New(errcode.InvalidTransition, "configure", "not provisioning")
	}
	if cfg.Lives <= 0 || cfg.Time <= 0 {
		return errcode.New(errcode.InvalidConfig, "configure", "lives and time must be positive")
	}
	g.cfg = cfg
	g.lives = cfg.Lives
	g.time = cfg.Time
	g.trace = make([]PeerID, 0, cfg.Lives)
	return nil
}

func (g *Game) accepting() bool {
	return g.phase == types.PhaseAwaitReady || g.phase == types.PhaseActive
}

// Mistake charges one life to the session. It reports whether the session
// ended as a result.
func (g *Game) Mistake(id PeerID) bool {
	if !g.accepting() || g.lives == 0 {
		return false
	}
	g.lives--
	g.trace = append(g.trace, id)
	if g.lives == 0 {
		g.end(types.OutcomeFailure, types.ReasonLives)
		return true
	}
	return false
}

// CheckSolved ends the session successfully once every bound peer is solved.
func (g *Game) CheckSolved() bool {
	if !g.accepting() || g.reg.Len() == 0 {
		return false
	}
	if g.reg.AllSolved() {
		g.end(types.OutcomeSuccess, types.ReasonSolved)
		return true
	}
	return false
}

// Tick consumes one second of the budget while active.
func (g *Game) Tick() bool {
	if g.phase != types.PhaseActive || g.time == 0 {
		return false
	}
	g.time--
	if g.time == 0 {
		g.end(types.OutcomeFailure, types.ReasonTimeout)
		return true
	}
	return false
}

func (g *Game) end(o types.Outcome, r types.EndReason) {
	if g.outcome != types.OutcomeUndetermined {
		return
	}
	g.outcome = o
	g.reason = r
	g.phase = types.PhaseEnded
}

func (g *Game) Ended() bool              { return g.phase == types.PhaseEnded }
func (g *Game) Outcome() types.Outcome   { return g.outcome }
func (g *Game) Reason() types.EndReason  { return g.reason }
func (g *Game) LivesRemaining() int      { return g.lives }
func (g *Game) TimeRemaining() int       { return g.time }
func (g *Game) Config() types.GameConfig { return g.cfg }
func (g *Game) MistakeTrace() []PeerID   { return append([]PeerID(nil), g.trace...) }

// View snapshots the session for display.
func (g *Game) View() types.SessionView {
	trace := make([]int, len(g.trace))
	for i, id := range g.trace {
		trace[i] = int(id)
	}
	return types.SessionView{
		Phase:          g.phase,
		LivesRemaining: g.lives,
		TimeRemaining:  g.time,
		MistakeTrace:   trace,
		Solved:         g.reg.SolvedCount(),
		Peers:          g.reg.Len(),
		Outcome:        g.outcome,
		TSms:           timex.NowMs(),
	}
}
