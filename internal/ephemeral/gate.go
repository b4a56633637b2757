package ephemeral

import "sync"

// State is the visibility state of one gated message.
type State int

const (
	StateLocked State = iota
	StateRevealed
	StateForceLocked
	StateVanished
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateRevealed:
		return "revealed"
	case StateForceLocked:
		return "force_locked"
	case StateVanished:
		return "vanished"
	default:
		return "unknown"
	}
}

// Gate keeps ephemeral media hidden until the viewer explicitly reveals it, and
// re-locks it while any capture-risk signal is active. Once vanished it never
// changes again.
type Gate struct {
	mu       sync.Mutex
	unlocked bool
	vanished bool
	active   [signalCount]bool
}

// NewGate returns a gate in StateLocked.
func NewGate() *Gate {
	return &Gate{}
}

// Reveal unlocks the gate unless it is force-locked or vanished. Repeated calls
// are harmless.
func (g *Gate) Reveal() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.vanished && !g.blockedLocked() {
		g.unlocked = true
	}
	return g.stateLocked()
}

// SetSignal records one capture-risk signal. Activating any signal drops a prior
// reveal; clearing signals never reveals on its own.
func (g *Gate) SetSignal(sig Signal, active bool) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.vanished || !sig.valid() {
		return g.stateLocked()
	}
	g.active[sig] = active
	if active {
		g.unlocked = false
	}
	return g.stateLocked()
}

// Expire moves the gate to StateVanished for good.
func (g *Gate) Expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vanished = true
	g.unlocked = false
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

// Blocked reports whether any capture-risk signal is active.
func (g *Gate) Blocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockedLocked()
}

// Unlocked reports whether the viewer has revealed the media since the last re-lock.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// ShowOverlay is !unlocked || blocked.
func (g *Gate) ShowOverlay() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.unlocked || g.blockedLocked()
}

func (g *Gate) blockedLocked() bool {
	for _, on := range g.active {
		if on {
			return true
		}
	}
	return false
}

func (g *Gate) stateLocked() State {
	switch {
	case g.vanished:
		return StateVanished
	case g.blockedLocked():
		return StateForceLocked
	case g.unlocked:
		return StateRevealed
	default:
		return StateLocked
	}
}
