package ephemeral

import (
	"sync"
	"time"
)

// Viewer renders one message: it binds a Countdown to the record's expiry and a
// Gate to the shared signal source, and reports every change through onChange.
type Viewer struct {
	record    Record
	expiresAt *time.Time
	signals   SignalSource
	onChange  func(View)

	gate      *Gate
	countdown *Countdown

	mu          sync.Mutex
	mounted     bool
	unsubscribe func()
}

// NewViewer prepares a viewer. signals and onChange may be nil.
func NewViewer(rec Record, clock Clock, signals SignalSource, onChange func(View)) *Viewer {
	v := &Viewer{
		record:    rec,
		expiresAt: ParseExpiresAt(rec.ExpiresAt),
		signals:   signals,
		onChange:  onChange,
		gate:      NewGate(),
	}
	v.countdown = NewCountdown(clock, func(int) { v.emit() }, v.gate.Expire)
	return v
}

// Gated reports whether the reveal gate applies to this record at all.
func (v *Viewer) Gated() bool {
	return v.record.IsEphemeral
}

// Mount attaches the viewer to its signal source and starts the countdown.
func (v *Viewer) Mount() {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.mu.Unlock()

	if !v.Gated() {
		v.emit()
		return
	}

	if v.signals != nil {
		unsubscribe := v.signals.Subscribe(func(sig Signal, active bool) {
			v.gate.SetSignal(sig, active)
			v.emit()
		})
		v.mu.Lock()
		v.unsubscribe = unsubscribe
		v.mu.Unlock()
	}

	v.countdown.Bind(v.expiresAt)
	if v.expiresAt == nil {
		v.emit()
	}
}

// Unmount releases the countdown task and the signal subscription.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mounted = false
	v.mu.Unlock()

	v.countdown.Stop()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Reveal is the user activation entry point.
func (v *Viewer) Reveal() View {
	if v.Gated() {
		v.gate.Reveal()
	}
	view := v.View()
	v.notify(view)
	return view
}

// View renders the current state.
func (v *Viewer) View() View {
	if !v.Gated() {
		return View{
			Kind:        ViewMedia,
			State:       StateRevealed.String(),
			MediaType:   v.record.Type,
			MediaURL:    v.record.MediaURL,
			Controls:    v.record.Type == TypeVideo,
			ContextMenu: true,
		}
	}
	if v.countdown.Expired() {
		v.gate.Expire()
	}
	return Render(v.gate.State(), v.gate.Blocked(), v.record.Type, v.record.MediaURL, v.countdown.Label())
}

// State exposes the gate state.
func (v *Viewer) State() State {
	if v.countdown.Expired() {
		v.gate.Expire()
	}
	return v.gate.State()
}

// Record returns the record this viewer renders.
func (v *Viewer) Record() Record {
	return v.record
}

func (v *Viewer) emit() {
	v.notify(v.View())
}

func (v *Viewer) notify(view View) {
	if v.onChange != nil {
		v.onChange(view)
	}
}
