package ephemeral

import "sync"

// Signal is one environmental hint that the screen may be captured.
type Signal int

const (
	SignalDocumentHidden Signal = iota
	SignalWindowBlur
	SignalFullscreen

	signalCount
)

var signalNames = [signalCount]string{
	SignalDocumentHidden: "document_hidden",
	SignalWindowBlur:     "window_blur",
	SignalFullscreen:     "fullscreen",
}

func (s Signal) valid() bool {
	return s >= 0 && s < signalCount
}

func (s Signal) String() string {
	if !s.valid() {
		return "unknown"
	}
	return signalNames[s]
}

// ParseSignal maps a wire name to a Signal.
func ParseSignal(name string) (Signal, bool) {
	for i, n := range signalNames {
		if n == name {
			return Signal(i), true
		}
	}
	return 0, false
}

// SignalSource delivers capture-risk signal changes. The returned func detaches fn.
type SignalSource interface {
	Subscribe(fn func(sig Signal, active bool)) (unsubscribe func())
}

// SignalBus is a SignalSource fed by Publish. New subscribers are told about every
// signal that is active at the time they subscribe.
type SignalBus struct {
	mu     sync.Mutex
	active [signalCount]bool
	subs   map[uint64]func(Signal, bool)
	nextID uint64
}

func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[uint64]func(Signal, bool))}
}

// Publish records sig and notifies subscribers when its value changed.
func (b *SignalBus) Publish(sig Signal, active bool) {
	if !sig.valid() {
		return
	}
	b.mu.Lock()
	if b.active[sig] == active {
		b.mu.Unlock()
		return
	}
	b.active[sig] = active
	subs := make([]func(Signal, bool), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(sig, active)
	}
}

func (b *SignalBus) Subscribe(fn func(Signal, bool)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	active := b.active
	b.mu.Unlock()

	for i, on := range active {
		if on {
			fn(Signal(i), true)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Active reports the last published value of sig.
func (b *SignalBus) Active(sig Signal) bool {
	if !sig.valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active[sig]
}

// Subscribers returns the number of attached listeners.
func (b *SignalBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
