package ephemeral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSignal(t *testing.T) {
	for _, name := range []string{"document_hidden", "window_blur", "fullscreen"} {
		sig, ok := ParseSignal(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, sig.String())
	}
	_, ok := ParseSignal("screenshot")
	assert.False(t, ok)
}

func TestSignalBusPublishesChangesOnly(t *testing.T) {
	bus := NewSignalBus()
	var got []bool
	unsubscribe := bus.Subscribe(func(sig Signal, active bool) {
		assert.Equal(t, SignalWindowBlur, sig)
		got = append(got, active)
	})

	bus.Publish(SignalWindowBlur, true)
	bus.Publish(SignalWindowBlur, true)
	bus.Publish(SignalWindowBlur, false)
	unsubscribe()
	bus.Publish(SignalWindowBlur, true)

	assert.Equal(t, []bool{true, false}, got)
	assert.True(t, bus.Active(SignalWindowBlur))
}

func TestSignalBusReplaysActiveSignals(t *testing.T) {
	bus := NewSignalBus()
	bus.Publish(SignalDocumentHidden, true)
	bus.Publish(SignalFullscreen, true)

	replayed := map[Signal]bool{}
	unsubscribe := bus.Subscribe(func(sig Signal, active bool) { replayed[sig] = active })
	defer unsubscribe()

	assert.Equal(t, map[Signal]bool{SignalDocumentHidden: true, SignalFullscreen: true}, replayed)
}
