package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"couple-service/internal/ephemeral"
	"couple-service/internal/mocks"
	"couple-service/internal/models"
	"couple-service/internal/repositories"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []ServerFrame
}

func (r *frameRecorder) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, v.(ServerFrame))
	return nil
}

func (r *frameRecorder) last(t *testing.T) ServerFrame {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.frames)
	return r.frames[len(r.frames)-1]
}

var sessionStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ephemeralMessage(id int, expiresIn time.Duration) models.Message {
	expires := sessionStart.Add(expiresIn)
	return models.Message{
		ID:          id,
		ChatID:      5,
		SenderID:    2,
		Type:        models.MessageEphemeralImage,
		MediaKey:    "chats/5/p.jpg",
		IsEphemeral: true,
		ExpiresAt:   &expires,
	}
}

func newTestSession(t *testing.T, msgs ...models.Message) (*RevealSession, *frameRecorder, *ephemeral.ManualClock, *mocks.MediaStoreMock) {
	t.Helper()
	repo := new(mocks.MessageRepositoryMock)
	for _, m := range msgs {
		repo.On("GetMessage", mock.Anything, m.ID).Return(m, nil)
	}
	repo.On("GetMessage", mock.Anything, mock.Anything).Return(models.Message{}, repositories.ErrMessageNotFound)
	links := new(mocks.MediaStoreMock)
	links.On("PresignURL", mock.Anything, mock.Anything, mock.Anything).Return("https://cdn/p.jpg", nil)
	clock := ephemeral.NewManualClock(sessionStart)
	out := &frameRecorder{}
	return NewRevealSession(5, 1, out, repo, links, clock), out, clock, links
}

func frame(t *testing.T, v ClientFrame) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestRevealSessionRevealThenExpire(t *testing.T) {
	session, out, clock, _ := newTestSession(t, ephemeralMessage(7, 3*time.Second))
	ctx := context.Background()

	require.NoError(t, session.HandleFrame(ctx, frame(t, ClientFrame{Type: FrameWatch, MessageID: 7})))
	first := out.last(t)
	assert.Equal(t, FrameView, first.Type)
	assert.Equal(t, 7, first.MessageID)
	assert.Equal(t, ephemeral.ViewOverlay, first.View.Kind)
	assert.Equal(t, ephemeral.LabelTapToView, first.View.Overlay.Label)
	assert.Equal(t, "3s", first.View.Countdown)

	require.NoError(t, session.HandleFrame(ctx, frame(t, ClientFrame{Type: FrameReveal, MessageID: 7})))
	revealed := out.last(t)
	assert.Equal(t, ephemeral.ViewMedia, revealed.View.Kind)
	assert.Equal(t, "https://cdn/p.jpg", revealed.View.MediaURL)

	clock.Advance(3 * time.Second)
	gone := out.last(t)
	assert.Equal(t, ephemeral.ViewVanished, gone.View.Kind)
	assert.Equal(t, ephemeral.PlaceholderImage, gone.View.Placeholder)
	assert.Empty(t, gone.View.MediaURL)
	assert.Equal(t, 0, clock.PendingTasks())
}

func TestRevealSessionSignalRelocksAllViewers(t *testing.T) {
	session, out, _, _ := newTestSession(t, ephemeralMessage(7, time.Minute), ephemeralMessage(8, time.Minute))
	ctx := context.Background()

	require.NoError(t, session.Watch(ctx, 7))
	require.NoError(t, session.Watch(ctx, 8))
	require.NoError(t, session.Reveal(7))
	require.Equal(t, ephemeral.ViewMedia, out.last(t).View.Kind)

	require.NoError(t, session.HandleFrame(ctx, frame(t, ClientFrame{Type: FrameSignal, Signal: "window_blur", Active: true})))

	out.mu.Lock()
	tail := out.frames[len(out.frames)-2:]
	out.mu.Unlock()
	for _, f := range tail {
		assert.Equal(t, ephemeral.ViewOverlay, f.View.Kind)
		assert.Equal(t, ephemeral.LabelCaptureForbidden, f.View.Overlay.Label)
		assert.True(t, f.View.Overlay.Opaque)
	}

	// reveal is refused while the risk is active
	require.NoError(t, session.Reveal(7))
	assert.Equal(t, ephemeral.StateForceLocked.String(), out.last(t).View.State)
}

func TestRevealSessionExpiredMessageHasNoLink(t *testing.T) {
	session, out, _, links := newTestSession(t, ephemeralMessage(9, -time.Second))

	require.NoError(t, session.Watch(context.Background(), 9))
	last := out.last(t)
	assert.Equal(t, ephemeral.ViewVanished, last.View.Kind)
	links.AssertNotCalled(t, "PresignURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevealSessionRejectsForeignMessages(t *testing.T) {
	foreign := ephemeralMessage(10, time.Minute)
	foreign.ChatID = 99
	hidden := ephemeralMessage(11, time.Minute)
	hidden.DeletedByReceiver = true
	text := models.Message{ID: 12, ChatID: 5, SenderID: 2, Type: models.MessageText}
	session, _, _, _ := newTestSession(t, foreign, hidden, text)
	ctx := context.Background()

	assert.ErrorIs(t, session.Watch(ctx, 10), errMessageMissing)
	assert.ErrorIs(t, session.Watch(ctx, 11), errMessageMissing)
	assert.ErrorIs(t, session.Watch(ctx, 12), errNotMedia)
	assert.ErrorIs(t, session.Watch(ctx, 404), errMessageMissing)
	assert.Equal(t, 0, session.Watching())
}

func TestRevealSessionFrameErrors(t *testing.T) {
	session, _, _, _ := newTestSession(t)
	ctx := context.Background()

	assert.Error(t, session.HandleFrame(ctx, []byte(`not json`)))
	assert.ErrorIs(t, session.HandleFrame(ctx, []byte(`{"type":"dance"}`)), errUnknownFrame)
	assert.ErrorIs(t, session.HandleFrame(ctx, []byte(`{"type":"signal","signal":"screenshot","active":true}`)), errUnknownSignal)
	assert.ErrorIs(t, session.HandleFrame(ctx, []byte(`{"type":"reveal","message_id":3}`)), errNotWatching)
}

func TestRevealSessionCloseReleasesViewers(t *testing.T) {
	session, _, clock, _ := newTestSession(t, ephemeralMessage(7, time.Minute), ephemeralMessage(8, time.Minute))
	ctx := context.Background()

	require.NoError(t, session.Watch(ctx, 7))
	require.NoError(t, session.Watch(ctx, 8))
	require.Equal(t, 2, clock.PendingTasks())
	require.Equal(t, 2, session.signals.Subscribers())

	session.Unwatch(8)
	require.Equal(t, 1, clock.PendingTasks())

	session.Close()
	assert.Equal(t, 0, clock.PendingTasks())
	assert.Equal(t, 0, session.signals.Subscribers())
	assert.Equal(t, 0, session.Watching())

	require.NoError(t, session.Watch(ctx, 7))
	assert.Equal(t, 0, session.Watching())
}

func TestRevealSessionCountsStateChangesNotTicks(t *testing.T) {
	session, out, clock, _ := newTestSession(t, ephemeralMessage(7, 5*time.Second))
	var counted []string
	session.countTransition = func(state string) { counted = append(counted, state) }
	ctx := context.Background()

	require.NoError(t, session.Watch(ctx, 7))
	clock.Advance(2 * time.Second)
	require.NoError(t, session.Reveal(7))
	require.NoError(t, session.Reveal(7))
	clock.Advance(3 * time.Second)

	assert.Equal(t, ephemeral.ViewVanished, out.last(t).View.Kind)
	assert.Greater(t, len(out.frames), len(counted), "ticks still reach the client")
	assert.Equal(t, []string{
		ephemeral.StateLocked.String(),
		ephemeral.StateRevealed.String(),
		ephemeral.StateVanished.String(),
	}, counted)
}
