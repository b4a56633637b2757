package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"couple-service/internal/ephemeral"
	"couple-service/internal/models"
	"couple-service/internal/observability"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
)

// Client frame types of the reveal protocol.
const (
	FrameSignal  = "signal"
	FrameWatch   = "watch"
	FrameReveal  = "reveal"
	FrameUnwatch = "unwatch"

	FrameView  = "ephemeral_view"
	FrameError = "error"
)

var (
	errUnknownFrame   = errors.New("unknown frame type")
	errUnknownSignal  = errors.New("unknown signal")
	errNotWatching    = errors.New("message is not watched")
	errNotMedia       = errors.New("message has no media")
	errMessageMissing = errors.New("message not found")
)

// ClientFrame is a frame sent by the client on a chat socket.
type ClientFrame struct {
	Type      string `json:"type"`
	MessageID int    `json:"message_id,omitempty"`
	Signal    string `json:"signal,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// ServerFrame is a reveal protocol frame pushed to the client.
type ServerFrame struct {
	Type      string          `json:"type"`
	MessageID int             `json:"message_id,omitempty"`
	View      *ephemeral.View `json:"view,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// stateChanges remembers the last state a viewer emitted so countdown ticks are
// not counted as transitions.
type stateChanges struct {
	mu   sync.Mutex
	last string
}

func (c *stateChanges) changed(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state == c.last {
		return false
	}
	c.last = state
	return true
}

type frameWriter interface {
	WriteJSON(v interface{}) error
}

// RevealSession owns the viewers of one chat connection. All viewers share the
// connection's signal bus, so a capture-risk signal relocks every watched message.
type RevealSession struct {
	chatID   int
	userID   int
	out      frameWriter
	messages repositories.MessageRepository
	links    storage.Presigner
	clock    ephemeral.Clock
	signals  *ephemeral.SignalBus

	countTransition func(state string)

	mu      sync.Mutex
	viewers map[int]*ephemeral.Viewer
	closed  bool
}

// NewRevealSession creates a session. links may be nil, in which case views carry no media URL.
func NewRevealSession(chatID, userID int, out frameWriter, messages repositories.MessageRepository, links storage.Presigner, clock ephemeral.Clock) *RevealSession {
	if clock == nil {
		clock = ephemeral.SystemClock{}
	}
	return &RevealSession{
		chatID:   chatID,
		userID:   userID,
		out:      out,
		messages: messages,
		links:    links,
		clock:    clock,
		signals:  ephemeral.NewSignalBus(),
		viewers:  make(map[int]*ephemeral.Viewer),

		countTransition: observability.IncEphemeralTransition,
	}
}

// HandleFrame decodes and applies one client frame.
func (s *RevealSession) HandleFrame(ctx context.Context, raw []byte) error {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}
	switch frame.Type {
	case FrameSignal:
		sig, ok := ephemeral.ParseSignal(frame.Signal)
		if !ok {
			return errUnknownSignal
		}
		s.signals.Publish(sig, frame.Active)
		return nil
	case FrameWatch:
		return s.Watch(ctx, frame.MessageID)
	case FrameReveal:
		return s.Reveal(frame.MessageID)
	case FrameUnwatch:
		s.Unwatch(frame.MessageID)
		return nil
	}
	return errUnknownFrame
}

// Watch mounts a viewer for messageID. Watching an already watched message resends its view.
func (s *RevealSession) Watch(ctx context.Context, messageID int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if viewer, ok := s.viewers[messageID]; ok {
		s.mu.Unlock()
		s.send(messageID, viewer.View())
		return nil
	}
	s.mu.Unlock()

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return errMessageMissing
		}
		return err
	}
	if !s.visible(msg) {
		return errMessageMissing
	}
	if !models.IsMediaType(msg.Type) {
		return errNotMedia
	}

	var states stateChanges
	viewer := ephemeral.NewViewer(s.record(ctx, msg), s.clock, s.signals, func(view ephemeral.View) {
		if states.changed(view.State) {
			s.countTransition(view.State)
		}
		s.send(messageID, view)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if existing, ok := s.viewers[messageID]; ok {
		s.mu.Unlock()
		s.send(messageID, existing.View())
		return nil
	}
	s.viewers[messageID] = viewer
	s.mu.Unlock()

	observability.IncEphemeralViewers()
	viewer.Mount()
	return nil
}

// Reveal applies the user activation to a watched message.
func (s *RevealSession) Reveal(messageID int) error {
	s.mu.Lock()
	viewer, ok := s.viewers[messageID]
	s.mu.Unlock()
	if !ok {
		return errNotWatching
	}
	viewer.Reveal()
	return nil
}

// Unwatch unmounts the viewer for messageID.
func (s *RevealSession) Unwatch(messageID int) {
	s.mu.Lock()
	viewer, ok := s.viewers[messageID]
	delete(s.viewers, messageID)
	s.mu.Unlock()
	if ok {
		viewer.Unmount()
		observability.DecEphemeralViewers()
	}
}

// Watching returns the number of mounted viewers.
func (s *RevealSession) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// Close unmounts every viewer. Frames handled after Close are ignored.
func (s *RevealSession) Close() {
	s.mu.Lock()
	viewers := s.viewers
	s.viewers = make(map[int]*ephemeral.Viewer)
	s.closed = true
	s.mu.Unlock()
	for _, viewer := range viewers {
		viewer.Unmount()
		observability.DecEphemeralViewers()
	}
}

func (s *RevealSession) visible(msg models.Message) bool {
	if msg.ChatID != s.chatID || msg.DeletedForAll {
		return false
	}
	if msg.SenderID == s.userID {
		return !msg.DeletedBySender
	}
	return !msg.DeletedByReceiver
}

// record converts a stored message. Expired media gets no link.
func (s *RevealSession) record(ctx context.Context, msg models.Message) ephemeral.Record {
	rec := ephemeral.Record{
		ID:          strconv.Itoa(msg.ID),
		Type:        msg.Type,
		IsEphemeral: msg.IsEphemeral,
		ExpiresAt:   ephemeral.FormatTimestamp(msg.ExpiresAt),
		CreatedAt:   msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	now := s.clock.Now()
	if s.links == nil || msg.MediaKey == "" {
		return rec
	}
	if msg.IsEphemeral && msg.ExpiresAt != nil && !msg.ExpiresAt.After(now) {
		return rec
	}
	url, err := s.links.PresignURL(ctx, msg.MediaKey, storage.LinkTTL(msg.ExpiresAt, now))
	if err != nil {
		zap.L().Warn("presign media failed", zap.Int("message_id", msg.ID), zap.Error(err))
		return rec
	}
	rec.MediaURL = url
	return rec
}

func (s *RevealSession) send(messageID int, view ephemeral.View) {
	if err := s.out.WriteJSON(ServerFrame{Type: FrameView, MessageID: messageID, View: &view}); err != nil {
		zap.L().Debug("ephemeral view not delivered", zap.Int("message_id", messageID), zap.Error(err))
	}
}
