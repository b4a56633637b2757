// Package janitor removes media objects of ephemeral messages after they expire,
// so a vanished photo or video cannot be fetched from storage later.
package janitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"couple-service/internal/ephemeral"
	"couple-service/internal/models"
	"couple-service/internal/observability"
)

// ExpiredMedia is the slice of the message store the janitor needs.
type ExpiredMedia interface {
	ListExpiredMedia(ctx context.Context, now time.Time, limit int) ([]models.Message, error)
	ClearMediaKey(ctx context.Context, messageID int) error
}

// Deleter removes stored objects.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Janitor purges expired media in batches.
type Janitor struct {
	messages ExpiredMedia
	media    Deleter
	clock    ephemeral.Clock
	batch    int

	running sync.Mutex
}

// New builds a Janitor. batch <= 0 selects 100.
func New(messages ExpiredMedia, media Deleter, clock ephemeral.Clock, batch int) *Janitor {
	if clock == nil {
		clock = ephemeral.SystemClock{}
	}
	if batch <= 0 {
		batch = 100
	}
	return &Janitor{messages: messages, media: media, clock: clock, batch: batch}
}

// Sweep purges one batch and returns how many objects were removed. The media
// key is cleared only after the object is deleted, so a failed delete is retried
// on the next sweep.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	msgs, err := j.messages.ListExpiredMedia(ctx, j.clock.Now(), j.batch)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, msg := range msgs {
		if err := j.media.Delete(ctx, msg.MediaKey); err != nil {
			observability.IncMediaPurged("failed")
			zap.L().Warn("purge media failed", zap.Int("message_id", msg.ID), zap.String("key", msg.MediaKey), zap.Error(err))
			continue
		}
		if err := j.messages.ClearMediaKey(ctx, msg.ID); err != nil {
			observability.IncMediaPurged("failed")
			zap.L().Warn("clear media key failed", zap.Int("message_id", msg.ID), zap.Error(err))
			continue
		}
		observability.IncMediaPurged("deleted")
		purged++
	}
	return purged, nil
}

// Start sweeps every interval until the returned stop func is called. A sweep
// still running when the next tick fires is not overlapped.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) (stop func()) {
	return j.clock.Every(interval, func() {
		if !j.running.TryLock() {
			return
		}
		defer j.running.Unlock()
		n, err := j.Sweep(ctx)
		if err != nil {
			zap.L().Error("media purge sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			zap.L().Info("purged expired media", zap.Int("count", n))
		}
	})
}
