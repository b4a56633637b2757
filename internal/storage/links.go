package storage

import (
	"context"
	"time"
)

const (
	// DefaultLinkTTL bounds links for media that does not expire.
	DefaultLinkTTL = 15 * time.Minute
	minLinkTTL     = time.Second
)

// Presigner issues time-limited media links.
type Presigner interface {
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LinkTTL caps the default link lifetime at the time left before expiresAt.
func LinkTTL(expiresAt *time.Time, now time.Time) time.Duration {
	if expiresAt == nil {
		return DefaultLinkTTL
	}
	left := expiresAt.Sub(now)
	if left > DefaultLinkTTL {
		return DefaultLinkTTL
	}
	if left < minLinkTTL {
		return minLinkTTL
	}
	return left
}
