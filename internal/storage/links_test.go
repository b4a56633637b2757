package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkTTL(t *testing.T) {
	now := time.Now()
	soon := now.Add(40 * time.Second)
	later := now.Add(2 * time.Hour)
	past := now.Add(-time.Minute)

	assert.Equal(t, DefaultLinkTTL, LinkTTL(nil, now))
	assert.Equal(t, 40*time.Second, LinkTTL(&soon, now))
	assert.Equal(t, DefaultLinkTTL, LinkTTL(&later, now))
	assert.Equal(t, time.Second, LinkTTL(&past, now))
}
