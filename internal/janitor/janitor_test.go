package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"couple-service/internal/ephemeral"
	"couple-service/internal/mocks"
	"couple-service/internal/models"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestSweepDeletesThenClears(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	store := new(mocks.MediaStoreMock)
	clock := ephemeral.NewManualClock(start)

	repo.On("ListExpiredMedia", mock.Anything, start, 10).Return([]models.Message{
		{ID: 1, MediaKey: "chats/1/a.jpg"},
		{ID: 2, MediaKey: "chats/1/b.mp4"},
	}, nil).Once()
	store.On("Delete", mock.Anything, "chats/1/a.jpg").Return(nil).Once()
	store.On("Delete", mock.Anything, "chats/1/b.mp4").Return(assert.AnError).Once()
	repo.On("ClearMediaKey", mock.Anything, 1).Return(nil).Once()

	n, err := New(repo, store, clock, 10).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "ClearMediaKey", mock.Anything, 2)
}

func TestSweepListError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	repo.On("ListExpiredMedia", mock.Anything, mock.Anything, 100).Return(nil, assert.AnError).Once()

	_, err := New(repo, new(mocks.MediaStoreMock), ephemeral.NewManualClock(start), 0).Sweep(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStartSweepsOnEveryTick(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	clock := ephemeral.NewManualClock(start)
	repo.On("ListExpiredMedia", mock.Anything, mock.Anything, 5).Return([]models.Message{}, nil)

	stop := New(repo, new(mocks.MediaStoreMock), clock, 5).Start(context.Background(), time.Minute)
	clock.Advance(3 * time.Minute)
	repo.AssertNumberOfCalls(t, "ListExpiredMedia", 3)

	stop()
	clock.Advance(3 * time.Minute)
	repo.AssertNumberOfCalls(t, "ListExpiredMedia", 3)
	assert.Equal(t, 0, clock.PendingTasks())
}
