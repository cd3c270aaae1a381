package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpix/api/internal/config"
	"promptpix/api/internal/models"
)

type failingStore struct {
	err error
}

func (s *failingStore) Used(context.Context, string) (int, error) {
	return 0, s.err
}

func (s *failingStore) Increment(context.Context, string) (int, error) {
	return 0, s.err
}

func newTestTracker() *Tracker {
	tracker := NewTracker(NewMemoryStore(), NewMemoryStore(), config.QuotaConfig{
		AnonymousLimit: 5,
		DailyLimit:     50,
	})
	tracker.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return tracker
}

func TestTrackerAnonymousLimit(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker()
	device := models.AnonymousIdentity("device-1")

	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.CheckAllowed(ctx, device))
		state, err := tracker.RecordUsage(ctx, device)
		require.NoError(t, err)
		assert.Equal(t, i+1, state.Used)
		assert.Equal(t, 5, state.Limit)
		assert.Equal(t, models.QuotaWindowLifetime, state.Window)
	}

	err := tracker.CheckAllowed(ctx, device)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestTrackerUserDailyLimit(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker()
	user := models.UserIdentity("user-1")

	state, err := tracker.RecordUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Used)
	assert.Equal(t, 50, state.Limit)
	assert.Equal(t, models.QuotaWindowDaily, state.Window)
	assert.Equal(t, 49, state.Remaining())
}

func TestTrackerDailyKeyRollsOver(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker()
	user := models.UserIdentity("user-1")

	_, err := tracker.RecordUsage(ctx, user)
	require.NoError(t, err)
	_, err = tracker.RecordUsage(ctx, user)
	require.NoError(t, err)

	// Next day, same user: the dated key starts a fresh counter.
	tracker.now = func() time.Time {
		return time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)
	}
	state, err := tracker.State(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Used)
}

func TestTrackerPoolsNeverMerge(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker()

	// Same raw id used as a device and as a user counts separately.
	device := models.AnonymousIdentity("same-id")
	user := models.UserIdentity("same-id")

	for i := 0; i < 5; i++ {
		_, err := tracker.RecordUsage(ctx, device)
		require.NoError(t, err)
	}
	require.ErrorIs(t, tracker.CheckAllowed(ctx, device), ErrQuotaExceeded)

	state, err := tracker.State(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Used)
	assert.NoError(t, tracker.CheckAllowed(ctx, user))
}

func TestTrackerPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("redis: connection refused")
	tracker := NewTracker(NewMemoryStore(), &failingStore{err: storeErr}, config.QuotaConfig{
		AnonymousLimit: 5,
		DailyLimit:     50,
	})
	user := models.UserIdentity("user-1")

	err := tracker.CheckAllowed(ctx, user)
	assert.ErrorIs(t, err, storeErr)

	_, err = tracker.RecordUsage(ctx, user)
	assert.ErrorIs(t, err, storeErr)
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Increment(ctx, "quota:device:abc")
	require.NoError(t, err)
	store.Reset()

	used, err := store.Used(ctx, "quota:device:abc")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}
