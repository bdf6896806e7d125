package services

import (
	"context"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat/chattest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/database/databasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_DispatchesExpiredOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	expired := h.publish(t, feedbackRequest())
	later := feedbackRequest()
	later.Name = "Later"
	later.Duration = 100 * time.Hour
	h.publish(t, later)

	dispatched, err := h.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, dispatched)

	h.expire(2 * time.Hour)
	dispatched, err = h.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
	h.sweeper.Wait()

	assert.Len(t, h.platform.DirectTo(creatorID), 1)
	exists, err := h.store.FormExists(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dispatched, err = h.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, dispatched)
}

func TestSweep_SkipsFormsBeingClosed(t *testing.T) {
	h := newHarness(t)
	form := h.publish(t, feedbackRequest())

	done := make(chan struct{})
	h.closer.mu.Lock()
	h.closer.inflight[form.ID] = done
	h.closer.mu.Unlock()

	h.expire(2 * time.Hour)
	dispatched, err := h.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dispatched)

	h.closer.mu.Lock()
	delete(h.closer.inflight, form.ID)
	h.closer.mu.Unlock()
	close(done)
}

func TestSweeper_WaitsForReady(t *testing.T) {
	platform := chattest.NotReady()
	platform.AddChannel(chat.Channel{ID: entryChannel, ScopeID: guildID})
	platform.AddUser(chat.User{ID: creatorID, Name: "Creator"})

	store := NewStore(databasetest.Open(t))
	publisher := NewPublisher(store, platform)
	closer := NewCloser(store, platform, publisher, NewChartRenderer(1))
	sweeper := NewSweeper(store, platform, closer, time.Hour)

	seedForm(t, store, "Old", time.Now().Add(-time.Minute))

	require.NoError(t, sweeper.Start(context.Background()))
	t.Cleanup(sweeper.Stop)
	assert.Error(t, sweeper.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)
	exists, err := store.FormExists(context.Background(), "guild:Old")
	require.NoError(t, err)
	assert.True(t, exists)

	platform.MarkReady()
	assert.Eventually(t, func() bool {
		exists, err := store.FormExists(context.Background(), "guild:Old")
		return err == nil && !exists
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweeper_NoDispatchAfterStop(t *testing.T) {
	platform := chattest.NotReady()
	platform.AddChannel(chat.Channel{ID: entryChannel, ScopeID: guildID})
	platform.AddUser(chat.User{ID: creatorID, Name: "Creator"})

	store := NewStore(databasetest.Open(t))
	closer := NewCloser(store, platform, NewPublisher(store, platform), NewChartRenderer(1))
	sweeper := NewSweeper(store, platform, closer, time.Hour)
	seedForm(t, store, "Old", time.Now().Add(-time.Minute))

	require.NoError(t, sweeper.Start(context.Background()))
	sweeper.Stop()

	dispatched, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dispatched)

	exists, err := store.FormExists(context.Background(), "guild:Old")
	require.NoError(t, err)
	assert.True(t, exists)
}
