package services

import (
	"context"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat/chattest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/database/databasetest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const (
	guildID         = "guild"
	entryChannel    = "entry"
	responseChannel = "responses"
	creatorID       = "creator"
)

type harness struct {
	platform  *chattest.Platform
	store     *Store
	publisher *Publisher
	collector *Collector
	closer    *Closer
	sweeper   *Sweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	platform := chattest.New()
	platform.AddChannel(chat.Channel{ID: entryChannel, Name: "forms", ScopeID: guildID})
	platform.AddChannel(chat.Channel{ID: responseChannel, Name: "responses", ScopeID: guildID})
	platform.AddUser(chat.User{ID: creatorID, Name: "Creator"})

	store := NewStore(databasetest.Open(t))
	publisher := NewPublisher(store, platform)
	closer := NewCloser(store, platform, publisher, NewChartRenderer(1))
	h := &harness{
		platform:  platform,
		store:     store,
		publisher: publisher,
		collector: NewCollector(store, platform),
		closer:    closer,
		sweeper:   NewSweeper(store, platform, closer, time.Minute),
	}

	t.Cleanup(func() {
		h.sweeper.Wait()
		publisher.mu.Lock()
		ids := lo.Keys(publisher.live)
		publisher.mu.Unlock()
		for _, id := range ids {
			publisher.Forget(id)
		}
	})
	return h
}

func feedbackRequest() PublishRequest {
	return PublishRequest{
		Name:      "Feedback",
		ScopeID:   guildID,
		ChannelID: entryChannel,
		CreatorID: creatorID,
		Duration:  time.Hour,
		Questions: []models.QuestionSpec{
			models.FreeText{Label: "Name"},
			models.FreeText{Label: "Comment", Multiline: true},
		},
		Permission: &Permission{Everyone: true},
	}
}

func (h *harness) publish(t *testing.T, req PublishRequest) models.Form {
	t.Helper()
	result, err := h.publisher.Publish(context.Background(), req)
	require.NoError(t, err)
	return result.Form
}

func member(id, name string, roles ...string) chat.Member {
	return chat.Member{User: chat.User{ID: id, Name: name}, RoleIDs: roles}
}

// expire moves every clock past the deadline of the published forms.
func (h *harness) expire(by time.Duration) {
	later := func() time.Time { return time.Now().Add(by) }
	h.sweeper.now = later
}
