package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_PersistsQuestionsInOrder(t *testing.T) {
	h := newHarness(t)
	req := feedbackRequest()
	req.Questions = append(req.Questions, models.Choice{Label: "Color", Options: []models.ChoiceOption{{Label: "Red"}, {Label: "Blue"}}})

	form := h.publish(t, req)
	assert.Equal(t, "guild:Feedback", form.ID)
	assert.NotEmpty(t, form.MessageID)

	questions, err := h.store.GetQuestions(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Questions, lo.Map(questions, func(item models.Question, _ int) models.QuestionSpec {
		return item.Spec()
	}))
	for idx, question := range questions {
		assert.Equal(t, models.QuestionID(form.ID, idx), question.ID)
	}

	sent := h.platform.SentTo(entryChannel)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Message.EntryPoint)
	assert.Equal(t, form.ID, sent[0].Message.EntryPoint.FormID)
	assert.False(t, sent[0].Message.EntryPoint.Disabled)
	assert.Equal(t, "Responses are not anonymous", sent[0].Message.Embeds[0].Footer)

	entry, err := h.publisher.Lookup(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Questions, entry.Questions)
}

func TestPublish_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(req *PublishRequest)
	}{
		{name: "no questions", mutate: func(req *PublishRequest) { req.Questions = nil }},
		{name: "empty name", mutate: func(req *PublishRequest) { req.Name = "  " }},
		{name: "long name", mutate: func(req *PublishRequest) { req.Name = strings.Repeat("a", 46) }},
		{name: "no duration", mutate: func(req *PublishRequest) { req.Duration = 0 }},
		{name: "too many users", mutate: func(req *PublishRequest) {
			req.Permission = &Permission{Users: make([]string, 26)}
		}},
		{name: "blank label", mutate: func(req *PublishRequest) {
			req.Questions = []models.QuestionSpec{models.FreeText{Label: " "}}
		}},
		{name: "choice without options", mutate: func(req *PublishRequest) {
			req.Questions = []models.QuestionSpec{models.Choice{Label: "Color"}}
		}},
		{name: "unknown channel", mutate: func(req *PublishRequest) { req.ChannelID = "gone" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := feedbackRequest()
			tt.mutate(&req)

			_, err := h.publisher.Publish(context.Background(), req)
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
			assert.True(t, IsUserError(err))

			forms, err := h.store.ListForms(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, forms)
			assert.Empty(t, h.platform.Sent())
		})
	}
}

func TestPublish_ReadOnlyEntryChannelAborts(t *testing.T) {
	h := newHarness(t)
	h.platform.SetReadOnly(entryChannel)

	_, err := h.publisher.Publish(context.Background(), feedbackRequest())
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, h.platform.Sent())
}

func TestPublish_ReadOnlyResponseChannelWarns(t *testing.T) {
	h := newHarness(t)
	h.platform.SetReadOnly(responseChannel)
	req := feedbackRequest()
	req.ResponseChannelID = lo.ToPtr(responseChannel)

	result, err := h.publisher.Publish(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 1)

	exists, err := h.store.FormExists(context.Background(), result.Form.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPublish_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.publish(t, feedbackRequest())

	_, err := h.publisher.Publish(context.Background(), feedbackRequest())
	assert.ErrorIs(t, err, ErrFormExists)
	assert.Len(t, h.platform.Sent(), 1)
}

func TestPublish_ClampsDuration(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.publisher.now = func() time.Time { return now }

	req := feedbackRequest()
	req.Duration = 30 * 24 * time.Hour
	form := h.publish(t, req)

	assert.Equal(t, now.Add(MaxFormDuration), form.FinishesAt)
}

func TestPublish_AnonymousFooter(t *testing.T) {
	h := newHarness(t)
	req := feedbackRequest()
	req.Anonymous = true
	form := h.publish(t, req)

	stored, err := h.store.GetForm(context.Background(), form.ID)
	require.NoError(t, err)
	assert.True(t, stored.Anonymous)
	assert.Equal(t, "Responses are anonymous", h.platform.SentTo(entryChannel)[0].Message.Embeds[0].Footer)
}

func TestPublish_DisableTimer(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.publisher.now = func() time.Time { return now }

	req := feedbackRequest()
	req.Duration = 20 * time.Millisecond
	form := h.publish(t, req)

	assert.Eventually(t, func() bool {
		edits := h.platform.Edits()
		return len(edits) == 1 && edits[0].Message.EntryPoint.Disabled
	}, time.Second, 5*time.Millisecond)

	// the timer is cosmetic, the form stays until it is closed
	exists, err := h.store.FormExists(context.Background(), form.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRehydrate(t *testing.T) {
	h := newHarness(t)
	form := h.publish(t, feedbackRequest())

	fresh := NewPublisher(h.store, h.platform)
	t.Cleanup(func() { fresh.Forget(form.ID) })

	count, err := fresh.Rehydrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	live := fresh.Live(guildID)
	require.Len(t, live, 1)
	assert.Equal(t, form.ID, live[0].Form.ID)
	assert.Equal(t, feedbackRequest().Questions, live[0].Questions)
	assert.Equal(t, entryChannel, live[0].Ref().ChannelID)
}

func TestRehydrate_PastDeadlineDisablesAtOnce(t *testing.T) {
	h := newHarness(t)
	seedForm(t, h.store, "Old", time.Now().Add(-time.Hour))
	ref, err := h.platform.SendMessage(context.Background(), entryChannel, EntryMessage(models.Form{ID: "guild:Old"}, false))
	require.NoError(t, err)
	require.Equal(t, "1", ref.MessageID)

	_, err = h.publisher.Rehydrate(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(h.platform.Edits()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLookup_Missing(t *testing.T) {
	h := newHarness(t)
	_, err := h.publisher.Lookup(context.Background(), "guild:nope")
	assert.ErrorIs(t, err, ErrFormNotFound)
}
