package services

import (
	"context"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSubmissions(t *testing.T) {
	questions := []models.Question{
		models.NewQuestion("guild:f", 0, models.FreeText{Label: "Name"}),
		models.NewQuestion("guild:f", 1, models.FreeText{Label: "Comment"}),
	}
	first := time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)
	second := first.Add(time.Second)

	responses := []models.Response{
		{QuestionID: "guild:f#0", RespondedAt: first, Text: "Ana", Submitter: lo.ToPtr("Ana")},
		{QuestionID: "guild:f#1", RespondedAt: first, Text: "Great", Submitter: lo.ToPtr("Ana")},
		{QuestionID: "guild:f#0", RespondedAt: first, Text: "Bo", Submitter: lo.ToPtr("Bo")},
		{QuestionID: "guild:f#1", RespondedAt: first, Text: "Fine", Submitter: lo.ToPtr("Bo")},
		{QuestionID: "guild:f#0", RespondedAt: second, Text: "?", Submitter: nil},
		{QuestionID: "guild:f#1", RespondedAt: second, Text: "!", Submitter: nil},
	}

	submissions := GroupSubmissions(questions, responses)
	require.Len(t, submissions, 3)
	assert.Equal(t, "Ana", *submissions[0].User)
	assert.Equal(t, map[string]string{"Name": "Bo", "Comment": "Fine"}, submissions[1].Answers)
	assert.Nil(t, submissions[2].User)
	assert.Equal(t, second, submissions[2].Timestamp)
}

func TestExportJSON(t *testing.T) {
	at := time.Unix(1714564800, 500000000).UTC()
	data, err := ExportJSON([]Submission{{
		User:      nil,
		Timestamp: at,
		Answers:   map[string]string{"Name": "Ana"},
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"user":null,"timestamp":1714564800.5,"question_responses":{"Name":"Ana"}}]`, string(data))

	empty, err := ExportJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestCountOptions(t *testing.T) {
	question := models.NewQuestion("guild:f", 0, models.Choice{Label: "Color", Options: []models.ChoiceOption{{Label: "Red"}, {Label: "Blue"}}})
	responses := []models.Response{
		{QuestionID: question.ID, Text: "Red"},
		{QuestionID: question.ID, Text: "red"},
		{QuestionID: question.ID, Text: "Blue"},
		{QuestionID: "guild:f#1", Text: "Red"},
	}

	assert.Equal(t, []OptionCount{{Label: "Red", Count: 2}, {Label: "Blue", Count: 1}}, CountOptions(question, responses))
}

func TestChartRenderer(t *testing.T) {
	tests := []struct {
		name   string
		counts []OptionCount
	}{
		{name: "uneven", counts: []OptionCount{{Label: "Red", Count: 2}, {Label: "Blue", Count: 0}}},
		{name: "single option", counts: []OptionCount{{Label: "Yes", Count: 3}}},
		{name: "tied", counts: []OptionCount{{Label: "Red", Count: 1}, {Label: "Blue", Count: 1}}},
	}

	renderer := NewChartRenderer(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charts, err := renderer.Render(context.Background(), "Color", tt.counts)
			require.NoError(t, err)
			assert.Equal(t, []byte("\x89PNG"), charts.Pie[:4])
			assert.Equal(t, []byte("\x89PNG"), charts.Bar[:4])
		})
	}

	_, err := renderer.Render(context.Background(), "Color", []OptionCount{{Label: "Red"}})
	assert.Error(t, err)
}

func TestChartRenderer_RespectsContext(t *testing.T) {
	renderer := NewChartRenderer(1)
	renderer.slots <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := renderer.Render(ctx, "Color", []OptionCount{{Label: "Red", Count: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}
