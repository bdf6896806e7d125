package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/metrics"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Prompt is what a respondent is asked, questions in ordinal order.
type Prompt struct {
	Form      models.Form
	Questions []models.Question
}

// Collector accepts submissions from respondents.
type Collector struct {
	store    *Store
	platform chat.Platform
	now      func() time.Time
}

func NewCollector(store *Store, platform chat.Platform) *Collector {
	return &Collector{store: store, platform: platform, now: time.Now}
}

// Prepare checks the member may take the form and returns its questions.
func (c *Collector) Prepare(ctx context.Context, formID string, member chat.Member) (Prompt, error) {
	form, err := c.authorize(ctx, formID, member)
	if err != nil {
		return Prompt{}, err
	}
	questions, err := c.store.GetQuestions(ctx, form.ID)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Form: form, Questions: questions}, nil
}

func (c *Collector) authorize(ctx context.Context, formID string, member chat.Member) (models.Form, error) {
	form, err := c.store.GetForm(ctx, formID)
	if err != nil {
		return form, err
	}
	permission, err := c.store.GetPermission(ctx, form.ID)
	if err != nil {
		return form, err
	}
	if !CanTake(permission, member) {
		metrics.Denials.Inc()
		return form, ErrPermissionDenied
	}
	return form, nil
}

// Submit stores one submission. Answers are matched to questions by
// position. Every row shares one response time.
func (c *Collector) Submit(ctx context.Context, formID string, member chat.Member, answers []string) error {
	form, err := c.authorize(ctx, formID, member)
	if err != nil {
		return err
	}
	questions, err := c.store.GetQuestions(ctx, form.ID)
	if err != nil {
		return err
	}
	if len(answers) != len(questions) {
		return invalid("answers", "expected %d answers, got %d", len(questions), len(answers))
	}

	respondedAt := c.now().UTC().Truncate(time.Microsecond)
	var submitter *string
	if !form.Anonymous {
		submitter = lo.ToPtr(member.Name)
	}

	responses := make([]models.Response, 0, len(questions))
	for idx, question := range questions {
		text, err := normalizeAnswer(question, answers[idx])
		if err != nil {
			return err
		}
		responses = append(responses, models.Response{
			QuestionID:  question.ID,
			RespondedAt: respondedAt,
			Text:        text,
			Submitter:   submitter,
		})
	}

	if err := c.store.InsertResponses(ctx, responses); err != nil {
		return fmt.Errorf("save responses: %w", err)
	}
	metrics.Submissions.Inc()

	if form.ResponseChannelID != nil {
		msg := chat.Message{Embeds: []chat.Embed{liveEmbed(form, questions, responses, member, respondedAt)}}
		if _, err := c.platform.SendMessage(ctx, *form.ResponseChannelID, msg); err != nil {
			log.Warn().Err(err).Str("form", form.ID).Msg("Unable to forward response to the responses channel...")
		}
	}
	return nil
}

func normalizeAnswer(question models.Question, answer string) (string, error) {
	switch spec := question.Spec().(type) {
	case models.FreeText:
		return answer, nil
	case models.Choice:
		trimmed := strings.TrimSpace(answer)
		option, ok := lo.Find(spec.Options, func(item models.ChoiceOption) bool {
			return strings.EqualFold(item.Label, trimmed)
		})
		if !ok {
			labels := lo.Map(spec.Options, func(item models.ChoiceOption, _ int) string {
				return item.Label
			})
			return "", invalid(spec.Label, "answer must be one of: %s", strings.Join(labels, ", "))
		}
		return option.Label, nil
	default:
		panic(fmt.Sprintf("unknown question spec %T", spec))
	}
}

func liveEmbed(form models.Form, questions []models.Question, responses []models.Response, member chat.Member, at time.Time) chat.Embed {
	embed := chat.Embed{
		Title:     fmt.Sprintf("New response to %s", form.Name),
		Color:     chat.Color,
		Timestamp: at,
	}
	if !form.Anonymous {
		author := member.User
		embed.Author = &author
	}
	for idx, question := range questions {
		embed.Fields = append(embed.Fields, chat.Field{
			Name:  question.Label,
			Value: truncate(lo.Ternary(responses[idx].Text != "", responses[idx].Text, "*No answer*"), 1024),
		})
	}
	return embed
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
