package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/metrics"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type FinishOptions struct {
	// Destination overrides where the report goes, e.g. the channel /finish
	// was used in.
	Destination string
	// ActorID is checked against the creator when set. Closures started by
	// the sweeper leave it empty.
	ActorID string
}

// Closer closes forms: it delivers the report and deletes every row of the
// form. Closing a form that is already gone does nothing.
type Closer struct {
	store     *Store
	platform  chat.Platform
	publisher *Publisher
	charts    *ChartRenderer

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

func NewCloser(store *Store, platform chat.Platform, publisher *Publisher, charts *ChartRenderer) *Closer {
	return &Closer{
		store:     store,
		platform:  platform,
		publisher: publisher,
		charts:    charts,
		inflight:  make(map[string]chan struct{}),
	}
}

// InFlight reports whether a closure of the form is running.
func (c *Closer) InFlight(formID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[formID]
	return ok
}

// Finish closes the form. Concurrent calls for one form collapse into a
// single closure; callers that arrive while it runs wait for it.
func (c *Closer) Finish(ctx context.Context, formID string, opts FinishOptions) error {
	if opts.ActorID != "" {
		form, err := c.store.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		if opts.ActorID != form.CreatorID {
			return ErrNotCreator
		}
	}

	c.mu.Lock()
	if done, ok := c.inflight[formID]; ok {
		c.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	c.inflight[formID] = done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, formID)
		c.mu.Unlock()
		close(done)
	}()

	return c.finish(ctx, formID, opts)
}

func (c *Closer) finish(ctx context.Context, formID string, opts FinishOptions) error {
	form, err := c.store.GetForm(ctx, formID)
	if errors.Is(err, ErrFormNotFound) {
		if opts.ActorID != "" {
			return err
		}
		metrics.Closures.WithLabelValues("missing").Inc()
		log.Debug().Str("form", formID).Msg("Form already closed, skipping...")
		return nil
	} else if err != nil {
		return err
	}
	if opts.ActorID != "" && opts.ActorID != form.CreatorID {
		return ErrNotCreator
	}

	questions, err := c.store.GetQuestions(ctx, form.ID)
	if err != nil {
		return err
	}
	responses, err := c.store.GetResponses(ctx, lo.Map(questions, func(item models.Question, _ int) string {
		return item.ID
	}))
	if err != nil {
		return err
	}

	result := c.deliver(ctx, form, questions, responses, opts)

	if err := c.platform.EditMessage(ctx, chat.MessageRef{ChannelID: form.ChannelID, MessageID: form.MessageID}, EntryMessage(form, true)); err != nil {
		log.Debug().Err(err).Str("form", form.ID).Msg("Unable to disable entry point, skipping...")
	}

	if err := c.store.DeleteForm(ctx, form.ID); err != nil {
		return fmt.Errorf("delete form %s: %w", form.ID, err)
	}
	c.publisher.Forget(form.ID)

	metrics.Closures.WithLabelValues(result).Inc()
	log.Info().Str("form", form.ID).Str("delivery", result).Int("responses", len(responses)).Msg("Closed form.")
	return nil
}

// deliver sends the report and returns how it went. Failures never stop
// the closure.
func (c *Closer) deliver(ctx context.Context, form models.Form, questions []models.Question, responses []models.Response, opts FinishOptions) string {
	submissions := GroupSubmissions(questions, responses)
	export, err := ExportJSON(submissions)
	if err != nil {
		log.Error().Err(err).Str("form", form.ID).Msg("Unable to encode report...")
		return "skipped"
	}

	send, result, err := c.destination(ctx, form, opts)
	if err != nil {
		log.Warn().Err(err).Str("form", form.ID).Msg("Unable to resolve report destination, skipping...")
		return "skipped"
	}

	messages := []chat.Message{{
		Content: fmt.Sprintf("Form **%s** has finished.", form.Name),
		Embeds: []chat.Embed{{
			Title:       form.Name,
			Description: fmt.Sprintf("Collected %d responses.", len(submissions)),
			Color:       chat.Color,
		}},
		Files: []chat.File{{Name: "form.json", ContentType: "application/json", Data: export}},
	}}
	messages = append(messages, c.chartMessages(ctx, form, questions, responses)...)

	for idx, msg := range messages {
		if err := send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("form", form.ID).Msg("Unable to deliver report, skipping...")
			if idx == 0 {
				return "skipped"
			}
			break
		}
	}
	return result
}

// destination resolves where the report goes: the override, then the
// response channel, then the creator's direct messages. Lookups go through
// the platform, which caches them in production.
func (c *Closer) destination(ctx context.Context, form models.Form, opts FinishOptions) (func(context.Context, chat.Message) error, string, error) {
	channelID := lo.Ternary(opts.Destination != "", opts.Destination, lo.FromPtr(form.ResponseChannelID))
	if channelID != "" {
		if _, err := c.platform.FetchChannel(ctx, channelID); err != nil {
			return nil, "", fmt.Errorf("resolve channel %s: %w", channelID, err)
		}
		return func(ctx context.Context, msg chat.Message) error {
			_, err := c.platform.SendMessage(ctx, channelID, msg)
			return err
		}, "channel", nil
	}

	if _, err := c.platform.FetchUser(ctx, form.CreatorID); err != nil {
		return nil, "", fmt.Errorf("resolve creator %s: %w", form.CreatorID, err)
	}
	return func(ctx context.Context, msg chat.Message) error {
		_, err := c.platform.SendDirect(ctx, form.CreatorID, msg)
		return err
	}, "direct", nil
}

func (c *Closer) chartMessages(ctx context.Context, form models.Form, questions []models.Question, responses []models.Response) []chat.Message {
	var out []chat.Message
	for _, question := range questions {
		if _, ok := question.Spec().(models.Choice); !ok {
			continue
		}
		counts := CountOptions(question, responses)
		if lo.SumBy(counts, func(item OptionCount) int { return item.Count }) == 0 {
			continue
		}

		charts, err := c.charts.Render(ctx, question.Label, counts)
		if err != nil {
			log.Warn().Err(err).Str("form", form.ID).Str("question", question.ID).Msg("Unable to render charts...")
			if len(charts.Pie) == 0 {
				continue
			}
		}
		msg := chat.Message{
			Embeds: []chat.Embed{{
				Title: question.Label,
				Color: chat.Color,
				Fields: lo.Map(counts, func(item OptionCount, _ int) chat.Field {
					return chat.Field{Name: item.Label, Value: fmt.Sprintf("%d", item.Count), Inline: true}
				}),
				Image: "pie.png",
			}},
			Files: []chat.File{{Name: "pie.png", ContentType: "image/png", Data: charts.Pie}},
		}
		if len(charts.Bar) > 0 {
			msg.Files = append(msg.Files, chat.File{Name: "bar.png", ContentType: "image/png", Data: charts.Bar})
		}
		out = append(out, msg)
	}
	return out
}
