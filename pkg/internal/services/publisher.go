package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/metrics"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	MaxFormDuration  = 168 * time.Hour
	MaxFormQuestions = 5
	MaxAllowed       = 25
)

// Permission is who may take a form as chosen by its creator.
type Permission struct {
	Everyone bool
	Users    []string `validate:"max=25"`
	Roles    []string `validate:"max=25"`
}

type PublishRequest struct {
	Name              string  `validate:"required,max=45"`
	ScopeID           string  `validate:"required"`
	ChannelID         string  `validate:"required"`
	ResponseChannelID *string `validate:"omitempty,min=1"`
	CreatorID         string  `validate:"required"`
	Anonymous         bool
	Duration          time.Duration         `validate:"gt=0"`
	Questions         []models.QuestionSpec `validate:"min=1,max=5"`
	// Permission nil means everyone may respond.
	Permission *Permission
}

type PublishResult struct {
	Form models.Form
	// Warnings are problems that did not stop publication.
	Warnings []string
}

// EntryPoint is a live form as respondents reach it. It only carries
// immutable data.
type EntryPoint struct {
	Form      models.Form
	Questions []models.QuestionSpec
}

func (v EntryPoint) Ref() chat.MessageRef {
	return chat.MessageRef{ChannelID: v.Form.ChannelID, MessageID: v.Form.MessageID}
}

type liveEntry struct {
	EntryPoint
	timer *time.Timer
}

// Publisher turns finished drafts into live forms and keeps the registry of
// entry points. Its disable timers are cosmetic, the sweeper closes forms.
type Publisher struct {
	store    *Store
	platform chat.Platform
	validate *validator.Validate
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*liveEntry
}

func NewPublisher(store *Store, platform chat.Platform) *Publisher {
	return &Publisher{
		store:    store,
		platform: platform,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		live:     make(map[string]*liveEntry),
	}
}

func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	var result PublishResult

	req.Name = strings.TrimSpace(req.Name)
	if err := p.check(req); err != nil {
		return result, err
	}

	formID := models.FormID(req.ScopeID, req.Name)
	if exists, err := p.store.FormExists(ctx, formID); err != nil {
		return result, err
	} else if exists {
		return result, ErrFormExists
	}

	if ok, err := p.platform.CanSend(ctx, req.ChannelID); err != nil && !errors.Is(err, chat.ErrNotFound) {
		return result, fmt.Errorf("check entry channel: %w", err)
	} else if !ok {
		return result, invalid("channel", "I cannot send messages in that channel")
	}
	if req.ResponseChannelID != nil {
		if ok, err := p.platform.CanSend(ctx, *req.ResponseChannelID); err != nil || !ok {
			result.Warnings = append(result.Warnings, "I cannot send messages in the responses channel, responses will not be forwarded there")
		}
	}

	duration := min(req.Duration, MaxFormDuration)
	form := models.Form{
		ID:                formID,
		Name:              req.Name,
		ScopeID:           req.ScopeID,
		ChannelID:         req.ChannelID,
		ResponseChannelID: req.ResponseChannelID,
		CreatorID:         req.CreatorID,
		Anonymous:         req.Anonymous,
		FinishesAt:        p.now().Add(duration).UTC(),
	}

	ref, err := p.platform.SendMessage(ctx, form.ChannelID, EntryMessage(form, false))
	if err != nil {
		return result, fmt.Errorf("send entry point: %w", err)
	}
	form.MessageID = ref.MessageID

	questions := lo.Map(req.Questions, func(item models.QuestionSpec, idx int) models.Question {
		return models.NewQuestion(form.ID, idx, item)
	})

	var permission *models.FormPermission
	if req.Permission != nil {
		permission = &models.FormPermission{
			AllowEveryone: req.Permission.Everyone,
			AllowedUsers:  lo.Uniq(req.Permission.Users),
			AllowedRoles:  lo.Uniq(req.Permission.Roles),
		}
	}

	if err := p.store.CreateForm(ctx, form, questions, permission); err != nil {
		if err := p.platform.EditMessage(ctx, ref, EntryMessage(form, true)); err != nil {
			log.Warn().Err(err).Str("form", form.ID).Msg("Unable to disable entry point of unsaved form...")
		}
		return result, fmt.Errorf("save form: %w", err)
	}

	p.register(form, req.Questions)
	metrics.FormsPublished.Inc()
	log.Info().Str("form", form.ID).Time("finishes", form.FinishesAt).Int("questions", len(questions)).Msg("Published form.")

	result.Form = form
	return result, nil
}

func (p *Publisher) check(req PublishRequest) error {
	if err := p.validate.Struct(req); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return describe(errs[0])
		}
		return &ValidationError{Reason: err.Error()}
	}
	for idx, question := range req.Questions {
		label := strings.TrimSpace(question.QuestionLabel())
		if label == "" {
			return invalid(fmt.Sprintf("question %d", idx+1), "label must not be empty")
		}
		if choice, ok := question.(models.Choice); ok && len(choice.Options) == 0 {
			return invalid(label, "choice questions need at least one option")
		}
	}
	return nil
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "max":
		return invalid(fe.Field(), "must have at most %s items or characters", fe.Param())
	case "min":
		if fe.Field() == "Questions" {
			return invalid(fe.Field(), "a form needs at least one question")
		}
		return invalid(fe.Field(), "must have at least %s items or characters", fe.Param())
	case "gt":
		return invalid(fe.Field(), "must be greater than %s", fe.Param())
	default:
		return invalid(fe.Field(), "failed the %s check", fe.Tag())
	}
}

// Rehydrate re-registers the entry point of every stored form and re-arms
// its disable timer. Timers of forms already past their deadline fire at
// once.
func (p *Publisher) Rehydrate(ctx context.Context) (int, error) {
	forms, err := p.store.ListForms(ctx, "")
	if err != nil {
		return 0, err
	}

	for _, form := range forms {
		questions, err := p.store.GetQuestions(ctx, form.ID)
		if err != nil {
			return 0, fmt.Errorf("load questions of %s: %w", form.ID, err)
		}
		p.register(form, lo.Map(questions, func(item models.Question, _ int) models.QuestionSpec {
			return item.Spec()
		}))
	}

	log.Info().Int("count", len(forms)).Msg("Rehydrated live forms.")
	return len(forms), nil
}

// Lookup returns the entry point of a live form, loading it from storage
// when it is not registered yet.
func (p *Publisher) Lookup(ctx context.Context, formID string) (EntryPoint, error) {
	p.mu.Lock()
	entry, ok := p.live[formID]
	p.mu.Unlock()
	if ok {
		return entry.EntryPoint, nil
	}

	form, err := p.store.GetForm(ctx, formID)
	if err != nil {
		return EntryPoint{}, err
	}
	questions, err := p.store.GetQuestions(ctx, formID)
	if err != nil {
		return EntryPoint{}, err
	}
	return p.register(form, lo.Map(questions, func(item models.Question, _ int) models.QuestionSpec {
		return item.Spec()
	})), nil
}

// Forget drops the entry point and stops its timer.
func (p *Publisher) Forget(formID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.live[formID]; ok {
		entry.timer.Stop()
		delete(p.live, formID)
		metrics.LiveForms.Dec()
	}
}

// Live lists the registered entry points of a scope.
func (p *Publisher) Live(scopeID string) []EntryPoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []EntryPoint
	for _, entry := range p.live {
		if entry.Form.ScopeID == scopeID {
			out = append(out, entry.EntryPoint)
		}
	}
	return out
}

func (p *Publisher) register(form models.Form, questions []models.QuestionSpec) EntryPoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.live[form.ID]; ok {
		entry.timer.Stop()
	} else {
		metrics.LiveForms.Inc()
	}

	entry := &liveEntry{EntryPoint: EntryPoint{Form: form, Questions: questions}}
	entry.timer = time.AfterFunc(form.FinishesAt.Sub(p.now()), func() {
		p.disable(entry.EntryPoint)
	})
	p.live[form.ID] = entry
	return entry.EntryPoint
}

func (p *Publisher) disable(entry EntryPoint) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.platform.EditMessage(ctx, entry.Ref(), EntryMessage(entry.Form, true)); err != nil {
		log.Debug().Err(err).Str("form", entry.Form.ID).Msg("Unable to disable entry point...")
	}
}

// EntryMessage is the message respondents take a form from.
func EntryMessage(form models.Form, disabled bool) chat.Message {
	footer := "Responses are not anonymous"
	if form.Anonymous {
		footer = "Responses are anonymous"
	}
	description := "Press **Take form** below to respond."
	if disabled {
		description = "This form is no longer accepting responses."
	}

	return chat.Message{
		Embeds: []chat.Embed{{
			Title:       form.Name,
			Description: description,
			Color:       chat.Color,
			Fields: []chat.Field{{
				Name:  "Finishes",
				Value: fmt.Sprintf("<t:%d:R>", form.FinishesAt.Unix()),
			}},
			Footer:    footer,
			Timestamp: form.FinishesAt,
		}},
		EntryPoint: &chat.EntryPoint{FormID: form.ID, Disabled: disabled},
	}
}
