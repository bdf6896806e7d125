package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
)

const (
	// MaxQuestions is how many inputs fit in one response dialog.
	MaxQuestions   = 5
	MaxLabelLength = 45
	MaxOptions     = 25
)

var (
	ErrTooManyQuestions = fmt.Errorf("a form can have at most %d questions", MaxQuestions)
	ErrQuestionNotFound = errors.New("no question with that name")
)

// InvalidQuestionError describes a question definition that was rejected.
type InvalidQuestionError struct {
	Reason string
}

func (v *InvalidQuestionError) Error() string {
	return v.Reason
}

// SummaryField is one line of the question list shown to the creator.
type SummaryField struct {
	Name  string
	Value string
}

type RenderQuestions func(ctx context.Context, fields []SummaryField)

// QuestionAction is one of AddFreeText, AddChoice, RemoveQuestion or
// FinishQuestions.
type QuestionAction interface {
	questionAction()
}

type AddFreeText struct {
	Label     string
	Multiline bool
}

type AddChoice struct {
	Label   string
	Options []models.ChoiceOption
}

type RemoveQuestion struct {
	Label string
}

type FinishQuestions struct{}

func (AddFreeText) questionAction()     {}
func (AddChoice) questionAction()       {}
func (RemoveQuestion) questionAction()  {}
func (FinishQuestions) questionAction() {}

// Questions collects the ordered question list of a form from its creator.
type Questions struct {
	*loop

	render RenderQuestions
	items  []models.QuestionSpec
}

func NewQuestions(creatorID string, timeout time.Duration, render RenderQuestions) *Questions {
	return &Questions{
		loop:   newLoop(creatorID, timeout),
		render: render,
	}
}

// Submit applies an action from actorID. Actions from anyone but the
// creator fail with ErrNotCreator and change nothing.
func (q *Questions) Submit(ctx context.Context, actorID string, action QuestionAction) error {
	return q.submit(ctx, actorID, func() (bool, error) {
		switch v := action.(type) {
		case AddFreeText:
			return false, q.add(ctx, models.FreeText{Label: strings.TrimSpace(v.Label), Multiline: v.Multiline})
		case AddChoice:
			return false, q.add(ctx, models.Choice{Label: strings.TrimSpace(v.Label), Options: v.Options})
		case RemoveQuestion:
			return false, q.remove(ctx, v.Label)
		case FinishQuestions:
			return true, nil
		default:
			return false, fmt.Errorf("unknown question action %T", action)
		}
	})
}

// Wait blocks until the creator finishes. A finished session with no
// questions is returned as an empty list, which callers treat as cancel.
// Sessions that time out return ErrAbandoned and discard their questions.
func (q *Questions) Wait(ctx context.Context) ([]models.QuestionSpec, error) {
	if err := q.wait(ctx); err != nil {
		q.items = nil
		return nil, err
	}
	return q.items, nil
}

func (q *Questions) add(ctx context.Context, spec models.QuestionSpec) error {
	if len(q.items) >= MaxQuestions {
		return ErrTooManyQuestions
	}
	if err := validateSpec(spec); err != nil {
		return err
	}
	q.items = append(q.items, spec)
	q.rerender(ctx)
	return nil
}

func (q *Questions) remove(ctx context.Context, label string) error {
	_, index, ok := lo.FindIndexOf(q.items, func(item models.QuestionSpec) bool {
		return item.QuestionLabel() == label
	})
	if !ok {
		return ErrQuestionNotFound
	}
	q.items = append(q.items[:index], q.items[index+1:]...)
	q.rerender(ctx)
	return nil
}

func (q *Questions) rerender(ctx context.Context) {
	if q.render != nil {
		q.render(ctx, Summary(q.items))
	}
}

// Summary renders the ordered question list shown to the creator.
func Summary(items []models.QuestionSpec) []SummaryField {
	return lo.Map(items, func(item models.QuestionSpec, _ int) SummaryField {
		return SummaryField{
			Name:  item.QuestionLabel(),
			Value: fmt.Sprintf("Type: %s", models.KindName(item)),
		}
	})
}

func validateSpec(spec models.QuestionSpec) error {
	label := spec.QuestionLabel()
	if label == "" {
		return &InvalidQuestionError{Reason: "the question needs a name"}
	}
	if len([]rune(label)) > MaxLabelLength {
		return &InvalidQuestionError{Reason: fmt.Sprintf("question names can be at most %d characters", MaxLabelLength)}
	}

	switch v := spec.(type) {
	case models.FreeText:
		return nil
	case models.Choice:
		if len(v.Options) == 0 {
			return &InvalidQuestionError{Reason: "a choice question needs at least one option"}
		}
		if len(v.Options) > MaxOptions {
			return &InvalidQuestionError{Reason: fmt.Sprintf("a choice question can have at most %d options", MaxOptions)}
		}
		labels := lo.Map(v.Options, func(item models.ChoiceOption, _ int) string {
			return strings.ToLower(item.Label)
		})
		if len(lo.Uniq(labels)) != len(labels) {
			return &InvalidQuestionError{Reason: "choice options must be unique"}
		}
		if lo.Contains(labels, "") {
			return &InvalidQuestionError{Reason: "choice options cannot be blank"}
		}
		return nil
	default:
		return fmt.Errorf("unknown question spec %T", spec)
	}
}

// ParseOptions reads choice options written one per line as
// "label | description".
func ParseOptions(raw string) []models.ChoiceOption {
	var options []models.ChoiceOption
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, description, _ := strings.Cut(line, "|")
		options = append(options, models.ChoiceOption{
			Label:       strings.TrimSpace(label),
			Description: strings.TrimSpace(description),
		})
	}
	return options
}
