package models

import "fmt"

// QuestionSpec is the definition of a question before it is persisted.
// It is either FreeText or Choice.
type QuestionSpec interface {
	QuestionLabel() string
	questionSpec()
}

type FreeText struct {
	Label     string `json:"label"`
	Multiline bool   `json:"multiline"`
}

type Choice struct {
	Label   string         `json:"label"`
	Options []ChoiceOption `json:"options"`
}

func (v FreeText) QuestionLabel() string { return v.Label }
func (v Choice) QuestionLabel() string   { return v.Label }

func (FreeText) questionSpec() {}
func (Choice) questionSpec()   {}

// KindName is the short type shown to form creators.
func KindName(spec QuestionSpec) string {
	switch v := spec.(type) {
	case FreeText:
		if v.Multiline {
			return "paragraph"
		}
		return "short"
	case Choice:
		return "choice"
	default:
		panic(fmt.Sprintf("unknown question spec %T", spec))
	}
}

// NewQuestion turns a question definition into the row stored at ordinal.
func NewQuestion(formID string, ordinal int, spec QuestionSpec) Question {
	question := Question{
		ID:      QuestionID(formID, ordinal),
		FormID:  formID,
		Ordinal: ordinal,
	}
	switch v := spec.(type) {
	case FreeText:
		question.Kind = QuestionKindFreeText
		question.Label = v.Label
		question.Multiline = v.Multiline
	case Choice:
		question.Kind = QuestionKindChoice
		question.Label = v.Label
		question.Options = append(question.Options, v.Options...)
	default:
		panic(fmt.Sprintf("unknown question spec %T", spec))
	}
	return question
}

// Spec converts a stored question back to its definition.
func (v Question) Spec() QuestionSpec {
	switch v.Kind {
	case QuestionKindChoice:
		return Choice{Label: v.Label, Options: append([]ChoiceOption(nil), v.Options...)}
	default:
		return FreeText{Label: v.Label, Multiline: v.Multiline}
	}
}
