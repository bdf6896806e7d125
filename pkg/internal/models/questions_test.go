package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestionID(t *testing.T) {
	formID := FormID("1032797461342863431", "Feedback")
	assert.Equal(t, "1032797461342863431:Feedback", formID)
	assert.Equal(t, "1032797461342863431:Feedback#0", QuestionID(formID, 0))
	assert.NotEqual(t, QuestionID(formID, 1), QuestionID(formID, 2))
}

func TestQuestionSpecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		spec QuestionSpec
		kind QuestionKind
		want string
	}{
		{
			name: "short text",
			spec: FreeText{Label: "Name"},
			kind: QuestionKindFreeText,
			want: "short",
		},
		{
			name: "paragraph",
			spec: FreeText{Label: "Comment", Multiline: true},
			kind: QuestionKindFreeText,
			want: "paragraph",
		},
		{
			name: "choice",
			spec: Choice{Label: "Color", Options: []ChoiceOption{
				{Label: "Red", Description: "warm"},
				{Label: "Blue"},
			}},
			kind: QuestionKindChoice,
			want: "choice",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question := NewQuestion("scope:form", i, tt.spec)
			assert.Equal(t, QuestionID("scope:form", i), question.ID)
			assert.Equal(t, i, question.Ordinal)
			assert.Equal(t, tt.kind, question.Kind)
			assert.Equal(t, tt.spec, question.Spec())
			assert.Equal(t, tt.want, KindName(tt.spec))
		})
	}
}
