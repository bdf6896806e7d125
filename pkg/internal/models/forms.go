package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Form is a published form that is accepting responses. It only lives in
// the database between publication and closure.
type Form struct {
	ID                string    `json:"id" gorm:"primaryKey;size:128"`
	Name              string    `json:"name" gorm:"size:64"`
	ScopeID           string    `json:"scope_id" gorm:"index;size:32"`
	ChannelID         string    `json:"channel_id" gorm:"size:32"`
	MessageID         string    `json:"message_id" gorm:"size:32"`
	ResponseChannelID *string   `json:"response_channel_id" gorm:"size:32"`
	CreatorID         string    `json:"creator_id" gorm:"size:32"`
	Anonymous         bool      `json:"anonymous"`
	FinishesAt        time.Time `json:"finishes_at" gorm:"index"`
	CreatedAt         time.Time `json:"created_at"`

	Questions  []Question      `json:"questions,omitempty" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Permission *FormPermission `json:"permission,omitempty" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

// FormID builds the identity of a form inside a scope (guild).
func FormID(scopeID, name string) string {
	return fmt.Sprintf("%s:%s", scopeID, name)
}

type QuestionKind = int8

const (
	QuestionKindFreeText = QuestionKind(iota)
	QuestionKindChoice
)

type Question struct {
	ID        string                            `json:"id" gorm:"primaryKey;size:160"`
	FormID    string                            `json:"form_id" gorm:"index;size:128"`
	Ordinal   int                               `json:"ordinal"`
	Kind      QuestionKind                      `json:"kind"`
	Label     string                            `json:"label" gorm:"size:45"`
	Multiline bool                              `json:"multiline"`
	Options   datatypes.JSONSlice[ChoiceOption] `json:"options"`

	Responses []Response `json:"-" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// QuestionID derives the identity of the question at ordinal inside a form.
func QuestionID(formID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", formID, ordinal)
}

type ChoiceOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// FormPermission holds who may take a form. A form without one is open to
// everyone.
type FormPermission struct {
	FormID        string                      `json:"form_id" gorm:"primaryKey;size:128"`
	AllowedUsers  datatypes.JSONSlice[string] `json:"allowed_users"`
	AllowedRoles  datatypes.JSONSlice[string] `json:"allowed_roles"`
	AllowEveryone bool                        `json:"allow_everyone"`
}

// Response is a single answer to a question. Responses sharing a submitter
// and RespondedAt form one submission.
type Response struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	QuestionID  string    `json:"question_id" gorm:"index;size:160"`
	RespondedAt time.Time `json:"responded_at" gorm:"index"`
	Text        string    `json:"text"`
	Submitter   *string   `json:"submitter" gorm:"size:64"`
}
