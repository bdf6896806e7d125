package services

import (
	"strings"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// Submission is one respondent's answers, rebuilt from responses sharing a
// submitter and a response time.
type Submission struct {
	User      *string
	Timestamp time.Time
	Answers   map[string]string
}

// GroupSubmissions rebuilds submissions in the order they were made.
func GroupSubmissions(questions []models.Question, responses []models.Response) []Submission {
	labels := lo.Associate(questions, func(item models.Question) (string, string) {
		return item.ID, item.Label
	})

	type key struct {
		user string
		at   int64
	}

	index := make(map[key]int)
	var out []Submission
	for _, response := range responses {
		k := key{user: lo.FromPtr(response.Submitter), at: response.RespondedAt.UnixMicro()}
		idx, ok := index[k]
		if !ok {
			idx = len(out)
			index[k] = idx
			out = append(out, Submission{
				User:      response.Submitter,
				Timestamp: response.RespondedAt.UTC(),
				Answers:   make(map[string]string),
			})
		}
		out[idx].Answers[labels[response.QuestionID]] = response.Text
	}
	return out
}

type exportRecord struct {
	User              *string           `json:"user"`
	Timestamp         float64           `json:"timestamp"`
	QuestionResponses map[string]string `json:"question_responses"`
}

var exportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportJSON encodes submissions as the form.json report.
func ExportJSON(submissions []Submission) ([]byte, error) {
	records := lo.Map(submissions, func(item Submission, _ int) exportRecord {
		return exportRecord{
			User:              item.User,
			Timestamp:         float64(item.Timestamp.UnixMicro()) / 1e6,
			QuestionResponses: item.Answers,
		}
	})
	if records == nil {
		records = []exportRecord{}
	}
	return exportJSON.MarshalIndent(records, "", "  ")
}

type OptionCount struct {
	Label string
	Count int
}

// CountOptions tallies the answers of a choice question per option, in
// option order.
func CountOptions(question models.Question, responses []models.Response) []OptionCount {
	counts := lo.Map(question.Options, func(item models.ChoiceOption, _ int) OptionCount {
		return OptionCount{Label: item.Label}
	})
	for _, response := range responses {
		if response.QuestionID != question.ID {
			continue
		}
		if _, idx, ok := lo.FindIndexOf(counts, func(item OptionCount) bool {
			return strings.EqualFold(item.Label, response.Text)
		}); ok {
			counts[idx].Count++
		}
	}
	return counts
}
