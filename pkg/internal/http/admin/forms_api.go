package admin

import (
	"git.solsynth.dev/hypernet/forms/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type formSummary struct {
	models.Form
	QuestionCount   int `json:"question_count"`
	SubmissionCount int `json:"submission_count"`
}

func (v *controller) listForms(c *fiber.Ctx) error {
	var query struct {
		Scope string `query:"scope" validate:"omitempty,numeric,max=32"`
	}
	if err := exts.QueryAndValidate(c, &query); err != nil {
		return err
	}

	forms, err := v.store.ListForms(c.UserContext(), query.Scope)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := make([]formSummary, 0, len(forms))
	for _, form := range forms {
		questions, err := v.store.GetQuestions(c.UserContext(), form.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		responses, err := v.store.GetResponses(c.UserContext(), lo.Map(questions, func(item models.Question, _ int) string {
			return item.ID
		}))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		out = append(out, formSummary{
			Form:            form,
			QuestionCount:   len(questions),
			SubmissionCount: len(services.GroupSubmissions(questions, responses)),
		})
	}

	return c.JSON(out)
}

func (v *controller) finishForm(c *fiber.Ctx) error {
	var data struct {
		FormID      string  `json:"form_id" validate:"required,max=128"`
		Destination *string `json:"destination" validate:"omitempty,numeric"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if exists, err := v.store.FormExists(c.UserContext(), data.FormID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if !exists {
		return fiber.NewError(fiber.StatusNotFound, services.ErrFormNotFound.Error())
	}

	opts := services.FinishOptions{Destination: lo.FromPtr(data.Destination)}
	if err := v.closer.Finish(c.UserContext(), data.FormID, opts); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
