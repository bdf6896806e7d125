package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Store is the persistence layer for forms and everything they own. Every
// multi-row change runs in a single transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateForm writes a form with its questions and permission set at once.
func (s *Store) CreateForm(ctx context.Context, form models.Form, questions []models.Question, permission *models.FormPermission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Form{}).Where("id = ?", form.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrFormExists
		}

		form.Questions = nil
		form.Permission = nil
		if err := tx.Create(&form).Error; err != nil {
			return fmt.Errorf("insert form: %w", err)
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if permission != nil {
			permission.FormID = form.ID
			if err := tx.Create(permission).Error; err != nil {
				return fmt.Errorf("insert permission: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) FormExists(ctx context.Context, formID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Form{}).Where("id = ?", formID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetForm(ctx context.Context, formID string) (models.Form, error) {
	var form models.Form
	if err := s.db.WithContext(ctx).Where("id = ?", formID).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return form, ErrFormNotFound
		}
		return form, err
	}
	return form, nil
}

// GetQuestions returns the questions of a form in ordinal order.
func (s *Store) GetQuestions(ctx context.Context, formID string) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("ordinal ASC").
		Find(&questions).Error
	return questions, err
}

// GetPermission returns the permission set of a form, or nil when it has
// none.
func (s *Store) GetPermission(ctx context.Context, formID string) (*models.FormPermission, error) {
	var permission models.FormPermission
	if err := s.db.WithContext(ctx).Where("form_id = ?", formID).First(&permission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &permission, nil
}

// InsertResponses writes one submission as a single multi-row insert.
func (s *Store) InsertResponses(ctx context.Context, responses []models.Response) error {
	if len(responses) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&responses).Error
	})
}

// GetResponses returns every response to the given questions, oldest first.
func (s *Store) GetResponses(ctx context.Context, questionIDs []string) ([]models.Response, error) {
	var responses []models.Response
	if len(questionIDs) == 0 {
		return responses, nil
	}
	err := s.db.WithContext(ctx).
		Where("question_id IN ?", questionIDs).
		Order("responded_at ASC, id ASC").
		Find(&responses).Error
	return responses, err
}

// ListForms returns every live form, or the ones of a scope when scopeID is
// set.
func (s *Store) ListForms(ctx context.Context, scopeID string) ([]models.Form, error) {
	tx := s.db.WithContext(ctx).Order("finishes_at ASC")
	if scopeID != "" {
		tx = tx.Where("scope_id = ?", scopeID)
	}
	var forms []models.Form
	err := tx.Find(&forms).Error
	return forms, err
}

// ListExpired returns the forms whose deadline is at or before now.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Where("finishes_at <= ?", now.UTC()).
		Order("finishes_at ASC").
		Find(&forms).Error
	return forms, err
}

// DeleteForm removes a form and every row it owns. It is the only way rows
// leave the database.
func (s *Store) DeleteForm(ctx context.Context, formID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var questions []models.Question
		if err := tx.Select("id").Where("form_id = ?", formID).Find(&questions).Error; err != nil {
			return err
		}
		questionIDs := lo.Map(questions, func(item models.Question, _ int) string {
			return item.ID
		})
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Response{}).Error; err != nil {
				return fmt.Errorf("delete responses: %w", err)
			}
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.FormPermission{}).Error; err != nil {
			return fmt.Errorf("delete permission: %w", err)
		}
		if err := tx.Where("id = ?", formID).Delete(&models.Form{}).Error; err != nil {
			return fmt.Errorf("delete form: %w", err)
		}
		return nil
	})
}
