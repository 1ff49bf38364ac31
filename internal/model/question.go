package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

type Question struct {
	ID             uint                        `gorm:"primarykey" json:"id"`
	TestID         uint                        `json:"test_id" gorm:"not null;index"`
	Prompt         string                      `json:"prompt" gorm:"type:text;not null"`
	Type           QuestionType                `json:"type" gorm:"not null;size:16"`
	Options        datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswers datatypes.JSONSlice[string] `json:"-"`
	Required       bool                        `json:"required" gorm:"not null"`
	Points         int                         `json:"points" gorm:"not null"` // derived, see DerivePoints
	OrderInTest    int                         `json:"order_in_test" gorm:"not null"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
}

// DerivePoints returns 1 for single-choice questions and the number of
// correct options for multiple-choice ones.
func (q *Question) DerivePoints() int {
	if q.Type == QuestionMultiple {
		return len(NonEmpty(q.CorrectAnswers))
	}
	return 1
}

// BeforeSave keeps Points from being entered by hand.
func (q *Question) BeforeSave(tx *gorm.DB) error {
	q.Points = q.DerivePoints()
	return nil
}

// CleanOptions returns the options with blank entries removed, order preserved.
func (q *Question) CleanOptions() []string {
	return NonEmpty(q.Options)
}

func NonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
