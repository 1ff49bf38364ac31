package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptPassed     AttemptStatus = "passed"
	AttemptFailed     AttemptStatus = "failed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// SubmittedAnswer holds either a single value or a set of selections,
// depending on the question type it answers.
type SubmittedAnswer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// AttemptAnswers maps question IDs to the answer given.
type AttemptAnswers map[uint]SubmittedAnswer

// TestAttempt is owned by the user who took it. The partial unique index
// allows a single uncompleted attempt per user and test.
type TestAttempt struct {
	ID           uint                               `gorm:"primarykey" json:"id"`
	UserID       uint                               `json:"user_id" gorm:"not null;index;uniqueIndex:idx_attempts_one_open,where:completed_at IS NULL"`
	TestID       uint                               `json:"test_id" gorm:"not null;index;uniqueIndex:idx_attempts_one_open"`
	Test         Test                               `json:"test,omitempty" gorm:"foreignKey:TestID"`
	Status       AttemptStatus                      `json:"status" gorm:"not null;size:16;default:'in_progress'"`
	StartedAt    time.Time                          `json:"started_at" gorm:"not null;index"`
	CompletedAt  *time.Time                         `json:"completed_at,omitempty"`
	Score        *float64                           `json:"score,omitempty"`
	Passed       *bool                              `json:"passed,omitempty"`
	EarnedPoints int                                `json:"earned_points"`
	TotalPoints  int                                `json:"total_points"`
	Answers      datatypes.JSONType[AttemptAnswers] `json:"answers"`
	IsManual     bool                               `json:"is_manual" gorm:"not null;default:false"`
	RecordedBy   *uint                              `json:"recorded_by,omitempty"`
	Notes        string                             `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

func (a *TestAttempt) InProgress() bool {
	return a.CompletedAt == nil
}
