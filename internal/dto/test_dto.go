package dto

import "time"

// QuestionResponseDTO is shown to workers; correct answers are never included.
type QuestionResponseDTO struct {
	ID          uint     `json:"id"`
	TestID      uint     `json:"test_id"`
	Prompt      string   `json:"prompt"`
	Type        string   `json:"type"`
	Options     []string `json:"options"`
	Required    bool     `json:"required"`
	Points      int      `json:"points"`
	OrderInTest int      `json:"order_in_test"`
}

type TestResponseDTO struct {
	ID                   uint                  `json:"id"`
	TrainingDefinitionID uint                  `json:"training_definition_id"`
	TrainingCode         string                `json:"training_code"`
	Title                string                `json:"title"`
	Description          string                `json:"description,omitempty"`
	PassingScore         int                   `json:"passing_score"`
	TimeLimitMinutes     *int                  `json:"time_limit_minutes,omitempty"`
	IsActive             bool                  `json:"is_active"`
	Questions            []QuestionResponseDTO `json:"questions,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

type TestAttemptSummaryDTO struct {
	ID          uint       `json:"id"`
	TestID      uint       `json:"test_id"`
	UserID      uint       `json:"user_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Score       *float64   `json:"score,omitempty"`
	Passed      *bool      `json:"passed,omitempty"`
	IsManual    bool       `json:"is_manual"`
}

type TestAttemptDetailDTO struct {
	TestAttemptSummaryDTO
	EarnedPoints int                     `json:"earned_points"`
	TotalPoints  int                     `json:"total_points"`
	Answers      map[uint]AnswerValueDTO `json:"answers,omitempty"`
	Notes        string                  `json:"notes,omitempty"`
	Deadline     *time.Time              `json:"deadline,omitempty"`
}

type AnswerValueDTO struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}
