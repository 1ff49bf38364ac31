package dto

// QuestionCreateDTO is used within TestCreateDTO. Points are not accepted;
// they are derived from the question type and correct answers.
type QuestionCreateDTO struct {
	Prompt         string   `json:"prompt" binding:"required" validate:"required"`
	Type           string   `json:"type" binding:"required,oneof=single multiple" validate:"required,oneof=single multiple"`
	Options        []string `json:"options" binding:"required,min=2" validate:"required,min=2"`
	CorrectAnswers []string `json:"correct_answers" binding:"required,min=1" validate:"required,min=1,dive,required"`
	Required       *bool    `json:"required"`
	OrderInTest    int      `json:"order_in_test" binding:"min=0" validate:"min=0"`
}

// TestCreateDTO is for a trainer or admin to create a test with its questions.
type TestCreateDTO struct {
	TrainingID       uint                `json:"training_id" binding:"required" validate:"required"`
	Title            string              `json:"title" binding:"required" validate:"required,max=255"`
	Description      string              `json:"description,omitempty"`
	PassingScore     int                 `json:"passing_score" binding:"min=0,max=100" validate:"min=0,max=100"`
	TimeLimitMinutes *int                `json:"time_limit_minutes" validate:"omitempty,min=1"`
	Activate         bool                `json:"activate"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive" validate:"required,min=1,dive"`
}
