package dto

// AnswerDTO is one answer in a submission. Single-choice questions use Value,
// multiple-choice questions use Values.
type AnswerDTO struct {
	QuestionID uint     `json:"question_id" binding:"required"`
	Value      string   `json:"value"`
	Values     []string `json:"values"`
}

type SubmitAttemptDTO struct {
	Answers []AnswerDTO `json:"answers" binding:"dive"`
}

// ManualResultDTO is what a trainer enters after an in-person test.
type ManualResultDTO struct {
	UserID uint     `json:"user_id" binding:"required" validate:"required"`
	Score  *float64 `json:"score" binding:"required" validate:"required,gte=0,lte=100"`
	Passed *bool    `json:"passed" binding:"required" validate:"required"`
	Notes  string   `json:"notes" validate:"max=2000"`
}

type SetRequiredDTO struct {
	UserID       uint   `json:"user_id" binding:"required"`
	TrainingCode string `json:"training_code" binding:"required"`
	Required     bool   `json:"required"`
}

type AssignTrainerDTO struct {
	TrainerID  uint `json:"trainer_id" binding:"required"`
	TrainingID uint `json:"training_id" binding:"required"`
}
