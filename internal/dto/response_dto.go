package dto

import "time"

type ErrorResponse struct {
	Message string            `json:"message"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// EligibilityErrorResponse is returned when starting a test is blocked.
type EligibilityErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Details   interface{} `json:"details"`
}

type StartAttemptResponse struct {
	AttemptID uint `json:"attempt_id"`
	Resumed   bool `json:"resumed"`
}

type CertificateDTO struct {
	ID                   uint      `json:"id"`
	CertificateNumber    string    `json:"certificate_number"`
	TestAttemptID        uint      `json:"test_attempt_id"`
	UserID               uint      `json:"user_id"`
	TrainingDefinitionID uint      `json:"training_definition_id"`
	TrainingCode         string    `json:"training_code,omitempty"`
	IssuedAt             time.Time `json:"issued_at"`
	ValidUntil           time.Time `json:"valid_until"`
}

type SubmitAttemptResponse struct {
	AttemptID    uint            `json:"attempt_id"`
	Score        float64         `json:"score"`
	Passed       bool            `json:"passed"`
	TotalPoints  int             `json:"total_points"`
	EarnedPoints int             `json:"earned_points"`
	Certificate  *CertificateDTO `json:"certificate,omitempty"`
}

type ManualResultResponse struct {
	AttemptID   uint            `json:"attempt_id"`
	Certificate *CertificateDTO `json:"certificate,omitempty"`
}

type SyncReportDTO struct {
	Detected []string          `json:"detected"`
	Created  []string          `json:"created"`
	Existing []string          `json:"existing"`
	Errors   map[string]string `json:"errors"`
}

type TrainingDefinitionDTO struct {
	ID             uint       `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	ValidityMonths int        `json:"validity_months"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

type AssignmentDTO struct {
	ID           uint       `json:"id"`
	TrainerID    uint       `json:"trainer_id"`
	TrainingID   uint       `json:"training_id"`
	TrainingCode string     `json:"training_code,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type LifecycleReportDTO struct {
	Affected map[string]int64 `json:"affected"`
}
