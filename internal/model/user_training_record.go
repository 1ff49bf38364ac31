package model

import "time"

// TrainingRecord is the per-user, per-training triple. NextDueAt is never
// stored by this service; it is derived from LastCompletedAt.
type TrainingRecord struct {
	UserID          uint       `json:"user_id"`
	TrainingCode    string     `json:"training_code"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	Required        bool       `json:"required"`
}

// UserTrainingRecord is the normalized storage row behind TrainingRecord.
type UserTrainingRecord struct {
	ID              uint       `gorm:"primarykey"`
	UserID          uint       `gorm:"not null;uniqueIndex:idx_user_training"`
	TrainingCode    string     `gorm:"not null;size:64;uniqueIndex:idx_user_training"`
	LastCompletedAt *time.Time
	Required        bool `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
