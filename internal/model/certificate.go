package model

import "time"

// Certificate is issued once per passing attempt.
type Certificate struct {
	ID                   uint               `gorm:"primarykey" json:"id"`
	CertificateNumber    string             `json:"certificate_number" gorm:"not null;uniqueIndex;size:64"`
	TestAttemptID        uint               `json:"test_attempt_id" gorm:"not null;uniqueIndex"`
	UserID               uint               `json:"user_id" gorm:"not null;index"`
	TrainingDefinitionID uint               `json:"training_definition_id" gorm:"not null;index"`
	TrainingDefinition   TrainingDefinition `json:"training_definition,omitempty" gorm:"foreignKey:TrainingDefinitionID"`
	IssuedAt             time.Time          `json:"issued_at" gorm:"not null"`
	ValidUntil           time.Time          `json:"valid_until" gorm:"not null"`
	CreatedAt            time.Time          `json:"created_at"`
}
