package model

import (
	"time"

	"gorm.io/gorm"
)

// TrainingAssignment binds one trainer to one training. Only one live row per
// training is allowed; soft-deleted rows stay around for restore.
type TrainingAssignment struct {
	ID                   uint               `gorm:"primarykey" json:"id"`
	TrainerID            uint               `json:"trainer_id" gorm:"not null;index"`
	TrainingDefinitionID uint               `json:"training_definition_id" gorm:"not null;uniqueIndex:idx_assignments_one_live,where:deleted_at IS NULL"`
	TrainingDefinition   TrainingDefinition `json:"training_definition,omitempty" gorm:"foreignKey:TrainingDefinitionID"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	DeletedAt            gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}
