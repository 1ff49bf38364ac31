package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrainingRecordRepository reads and writes the per-user training triple.
// Implementations validate the training code against the whitelist before
// touching storage and never persist the next-due date.
type TrainingRecordRepository interface {
	WithTx(tx *gorm.DB) TrainingRecordRepository
	Get(ctx context.Context, userID uint, def *model.TrainingDefinition) (*model.TrainingRecord, error)
	MarkCompleted(ctx context.Context, userID uint, def *model.TrainingDefinition, at time.Time) (*model.TrainingRecord, error)
	SetRequired(ctx context.Context, userID uint, code string, required bool) error
}

type trainingRecordRepository struct {
	db        *gorm.DB
	whitelist *CodeWhitelist
}

// NewTrainingRecordRepository stores records in the user_training_records table.
func NewTrainingRecordRepository(db *gorm.DB, whitelist *CodeWhitelist) TrainingRecordRepository {
	return &trainingRecordRepository{db: db, whitelist: whitelist}
}

func (r *trainingRecordRepository) WithTx(tx *gorm.DB) TrainingRecordRepository {
	return &trainingRecordRepository{db: tx, whitelist: r.whitelist}
}

func (r *trainingRecordRepository) Get(ctx context.Context, userID uint, def *model.TrainingDefinition) (*model.TrainingRecord, error) {
	if err := r.whitelist.Validate(def.Code); err != nil {
		return nil, err
	}
	var row model.UserTrainingRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND training_code = ?", userID, def.Code).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.TrainingRecord{UserID: userID, TrainingCode: def.Code}, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.TrainingRecord{
		UserID:          userID,
		TrainingCode:    def.Code,
		LastCompletedAt: row.LastCompletedAt,
		NextDueAt:       model.NextDue(row.LastCompletedAt, def.ValidityMonths),
		Required:        row.Required,
	}, nil
}

func (r *trainingRecordRepository) MarkCompleted(ctx context.Context, userID uint, def *model.TrainingDefinition, at time.Time) (*model.TrainingRecord, error) {
	if err := r.whitelist.Validate(def.Code); err != nil {
		return nil, err
	}
	row := model.UserTrainingRecord{UserID: userID, TrainingCode: def.Code, LastCompletedAt: &at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "training_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_completed_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, def)
}

func (r *trainingRecordRepository) SetRequired(ctx context.Context, userID uint, code string, required bool) error {
	if err := r.whitelist.Validate(code); err != nil {
		return err
	}
	row := model.UserTrainingRecord{UserID: userID, TrainingCode: code, Required: required}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "training_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"required", "updated_at"}),
	}).Create(&row).Error
}
