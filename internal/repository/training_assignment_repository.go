package repository

import (
	"context"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
)

type TrainingAssignmentRepository interface {
	WithTx(tx *gorm.DB) TrainingAssignmentRepository
	Create(ctx context.Context, a *model.TrainingAssignment) error
	// FindByID also returns soft-deleted assignments.
	FindByID(ctx context.Context, id uint) (*model.TrainingAssignment, error)
	FindActiveByTraining(ctx context.Context, trainingID uint) (*model.TrainingAssignment, error)
	ExistsActive(ctx context.Context, trainerID, trainingID uint) (bool, error)
	Delete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
	FindAll(ctx context.Context, includeDeleted bool) ([]model.TrainingAssignment, error)
}

type trainingAssignmentRepository struct {
	db *gorm.DB
}

func NewTrainingAssignmentRepository(db *gorm.DB) TrainingAssignmentRepository {
	return &trainingAssignmentRepository{db: db}
}

func (r *trainingAssignmentRepository) WithTx(tx *gorm.DB) TrainingAssignmentRepository {
	return &trainingAssignmentRepository{db: tx}
}

func (r *trainingAssignmentRepository) Create(ctx context.Context, a *model.TrainingAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *trainingAssignmentRepository) FindByID(ctx context.Context, id uint) (*model.TrainingAssignment, error) {
	var a model.TrainingAssignment
	if err := r.db.WithContext(ctx).Unscoped().First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *trainingAssignmentRepository) FindActiveByTraining(ctx context.Context, trainingID uint) (*model.TrainingAssignment, error) {
	var a model.TrainingAssignment
	if err := r.db.WithContext(ctx).Where("training_definition_id = ?", trainingID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *trainingAssignmentRepository) ExistsActive(ctx context.Context, trainerID, trainingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TrainingAssignment{}).
		Where("trainer_id = ? AND training_definition_id = ?", trainerID, trainingID).
		Count(&count).Error
	return count > 0, err
}

func (r *trainingAssignmentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.TrainingAssignment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *trainingAssignmentRepository) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&model.TrainingAssignment{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *trainingAssignmentRepository) FindAll(ctx context.Context, includeDeleted bool) ([]model.TrainingAssignment, error) {
	var list []model.TrainingAssignment
	q := r.db.WithContext(ctx).Preload("TrainingDefinition", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	if includeDeleted {
		q = q.Unscoped()
	}
	err := q.Order("training_definition_id ASC, id ASC").Find(&list).Error
	return list, err
}
