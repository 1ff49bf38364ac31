package repository

import (
	"context"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
)

type TrainingDefinitionRepository interface {
	WithTx(tx *gorm.DB) TrainingDefinitionRepository
	Create(ctx context.Context, def *model.TrainingDefinition) error
	FindByID(ctx context.Context, id uint) (*model.TrainingDefinition, error)
	FindByCode(ctx context.Context, code string) (*model.TrainingDefinition, error)
	FindAll(ctx context.Context, includeDeleted bool) ([]model.TrainingDefinition, error)
	// FindAllCodes includes soft-deleted definitions; a deleted code still exists.
	FindAllCodes(ctx context.Context) ([]string, error)
}

type trainingDefinitionRepository struct {
	db *gorm.DB
}

func NewTrainingDefinitionRepository(db *gorm.DB) TrainingDefinitionRepository {
	return &trainingDefinitionRepository{db: db}
}

func (r *trainingDefinitionRepository) WithTx(tx *gorm.DB) TrainingDefinitionRepository {
	return &trainingDefinitionRepository{db: tx}
}

func (r *trainingDefinitionRepository) Create(ctx context.Context, def *model.TrainingDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *trainingDefinitionRepository) FindByID(ctx context.Context, id uint) (*model.TrainingDefinition, error) {
	var def model.TrainingDefinition
	if err := r.db.WithContext(ctx).First(&def, id).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *trainingDefinitionRepository) FindByCode(ctx context.Context, code string) (*model.TrainingDefinition, error) {
	var def model.TrainingDefinition
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *trainingDefinitionRepository) FindAll(ctx context.Context, includeDeleted bool) ([]model.TrainingDefinition, error) {
	var defs []model.TrainingDefinition
	q := r.db.WithContext(ctx)
	if includeDeleted {
		q = q.Unscoped()
	}
	if err := q.Order("code ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *trainingDefinitionRepository) FindAllCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Unscoped().Model(&model.TrainingDefinition{}).Order("code ASC").Pluck("code", &codes).Error
	return codes, err
}
