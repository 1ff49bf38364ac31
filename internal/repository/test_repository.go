package repository

import (
	"context"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
)

type TestRepository interface {
	WithTx(tx *gorm.DB) TestRepository
	Create(ctx context.Context, test *model.Test) error
	FindByID(ctx context.Context, id uint) (*model.Test, error)
	FindByIDWithQuestions(ctx context.Context, id uint) (*model.Test, error)
	FindAllByTraining(ctx context.Context, trainingID uint) ([]model.Test, error)
	// Activate makes id the only active test of its training.
	Activate(ctx context.Context, test *model.Test) error
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) WithTx(tx *gorm.DB) TestRepository {
	return &testRepository{db: tx}
}

func (r *testRepository) Create(ctx context.Context, test *model.Test) error {
	// GORM creates test.Questions through the TestID association.
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *testRepository) FindByID(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.WithContext(ctx).Preload("TrainingDefinition").First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.WithContext(ctx).
		Preload("TrainingDefinition").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_test ASC, questions.id ASC")
		}).
		First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) FindAllByTraining(ctx context.Context, trainingID uint) ([]model.Test, error) {
	var tests []model.Test
	err := r.db.WithContext(ctx).
		Where("training_definition_id = ?", trainingID).
		Order("created_at DESC").
		Find(&tests).Error
	return tests, err
}

func (r *testRepository) Activate(ctx context.Context, test *model.Test) error {
	db := r.db.WithContext(ctx)
	// Siblings first, otherwise the partial unique index rejects the second active row.
	if err := db.Model(&model.Test{}).
		Where("training_definition_id = ? AND id <> ? AND is_active = ?", test.TrainingDefinitionID, test.ID, true).
		Update("is_active", false).Error; err != nil {
		return err
	}
	if err := db.Model(test).Update("is_active", true).Error; err != nil {
		return err
	}
	test.IsActive = true
	return nil
}
