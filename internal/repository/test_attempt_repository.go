package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAttemptNotOpen is returned when a completion races with another one.
var ErrAttemptNotOpen = errors.New("attempt is no longer in progress")

type TestAttemptRepository interface {
	WithTx(tx *gorm.DB) TestAttemptRepository
	Create(ctx context.Context, attempt *model.TestAttempt) error
	FindByID(ctx context.Context, id uint) (*model.TestAttempt, error)
	// FindByIDForUpdate row-locks the attempt where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.TestAttempt, error)
	FindOpen(ctx context.Context, userID, testID uint) (*model.TestAttempt, error)
	FindLatestPassed(ctx context.Context, userID, testID uint) (*model.TestAttempt, error)
	// CountFailedSince counts completed, not passed attempts started strictly
	// after since, or all of them when since is nil.
	CountFailedSince(ctx context.Context, userID, testID uint, since *time.Time) (int64, error)
	// Complete writes the outcome only if the attempt is still open.
	Complete(ctx context.Context, attempt *model.TestAttempt) error
	FindAllByTestAndUser(ctx context.Context, testID, userID uint) ([]model.TestAttempt, error)
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) WithTx(tx *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: tx}
}

func (r *testAttemptRepository) Create(ctx context.Context, attempt *model.TestAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *testAttemptRepository) FindByID(ctx context.Context, id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindOpen(ctx context.Context, userID, testID uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND completed_at IS NULL", userID, testID).
		Order("started_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindLatestPassed(ctx context.Context, userID, testID uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND completed_at IS NOT NULL AND passed = ?", userID, testID, true).
		Order("started_at DESC, id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) CountFailedSince(ctx context.Context, userID, testID uint, since *time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.TestAttempt{}).
		Where("user_id = ? AND test_id = ? AND completed_at IS NOT NULL AND passed = ?", userID, testID, false)
	if since != nil {
		q = q.Where("started_at > ?", *since)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *testAttemptRepository) Complete(ctx context.Context, attempt *model.TestAttempt) error {
	res := r.db.WithContext(ctx).Model(&model.TestAttempt{}).
		Where("id = ? AND completed_at IS NULL", attempt.ID).
		Updates(map[string]interface{}{
			"status":        attempt.Status,
			"completed_at":  attempt.CompletedAt,
			"score":         attempt.Score,
			"passed":        attempt.Passed,
			"earned_points": attempt.EarnedPoints,
			"total_points":  attempt.TotalPoints,
			"answers":       attempt.Answers,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAttemptNotOpen
	}
	return nil
}

func (r *testAttemptRepository) FindAllByTestAndUser(ctx context.Context, testID, userID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("test_id = ? AND user_id = ?", testID, userID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}
