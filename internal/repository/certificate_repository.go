package repository

import (
	"context"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
)

type CertificateRepository interface {
	WithTx(tx *gorm.DB) CertificateRepository
	Create(ctx context.Context, cert *model.Certificate) error
	FindByAttemptID(ctx context.Context, attemptID uint) (*model.Certificate, error)
	FindAllByUser(ctx context.Context, userID uint) ([]model.Certificate, error)
}

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) WithTx(tx *gorm.DB) CertificateRepository {
	return &certificateRepository{db: tx}
}

func (r *certificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *certificateRepository) FindByAttemptID(ctx context.Context, attemptID uint) (*model.Certificate, error) {
	var cert model.Certificate
	if err := r.db.WithContext(ctx).Where("test_attempt_id = ?", attemptID).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepository) FindAllByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.db.WithContext(ctx).
		Preload("TrainingDefinition", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}
