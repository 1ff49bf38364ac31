package repository

import (
	"context"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuthorizationAudit) error
	FindRecent(ctx context.Context, limit int) ([]model.AuthorizationAudit, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuthorizationAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) FindRecent(ctx context.Context, limit int) ([]model.AuthorizationAudit, error) {
	var entries []model.AuthorizationAudit
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
