package repository

import (
	"context"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByEntity(ctx context.Context, entity string, entityID uint) ([]domain.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "create audit log")
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entity string, entityID uint) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list audit logs")
	}
	return out, nil
}
