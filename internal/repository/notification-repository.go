package repository

import (
	"context"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	// MarkAttempt records one dispatch attempt and its outcome.
	MarkAttempt(ctx context.Context, id, status string, lastErr *string) error
	ListByUser(ctx context.Context, userID uint) ([]domain.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("nil notification")
	}
	return translate(r.db.WithContext(ctx).Create(n).Error, "create notification")
}

func (r *notificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	n := &domain.Notification{}
	if err := r.db.WithContext(ctx).First(n, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find notification")
	}
	return n, nil
}

func (r *notificationRepository) MarkAttempt(ctx context.Context, id, status string, lastErr *string) error {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastErr,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, "mark notification")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "mark notification")
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, translate(err, "list notifications")
	}
	return out, nil
}
