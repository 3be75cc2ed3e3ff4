package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type EmailLogRepository interface {
	Create(ctx context.Context, log *model.EmailLog) error
	// Seen reports whether a mailbox message id was processed before.
	Seen(ctx context.Context, messageID string) (bool, error)
}

type GormEmailLogRepository struct {
	db *gorm.DB
}

func NewGormEmailLogRepository(db *gorm.DB) *GormEmailLogRepository {
	return &GormEmailLogRepository{db: db}
}

func (r *GormEmailLogRepository) Create(ctx context.Context, log *model.EmailLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormEmailLogRepository) Seen(ctx context.Context, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.EmailLog{}).
		Where("message_id = ?", messageID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
