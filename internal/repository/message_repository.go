package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

// activeMessageStatuses are the statuses that count as "already handled" for
// the (booking_id, template_name) dedup invariant. Only failed attempts may
// be queued again.
var activeMessageStatuses = []model.MessageStatus{
	model.MessageStatusQueued,
	model.MessageStatusSent,
	model.MessageStatusCopied,
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.MessageLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MessageLog, error)
	List(ctx context.Context, limit int) ([]model.MessageLog, error)
	// FindActive returns the non-failed message for (booking, template), or
	// ErrNotFound.
	FindActive(ctx context.Context, bookingID uuid.UUID, templateName string) (*model.MessageLog, error)
	// ListDue returns queued messages whose scheduled_at is at or before asOf,
	// with the booking preloaded.
	ListDue(ctx context.Context, asOf time.Time) ([]model.MessageLog, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkCopied(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error

	GetActiveTemplate(ctx context.Context, name string) (*model.MessageTemplate, error)
	// EnsureTemplate inserts the template unless one with the same name
	// already exists.
	EnsureTemplate(ctx context.Context, tpl *model.MessageTemplate) error
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *model.MessageLog) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MessageLog, error) {
	var m model.MessageLog
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *GormMessageRepository) List(ctx context.Context, limit int) ([]model.MessageLog, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []model.MessageLog
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormMessageRepository) FindActive(ctx context.Context, bookingID uuid.UUID, templateName string) (*model.MessageLog, error) {
	var m model.MessageLog
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND template_name = ? AND status IN ?",
			bookingID, templateName, activeMessageStatuses).
		First(&m).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *GormMessageRepository) ListDue(ctx context.Context, asOf time.Time) ([]model.MessageLog, error) {
	var msgs []model.MessageLog
	err := r.db.WithContext(ctx).
		Preload("Booking").
		Where("status = ? AND scheduled_at <= ?", model.MessageStatusQueued, asOf).
		Find(&msgs).
		Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormMessageRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.MessageLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  model.MessageStatusSent,
			"sent_at": at,
		}).
		Error
}

func (r *GormMessageRepository) MarkCopied(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.MessageLog{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.MessageStatusCopied}).
		Error
}

func (r *GormMessageRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.MessageLog{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.MessageStatusFailed}).
		Error
}

func (r *GormMessageRepository) GetActiveTemplate(ctx context.Context, name string) (*model.MessageTemplate, error) {
	var t model.MessageTemplate
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		First(&t).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *GormMessageRepository) EnsureTemplate(ctx context.Context, tpl *model.MessageTemplate) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.MessageTemplate{}).
		Where("name = ?", tpl.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(tpl).Error
}
