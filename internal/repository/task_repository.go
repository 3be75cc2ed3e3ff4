package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type CleaningTaskRepository interface {
	Create(ctx context.Context, task *model.CleaningTask) error
	// Save persists in-place field changes of an already-loaded task.
	Save(ctx context.Context, task *model.CleaningTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CleaningTask, error)
	List(ctx context.Context) ([]model.CleaningTask, error)
	// FindActiveByBooking returns the booking's non-cancelled task, or
	// ErrNotFound when none exists.
	FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*model.CleaningTask, error)
	// CancelActiveByBooking transitions the booking's pending/notified tasks
	// to cancelled and returns how many rows changed.
	CancelActiveByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
	// ListDueForNotification returns pending tasks scheduled on or before the
	// given date whose cleaner has not been notified yet.
	ListDueForNotification(ctx context.Context, asOf time.Time) ([]model.CleaningTask, error)
	// ListActiveForDate returns pending/notified tasks scheduled on the date.
	ListActiveForDate(ctx context.Context, date time.Time) ([]model.CleaningTask, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	Complete(ctx context.Context, id uuid.UUID, at time.Time) error
}

type GormCleaningTaskRepository struct {
	db *gorm.DB
}

func NewGormCleaningTaskRepository(db *gorm.DB) *GormCleaningTaskRepository {
	return &GormCleaningTaskRepository{db: db}
}

func (r *GormCleaningTaskRepository) Create(ctx context.Context, task *model.CleaningTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *GormCleaningTaskRepository) Save(ctx context.Context, task *model.CleaningTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *GormCleaningTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CleaningTask, error) {
	var t model.CleaningTask
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *GormCleaningTaskRepository) List(ctx context.Context) ([]model.CleaningTask, error) {
	var tasks []model.CleaningTask
	if err := r.db.WithContext(ctx).Order("scheduled_date").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormCleaningTaskRepository) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*model.CleaningTask, error) {
	var t model.CleaningTask
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status <> ?", bookingID, model.CleaningTaskStatusCancelled).
		First(&t).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *GormCleaningTaskRepository) CancelActiveByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CleaningTask{}).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]model.CleaningTaskStatus{model.CleaningTaskStatusPending, model.CleaningTaskStatusNotified}).
		Updates(map[string]any{"status": model.CleaningTaskStatusCancelled})
	return res.RowsAffected, res.Error
}

func (r *GormCleaningTaskRepository) ListDueForNotification(ctx context.Context, asOf time.Time) ([]model.CleaningTask, error) {
	var tasks []model.CleaningTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND cleaner_notified = ? AND scheduled_date <= ?",
			model.CleaningTaskStatusPending, false, model.DateOnly(asOf)).
		Find(&tasks).
		Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormCleaningTaskRepository) ListActiveForDate(ctx context.Context, date time.Time) ([]model.CleaningTask, error) {
	var tasks []model.CleaningTask
	err := r.db.WithContext(ctx).
		Where("scheduled_date = ? AND status IN ?", model.DateOnly(date),
			[]model.CleaningTaskStatus{model.CleaningTaskStatusPending, model.CleaningTaskStatusNotified}).
		Find(&tasks).
		Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormCleaningTaskRepository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.CleaningTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              model.CleaningTaskStatusNotified,
			"cleaner_notified":    true,
			"cleaner_notified_at": at,
		}).
		Error
}

func (r *GormCleaningTaskRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.CleaningTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.CleaningTaskStatusCompleted,
			"completed_at": at,
		}).
		Error
}

type MaintenanceRepository interface {
	Create(ctx context.Context, task *model.MaintenanceTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceTask, error)
	List(ctx context.Context) ([]model.MaintenanceTask, error)
	Complete(ctx context.Context, id uuid.UUID, at time.Time, cost *float64) error
}

type GormMaintenanceRepository struct {
	db *gorm.DB
}

func NewGormMaintenanceRepository(db *gorm.DB) *GormMaintenanceRepository {
	return &GormMaintenanceRepository{db: db}
}

func (r *GormMaintenanceRepository) Create(ctx context.Context, task *model.MaintenanceTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *GormMaintenanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceTask, error) {
	var t model.MaintenanceTask
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *GormMaintenanceRepository) List(ctx context.Context) ([]model.MaintenanceTask, error) {
	var tasks []model.MaintenanceTask
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormMaintenanceRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time, cost *float64) error {
	update := map[string]any{
		"status":       model.MaintenanceStatusCompleted,
		"completed_at": at,
	}
	if cost != nil {
		update["cost"] = *cost
	}
	return r.db.WithContext(ctx).
		Model(&model.MaintenanceTask{}).
		Where("id = ?", id).
		Updates(update).
		Error
}

type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	List(ctx context.Context) ([]model.InventoryItem, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
}

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormInventoryRepository) List(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := r.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormInventoryRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": quantity}).
		Error
}
