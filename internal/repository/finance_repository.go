package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type PayoutRepository interface {
	Create(ctx context.Context, payout *model.Payout) error
	// ListForRange returns the property's payouts with payout_date in
	// [from, to), ordered by date.
	ListForRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Payout, error)
}

type GormPayoutRepository struct {
	db *gorm.DB
}

func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

func (r *GormPayoutRepository) Create(ctx context.Context, payout *model.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *GormPayoutRepository) ListForRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Payout, error) {
	var payouts []model.Payout
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND payout_date >= ? AND payout_date < ?",
			propertyID, model.DateOnly(from), model.DateOnly(to)).
		Order("payout_date").
		Find(&payouts).
		Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	// ListForRange returns the property's expenses with date in [from, to),
	// ordered by date.
	ListForRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Expense, error)
}

type GormExpenseRepository struct {
	db *gorm.DB
}

func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

func (r *GormExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *GormExpenseRepository) ListForRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Expense, error) {
	var expenses []model.Expense
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND date >= ? AND date < ?",
			propertyID, model.DateOnly(from), model.DateOnly(to)).
		Order("date").
		Find(&expenses).
		Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}
