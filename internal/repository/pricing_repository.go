package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type PricingRepository interface {
	CreateRule(ctx context.Context, rule *model.PricingRule) error
	ListActiveRules(ctx context.Context, propertyID uuid.UUID) ([]model.PricingRule, error)
	CreateOverride(ctx context.Context, override *model.PriceOverride) error
	// ListOverrides returns the property's overrides with date in [from, to].
	ListOverrides(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.PriceOverride, error)
}

type GormPricingRepository struct {
	db *gorm.DB
}

func NewGormPricingRepository(db *gorm.DB) *GormPricingRepository {
	return &GormPricingRepository{db: db}
}

func (r *GormPricingRepository) CreateRule(ctx context.Context, rule *model.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *GormPricingRepository) ListActiveRules(ctx context.Context, propertyID uuid.UUID) ([]model.PricingRule, error) {
	var rules []model.PricingRule
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Find(&rules).
		Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *GormPricingRepository) CreateOverride(ctx context.Context, override *model.PriceOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

func (r *GormPricingRepository) ListOverrides(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.PriceOverride, error) {
	var overrides []model.PriceOverride
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND date >= ? AND date <= ?",
			propertyID, model.DateOnly(from), model.DateOnly(to)).
		Find(&overrides).
		Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}
