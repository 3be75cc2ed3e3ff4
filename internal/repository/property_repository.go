package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type PropertyRepository interface {
	Create(ctx context.Context, prop *model.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Property, error)
	FindByName(ctx context.Context, name string) (*model.Property, error)
	List(ctx context.Context) ([]model.Property, error)
	// ListWithFeed returns properties that have an iCal feed configured.
	ListWithFeed(ctx context.Context) ([]model.Property, error)
}

type GormPropertyRepository struct {
	db *gorm.DB
}

func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

func (r *GormPropertyRepository) Create(ctx context.Context, prop *model.Property) error {
	return r.db.WithContext(ctx).Create(prop).Error
}

func (r *GormPropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	var p model.Property
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormPropertyRepository) FindByName(ctx context.Context, name string) (*model.Property, error) {
	var p model.Property
	if err := r.db.WithContext(ctx).First(&p, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormPropertyRepository) List(ctx context.Context) ([]model.Property, error) {
	var props []model.Property
	if err := r.db.WithContext(ctx).Order("name").Find(&props).Error; err != nil {
		return nil, err
	}
	return props, nil
}

func (r *GormPropertyRepository) ListWithFeed(ctx context.Context) ([]model.Property, error) {
	var props []model.Property
	if err := r.db.WithContext(ctx).
		Where("ical_url <> ''").
		Order("name").
		Find(&props).Error; err != nil {
		return nil, err
	}
	return props, nil
}
