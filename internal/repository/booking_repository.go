package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/model"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	// Save persists in-place field changes of an already-loaded booking.
	Save(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// List returns bookings, optionally filtered to one property.
	List(ctx context.Context, propertyID *uuid.UUID) ([]model.Booking, error)
	// ListFeedBookings returns every booking of the property that came from
	// the iCal feed, regardless of status.
	ListFeedBookings(ctx context.Context, propertyID uuid.UUID) ([]model.Booking, error)
	ListConfirmed(ctx context.Context) ([]model.Booking, error)
	// ListConfirmedOverlapping returns the property's confirmed bookings whose
	// stay intersects [from, to].
	ListConfirmedOverlapping(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
	// HasConfirmedCheckin reports whether a confirmed booking on the property
	// checks in on the given date.
	HasConfirmedCheckin(ctx context.Context, propertyID uuid.UUID, date time.Time) (bool, error)
	FindByConfirmationCode(ctx context.Context, code string) (*model.Booking, error)
	FindConfirmedByStay(ctx context.Context, checkin, checkout time.Time) (*model.Booking, error)
}

type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) List(ctx context.Context, propertyID *uuid.UUID) ([]model.Booking, error) {
	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if propertyID != nil {
		q = q.Where("property_id = ?", *propertyID)
	}
	var bookings []model.Booking
	if err := q.Order("checkin_date DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListFeedBookings(ctx context.Context, propertyID uuid.UUID) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND source = ?", propertyID, model.BookingSourceICal).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListConfirmed(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.BookingStatusConfirmed).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListConfirmedOverlapping(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND status = ? AND checkout_date >= ? AND checkin_date <= ?",
			propertyID, model.BookingStatusConfirmed, model.DateOnly(from), model.DateOnly(to)).
		Find(&bookings).
		Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status}).
		Error
}

func (r *GormBookingRepository) HasConfirmedCheckin(ctx context.Context, propertyID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("property_id = ? AND checkin_date = ? AND status = ?",
			propertyID, model.DateOnly(date), model.BookingStatusConfirmed).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormBookingRepository) FindByConfirmationCode(ctx context.Context, code string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).
		First(&b, "confirmation_code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) FindConfirmedByStay(ctx context.Context, checkin, checkout time.Time) (*model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		Where("checkin_date = ? AND checkout_date = ? AND status = ?",
			model.DateOnly(checkin), model.DateOnly(checkout), model.BookingStatusConfirmed).
		First(&b).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}
