package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proppilot/proppilot/internal/config"
	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// occupancyWindowDays is the trailing window used for the demand adjustment.
const occupancyWindowDays = 30

// Recommendation is one night's suggested price with the adjustments that
// produced it.
type Recommendation struct {
	PropertyID       uuid.UUID `json:"property_id"`
	Date             time.Time `json:"date"`
	BasePrice        float64   `json:"base_price"`
	RecommendedPrice float64   `json:"recommended_price"`
	Adjustments      []string  `json:"adjustments"`
	IsOverride       bool      `json:"is_override"`
}

// PricingService computes nightly price recommendations from the property's
// base rate. Manual overrides win outright; otherwise weekend, season,
// lead time, recent occupancy and the property's own database rules stack
// multiplicatively, clamped to the configured floor and ceiling.
type PricingService struct {
	log        *logrus.Logger
	bus        *event.Bus
	properties repository.PropertyRepository
	bookings   repository.BookingRepository
	pricing    repository.PricingRepository
	cfg        config.PricingSettings

	nowFunc func() time.Time
}

func NewPricingService(
	log *logrus.Logger,
	bus *event.Bus,
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
	pricing repository.PricingRepository,
	cfg config.PricingSettings,
) *PricingService {
	return &PricingService{
		log:        log,
		bus:        bus,
		properties: properties,
		bookings:   bookings,
		pricing:    pricing,
		cfg:        cfg,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// GetRecommendations prices every night in [start, end].
func (s *PricingService) GetRecommendations(ctx context.Context, propertyID uuid.UUID, start, end time.Time) ([]Recommendation, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	start = model.DateOnly(start)
	end = model.DateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: %s after %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	overrides, err := s.pricing.ListOverrides(ctx, propertyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	overrideByDate := make(map[time.Time]*model.PriceOverride, len(overrides))
	for i := range overrides {
		overrideByDate[model.DateOnly(overrides[i].Date)] = &overrides[i]
	}

	rules, err := s.pricing.ListActiveRules(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load pricing rules: %w", err)
	}

	// Occupancy looks back 30 days from the range start, so fetch bookings
	// covering the widened window once.
	bookings, err := s.bookings.ListConfirmedOverlapping(ctx, propertyID,
		start.AddDate(0, 0, -occupancyWindowDays), end)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	booked := bookedDates(bookings)

	now := s.nowFunc()
	var recs []Recommendation
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		rec := s.priceDate(prop, date, now, rules, overrideByDate, booked)
		recs = append(recs, rec)
		s.bus.Publish(event.New(event.TypePriceRecommendation, event.PriceRecommendation{
			PropertyID:       propertyID,
			Date:             date,
			RecommendedPrice: rec.RecommendedPrice,
		}))
	}
	return recs, nil
}

func (s *PricingService) priceDate(
	prop *model.Property,
	date, now time.Time,
	rules []model.PricingRule,
	overrides map[time.Time]*model.PriceOverride,
	booked map[time.Time]bool,
) Recommendation {
	rec := Recommendation{
		PropertyID: prop.ID,
		Date:       date,
		BasePrice:  prop.BasePrice,
	}

	if o, ok := overrides[date]; ok {
		rec.RecommendedPrice = round2(o.Price)
		rec.IsOverride = true
		reason := o.Reason
		if reason == "" {
			reason = "manual override"
		}
		rec.Adjustments = []string{reason}
		return rec
	}

	price := prop.BasePrice

	// Friday and Saturday nights.
	if wd := date.Weekday(); wd == time.Friday || wd == time.Saturday {
		price *= s.cfg.WeekendMultiplier
		rec.Adjustments = append(rec.Adjustments, "weekend")
	}

	month := int(date.Month())
	if containsInt(s.cfg.HighSeason.Months, month) {
		price *= s.cfg.HighSeason.Multiplier
		rec.Adjustments = append(rec.Adjustments, "high season")
	} else if containsInt(s.cfg.LowSeason.Months, month) {
		price *= s.cfg.LowSeason.Multiplier
		rec.Adjustments = append(rec.Adjustments, "low season")
	}

	daysOut := int(date.Sub(model.DateOnly(now)).Hours() / 24)
	if daysOut >= 0 && daysOut <= s.cfg.LastMinuteDays {
		price *= 1 - s.cfg.LastMinuteDiscount
		rec.Adjustments = append(rec.Adjustments, "last-minute discount")
	} else if daysOut > s.cfg.FarOutDays {
		price *= 1 + s.cfg.FarOutPremium
		rec.Adjustments = append(rec.Adjustments, "far-out premium")
	}

	occ := trailingOccupancy(booked, date)
	if occ > 0.80 {
		price *= 1.10
		rec.Adjustments = append(rec.Adjustments, "high demand")
	} else if occ < 0.40 {
		price *= 0.95
		rec.Adjustments = append(rec.Adjustments, "low demand")
	}

	for i := range rules {
		rule := &rules[i]
		if ruleApplies(rule, date) {
			price *= rule.Multiplier
			rec.Adjustments = append(rec.Adjustments, rule.Name)
		}
	}

	floor := prop.BasePrice * s.cfg.MinPriceRatio
	ceiling := prop.BasePrice * s.cfg.MaxPriceRatio
	if price < floor {
		price = floor
		rec.Adjustments = append(rec.Adjustments, "floor")
	} else if price > ceiling {
		price = ceiling
		rec.Adjustments = append(rec.Adjustments, "ceiling")
	}

	rec.RecommendedPrice = round2(price)
	return rec
}

// ruleApplies checks the rule's optional date range and weekday filter.
// DaysOfWeek uses Monday=0 through Sunday=6.
func ruleApplies(rule *model.PricingRule, date time.Time) bool {
	if rule.StartDate != nil && date.Before(model.DateOnly(*rule.StartDate)) {
		return false
	}
	if rule.EndDate != nil && date.After(model.DateOnly(*rule.EndDate)) {
		return false
	}
	if rule.DaysOfWeek != "" {
		day := (int(date.Weekday()) + 6) % 7
		match := false
		for _, part := range strings.Split(rule.DaysOfWeek, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n == day {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// bookedDates expands confirmed stays into the set of occupied nights.
func bookedDates(bookings []model.Booking) map[time.Time]bool {
	booked := make(map[time.Time]bool)
	for i := range bookings {
		b := &bookings[i]
		for d := model.DateOnly(b.CheckinDate); d.Before(model.DateOnly(b.CheckoutDate)); d = d.AddDate(0, 0, 1) {
			booked[d] = true
		}
	}
	return booked
}

// trailingOccupancy is the share of the previous 30 nights that were booked.
func trailingOccupancy(booked map[time.Time]bool, date time.Time) float64 {
	count := 0
	for i := 1; i <= occupancyWindowDays; i++ {
		if booked[date.AddDate(0, 0, -i)] {
			count++
		}
	}
	return float64(count) / float64(occupancyWindowDays)
}

// RuleInput describes a new pricing rule.
type RuleInput struct {
	PropertyID uuid.UUID
	RuleType   model.PricingRuleType
	Name       string
	Multiplier float64
	StartDate  *time.Time
	EndDate    *time.Time
	DaysOfWeek string
}

func (s *PricingService) CreateRule(ctx context.Context, in RuleInput) (*model.PricingRule, error) {
	if _, err := s.properties.GetByID(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", in.PropertyID, err)
	}
	if in.Multiplier <= 0 {
		return nil, fmt.Errorf("multiplier must be positive, got %v", in.Multiplier)
	}
	rule := &model.PricingRule{
		PropertyID: in.PropertyID,
		RuleType:   in.RuleType,
		Name:       in.Name,
		Multiplier: in.Multiplier,
		DaysOfWeek: in.DaysOfWeek,
		IsActive:   true,
	}
	if in.StartDate != nil {
		d := model.DateOnly(*in.StartDate)
		rule.StartDate = &d
	}
	if in.EndDate != nil {
		d := model.DateOnly(*in.EndDate)
		rule.EndDate = &d
	}
	if err := s.pricing.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create pricing rule: %w", err)
	}
	return rule, nil
}

func (s *PricingService) SetOverride(ctx context.Context, propertyID uuid.UUID, date time.Time, price float64, reason string) (*model.PriceOverride, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("override price must be positive, got %v", price)
	}
	o := &model.PriceOverride{
		PropertyID: propertyID,
		Date:       model.DateOnly(date),
		Price:      price,
		Reason:     reason,
	}
	if err := s.pricing.CreateOverride(ctx, o); err != nil {
		return nil, fmt.Errorf("create price override: %w", err)
	}
	return o, nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
