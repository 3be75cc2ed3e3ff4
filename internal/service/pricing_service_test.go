package service

import (
	"context"
	"testing"
	"time"

	"github.com/proppilot/proppilot/internal/config"
	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

func testPricingSettings() config.PricingSettings {
	s := config.Settings{}
	s.ApplyDefaults()
	s.Pricing.HighSeason.Months = []int{6, 7, 8}
	s.Pricing.LowSeason.Months = []int{1, 2}
	return s.Pricing
}

type pricingFixture struct {
	svc      *PricingService
	prop     *model.Property
	bookings repository.BookingRepository
	pricing  repository.PricingRepository
}

func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()
	db := newTestDB(t)
	bus := event.NewBus(newTestLogger())

	properties := repository.NewGormPropertyRepository(db)
	bookings := repository.NewGormBookingRepository(db)
	pricing := repository.NewGormPricingRepository(db)

	prop := &model.Property{
		Name:      "Lakeview Cottage",
		Address:   "12 Shoreline Dr",
		BasePrice: 100,
	}
	if err := properties.Create(context.Background(), prop); err != nil {
		t.Fatalf("create property: %v", err)
	}

	svc := NewPricingService(newTestLogger(), bus, properties, bookings, pricing, testPricingSettings())
	// Fixed clock far from the priced dates so lead-time adjustments are
	// explicit per test.
	svc.nowFunc = func() time.Time { return date(2026, 4, 1) }
	return &pricingFixture{svc: svc, prop: prop, bookings: bookings, pricing: pricing}
}

// stepwise multiplies the factors one at a time, the way the engine does,
// so the expected value carries the same float64 rounding.
func stepwise(base float64, multipliers ...float64) float64 {
	price := base
	for _, m := range multipliers {
		price *= m
	}
	return round2(price)
}

func recommendOne(t *testing.T, f *pricingFixture, day time.Time) Recommendation {
	t.Helper()
	recs, err := f.svc.GetRecommendations(context.Background(), f.prop.ID, day, day)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("recs = %d, want 1", len(recs))
	}
	return recs[0]
}

func TestWeekendMultiplier(t *testing.T) {
	f := newPricingFixture(t)

	// 2026-04-24 is a Friday, 23 days out. Occupancy is zero, so the
	// low-demand nudge applies alongside the weekend multiplier.
	rec := recommendOne(t, f, date(2026, 4, 24))
	want := stepwise(100, 1.15, 0.95)
	if rec.RecommendedPrice != want {
		t.Fatalf("price = %v, want %v (adjustments %v)", rec.RecommendedPrice, want, rec.Adjustments)
	}
}

func TestSeasonalMultipliers(t *testing.T) {
	f := newPricingFixture(t)

	// 2026-07-15 is a Wednesday in high season, 105 days out (far-out),
	// zero occupancy.
	rec := recommendOne(t, f, date(2026, 7, 15))
	want := stepwise(100, 1.25, 1.05, 0.95)
	if rec.RecommendedPrice != want {
		t.Fatalf("high season price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}

	// 2027-01-13 is a Wednesday in low season, far out, zero occupancy.
	rec = recommendOne(t, f, date(2027, 1, 13))
	want = stepwise(100, 0.85, 1.05, 0.95)
	if rec.RecommendedPrice != want {
		t.Fatalf("low season price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}
}

func TestLastMinuteDiscount(t *testing.T) {
	f := newPricingFixture(t)

	// Two days out, a Friday: weekend * last-minute, occupancy is zero so
	// the low-demand nudge applies too.
	rec := recommendOne(t, f, date(2026, 4, 3))
	want := stepwise(100, 1.15, 0.90, 0.95)
	if rec.RecommendedPrice != want {
		t.Fatalf("price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}
}

func TestOverrideWinsOutright(t *testing.T) {
	f := newPricingFixture(t)

	day := date(2026, 7, 4)
	if _, err := f.svc.SetOverride(context.Background(), f.prop.ID, day, 399, "holiday weekend"); err != nil {
		t.Fatalf("set override: %v", err)
	}

	rec := recommendOne(t, f, day)
	if !rec.IsOverride || rec.RecommendedPrice != 399 {
		t.Fatalf("rec = %+v, want override 399", rec)
	}
	if len(rec.Adjustments) != 1 || rec.Adjustments[0] != "holiday weekend" {
		t.Fatalf("adjustments = %v", rec.Adjustments)
	}
}

func TestPriceClampedToFloorAndCeiling(t *testing.T) {
	f := newPricingFixture(t)

	// Stack rules until the raw price exceeds 2x base.
	for _, name := range []string{"festival", "championship"} {
		if _, err := f.svc.CreateRule(context.Background(), RuleInput{
			PropertyID: f.prop.ID,
			RuleType:   model.PricingRuleEvent,
			Name:       name,
			Multiplier: 2.0,
		}); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}
	rec := recommendOne(t, f, date(2026, 7, 15))
	if rec.RecommendedPrice != 200 {
		t.Fatalf("price = %v, want ceiling 200 (%v)", rec.RecommendedPrice, rec.Adjustments)
	}

	// And a crushing discount hits the floor.
	if _, err := f.svc.CreateRule(context.Background(), RuleInput{
		PropertyID: f.prop.ID,
		RuleType:   model.PricingRuleEvent,
		Name:       "fire sale",
		Multiplier: 0.01,
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	rec = recommendOne(t, f, date(2026, 7, 15))
	if rec.RecommendedPrice != 70 {
		t.Fatalf("price = %v, want floor 70 (%v)", rec.RecommendedPrice, rec.Adjustments)
	}
}

func TestHighOccupancyRaisesPrice(t *testing.T) {
	f := newPricingFixture(t)

	// Book out the 30 nights before the priced date.
	uid := "uid-occ"
	b := &model.Booking{
		PropertyID:   f.prop.ID,
		ICalUID:      &uid,
		CheckinDate:  date(2026, 4, 10),
		CheckoutDate: date(2026, 5, 12),
		Status:       model.BookingStatusConfirmed,
		Source:       model.BookingSourceICal,
	}
	if err := f.bookings.Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	// 2026-05-12 is a Tuesday, 41 days out: occupancy alone moves it.
	rec := recommendOne(t, f, date(2026, 5, 12))
	want := round2(100 * 1.10)
	if rec.RecommendedPrice != want {
		t.Fatalf("price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}
}

func TestDayOfWeekRule(t *testing.T) {
	f := newPricingFixture(t)

	// Wednesdays only (Monday=0).
	if _, err := f.svc.CreateRule(context.Background(), RuleInput{
		PropertyID: f.prop.ID,
		RuleType:   model.PricingRuleDayOfWeek,
		Name:       "midweek special",
		Multiplier: 0.9,
		DaysOfWeek: "2",
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	// 2026-05-13 is a Wednesday, 42 days out, zero occupancy.
	rec := recommendOne(t, f, date(2026, 5, 13))
	want := stepwise(100, 0.95, 0.9)
	if rec.RecommendedPrice != want {
		t.Fatalf("wednesday price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}

	// 2026-05-14 is a Thursday; the rule must not fire.
	rec = recommendOne(t, f, date(2026, 5, 14))
	want = stepwise(100, 0.95)
	if rec.RecommendedPrice != want {
		t.Fatalf("thursday price = %v, want %v (%v)", rec.RecommendedPrice, want, rec.Adjustments)
	}
}
