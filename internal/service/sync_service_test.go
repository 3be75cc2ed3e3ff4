package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/calendar"
	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// fakeSource serves canned feed events, or an error.
type fakeSource struct {
	events []calendar.Event
	err    error
}

func (f *fakeSource) Fetch(context.Context, string) ([]calendar.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func newSyncFixture(t *testing.T, source calendar.Source) (*SyncService, *model.Property, *eventRecorder, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	bus := event.NewBus(newTestLogger())
	rec := &eventRecorder{}
	rec.subscribeAll(bus)

	properties := repository.NewGormPropertyRepository(db)
	bookings := repository.NewGormBookingRepository(db)

	prop := &model.Property{
		Name:    "Lakeview Cottage",
		Address: "12 Shoreline Dr",
		ICalURL: "https://example.com/cal.ics",
	}
	if err := properties.Create(context.Background(), prop); err != nil {
		t.Fatalf("create property: %v", err)
	}

	svc := NewSyncService(newTestLogger(), bus, source, properties, bookings)
	return svc, prop, rec, db
}

func feedEvent(uid string, checkin, checkout time.Time) calendar.Event {
	return calendar.Event{UID: uid, Checkin: checkin, Checkout: checkout, Summary: "Reserved"}
}

func TestSyncCreatesBookingAndPublishes(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}}
	svc, prop, rec, db := newSyncFixture(t, source)

	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Created != 1 || res.Updated != 0 || res.Cancelled != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := rec.count(event.TypeBookingNew); got != 1 {
		t.Fatalf("booking_new events = %d, want 1", got)
	}

	var booking model.Booking
	if err := db.First(&booking, "ical_uid = ?", "uid-1").Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.Status != model.BookingStatusConfirmed {
		t.Errorf("status = %s, want confirmed", booking.Status)
	}
	if booking.Source != model.BookingSourceICal {
		t.Errorf("source = %s, want ical", booking.Source)
	}
	if !model.SameDate(booking.CheckinDate, date(2026, 9, 10)) {
		t.Errorf("checkin = %v", booking.CheckinDate)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
		feedEvent("uid-2", date(2026, 10, 1), date(2026, 10, 3)),
	}}
	svc, prop, rec, db := newSyncFixture(t, source)

	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	publishedAfterFirst := len(rec.events)

	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Created != 0 || res.Updated != 0 || res.Cancelled != 0 || res.Unchanged != 2 {
		t.Fatalf("second sync result: %+v", res)
	}
	if len(rec.events) != publishedAfterFirst {
		t.Fatalf("second sync published %d extra events", len(rec.events)-publishedAfterFirst)
	}

	var count int64
	db.Model(&model.Booking{}).Count(&count)
	if count != 2 {
		t.Fatalf("bookings = %d, want 2", count)
	}
}

func TestSyncUpdatesChangedBooking(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}}
	svc, prop, rec, _ := newSyncFixture(t, source)

	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Guest extended the stay by two nights.
	source.events = []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 16)),
	}
	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("updated = %d, want 1", res.Updated)
	}
	if got := rec.count(event.TypeBookingModified); got != 1 {
		t.Fatalf("booking_modified events = %d, want 1", got)
	}
}

func TestSyncCancelsMissingBooking(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}}
	svc, prop, rec, db := newSyncFixture(t, source)

	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	source.events = nil
	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1", res.Cancelled)
	}
	if got := rec.count(event.TypeBookingCancelled); got != 1 {
		t.Fatalf("booking_cancelled events = %d, want 1", got)
	}

	var booking model.Booking
	if err := db.First(&booking, "ical_uid = ?", "uid-1").Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.Status != model.BookingStatusCancelled {
		t.Fatalf("status = %s, want cancelled", booking.Status)
	}

	// A third run with the feed still empty must not publish again.
	before := len(rec.events)
	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if len(rec.events) != before {
		t.Fatal("cancellation published twice")
	}
}

func TestSyncCancelledBookingStaysCancelledOnReappearance(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}}
	svc, prop, _, db := newSyncFixture(t, source)

	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	source.events = nil
	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	// The UID shows up again with the original dates.
	source.events = []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}
	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if res.Reappeared != 1 {
		t.Fatalf("reappeared = %d, want 1", res.Reappeared)
	}
	if res.Created != 0 {
		t.Fatalf("created = %d, want 0", res.Created)
	}

	var booking model.Booking
	if err := db.First(&booking, "ical_uid = ?", "uid-1").Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.Status != model.BookingStatusCancelled {
		t.Fatalf("status = %s, cancellation must be terminal", booking.Status)
	}
}

func TestSyncFetchFailureTouchesNothing(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-1", date(2026, 9, 10), date(2026, 9, 14)),
	}}
	svc, prop, _, db := newSyncFixture(t, source)

	if _, err := svc.SyncProperty(context.Background(), prop); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	source.err = errors.New("connection refused")
	if _, err := svc.SyncProperty(context.Background(), prop); err == nil {
		t.Fatal("expected error from failing feed")
	}

	var booking model.Booking
	if err := db.First(&booking, "ical_uid = ?", "uid-1").Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.Status != model.BookingStatusConfirmed {
		t.Fatalf("status = %s, fetch failure must not cancel", booking.Status)
	}
}

func TestSyncRejectsInvalidStayRange(t *testing.T) {
	source := &fakeSource{events: []calendar.Event{
		feedEvent("uid-bad", date(2026, 9, 14), date(2026, 9, 10)),
		feedEvent("uid-ok", date(2026, 10, 1), date(2026, 10, 3)),
	}}
	svc, prop, _, db := newSyncFixture(t, source)

	res, err := svc.SyncProperty(context.Background(), prop)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1 (bad event skipped)", res.Created)
	}

	var count int64
	db.Model(&model.Booking{}).Count(&count)
	if count != 1 {
		t.Fatalf("bookings = %d, want 1", count)
	}
}
