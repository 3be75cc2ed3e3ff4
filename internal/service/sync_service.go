package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/proppilot/proppilot/internal/calendar"
	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// SyncResult tallies one property's reconciliation cycle.
type SyncResult struct {
	PropertyID string `json:"property_id"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Cancelled  int    `json:"cancelled"`
	Unchanged  int    `json:"unchanged"`
	// Reappeared counts feed events whose UID matches a booking we already
	// cancelled. Cancellation is terminal; these are only surfaced so an
	// operator can investigate feed glitches.
	Reappeared int `json:"reappeared"`
}

// SyncService reconciles external calendar feeds against stored bookings.
// One cycle handles one property; failures are isolated per property and the
// state is simply retried on the next scheduled run.
type SyncService struct {
	log        *logrus.Logger
	bus        *event.Bus
	source     calendar.Source
	properties repository.PropertyRepository
	bookings   repository.BookingRepository
}

func NewSyncService(
	log *logrus.Logger,
	bus *event.Bus,
	source calendar.Source,
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
) *SyncService {
	return &SyncService{
		log:        log,
		bus:        bus,
		source:     source,
		properties: properties,
		bookings:   bookings,
	}
}

// SyncAll reconciles every property that has a feed configured. A failing
// property is logged and skipped; the remaining properties still sync.
func (s *SyncService) SyncAll(ctx context.Context) []SyncResult {
	props, err := s.properties.ListWithFeed(ctx)
	if err != nil {
		s.log.WithError(err).Error("list feed properties")
		return nil
	}

	results := make([]SyncResult, 0, len(props))
	for i := range props {
		prop := &props[i]
		res, err := s.SyncProperty(ctx, prop)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"property": prop.Name,
			}).WithError(err).Error("calendar sync failed")
			continue
		}
		results = append(results, res)
	}
	return results
}

// SyncProperty runs one reconciliation cycle. The diff has three outcomes:
// unknown UID creates a booking, a known UID with changed fields updates it,
// and a stored confirmed booking missing from the feed is cancelled. Running
// the same cycle twice with identical input changes nothing and publishes
// nothing.
func (s *SyncService) SyncProperty(ctx context.Context, prop *model.Property) (SyncResult, error) {
	res := SyncResult{PropertyID: prop.ID.String()}

	if !prop.HasFeed() {
		return res, fmt.Errorf("property %s has no feed configured", prop.Name)
	}

	events, err := s.source.Fetch(ctx, prop.ICalURL)
	if err != nil {
		// No state was touched; next cycle retries.
		return res, fmt.Errorf("fetch feed: %w", err)
	}

	existing, err := s.bookings.ListFeedBookings(ctx, prop.ID)
	if err != nil {
		return res, fmt.Errorf("load feed bookings: %w", err)
	}
	byUID := make(map[string]*model.Booking, len(existing))
	for i := range existing {
		if existing[i].ICalUID != nil {
			byUID[*existing[i].ICalUID] = &existing[i]
		}
	}

	seen := make(map[string]bool, len(events))

	for _, evt := range events {
		seen[evt.UID] = true

		booking, known := byUID[evt.UID]
		if !known {
			uid := evt.UID
			created := &model.Booking{
				PropertyID:   prop.ID,
				ICalUID:      &uid,
				CheckinDate:  model.DateOnly(evt.Checkin),
				CheckoutDate: model.DateOnly(evt.Checkout),
				Summary:      evt.Summary,
				Status:       model.BookingStatusConfirmed,
				Source:       model.BookingSourceICal,
			}
			if err := s.bookings.Create(ctx, created); err != nil {
				// A bad event (invalid stay range, colliding UID) must not
				// abort the rest of the cycle.
				s.log.WithFields(logrus.Fields{
					"property": prop.Name,
					"uid":      evt.UID,
				}).WithError(err).Error("create booking from feed event")
				continue
			}
			res.Created++
			s.log.WithFields(logrus.Fields{
				"property": prop.Name,
				"checkin":  created.CheckinDate.Format("2006-01-02"),
				"checkout": created.CheckoutDate.Format("2006-01-02"),
			}).Info("new booking detected")
			s.bus.Publish(event.New(event.TypeBookingNew, event.BookingNew{
				BookingID:  created.ID,
				PropertyID: prop.ID,
			}))
			continue
		}

		if booking.Status == model.BookingStatusCancelled {
			res.Reappeared++
		}

		if !applyFeedEvent(booking, evt) {
			res.Unchanged++
			continue
		}
		if err := s.bookings.Save(ctx, booking); err != nil {
			s.log.WithFields(logrus.Fields{
				"property": prop.Name,
				"uid":      evt.UID,
			}).WithError(err).Error("update booking from feed event")
			continue
		}
		res.Updated++
		s.bus.Publish(event.New(event.TypeBookingModified, event.BookingModified{
			BookingID:  booking.ID,
			PropertyID: prop.ID,
		}))
	}

	// Confirmed bookings that disappeared from the feed are cancelled.
	// Already-cancelled ones stay untouched, which keeps the pass idempotent.
	for uid, booking := range byUID {
		if seen[uid] || booking.Status != model.BookingStatusConfirmed {
			continue
		}
		if err := s.bookings.UpdateStatus(ctx, booking.ID, model.BookingStatusCancelled); err != nil {
			s.log.WithFields(logrus.Fields{
				"property": prop.Name,
				"uid":      uid,
			}).WithError(err).Error("cancel booking missing from feed")
			continue
		}
		res.Cancelled++
		s.log.WithFields(logrus.Fields{
			"property": prop.Name,
			"uid":      uid,
		}).Info("booking cancelled: removed from feed")
		s.bus.Publish(event.New(event.TypeBookingCancelled, event.BookingCancelled{
			BookingID:  booking.ID,
			PropertyID: prop.ID,
		}))
	}

	return res, nil
}

// applyFeedEvent copies changed feed fields onto the booking and reports
// whether anything differed.
func applyFeedEvent(booking *model.Booking, evt calendar.Event) bool {
	changed := false
	if !model.SameDate(booking.CheckinDate, evt.Checkin) {
		booking.CheckinDate = model.DateOnly(evt.Checkin)
		changed = true
	}
	if !model.SameDate(booking.CheckoutDate, evt.Checkout) {
		booking.CheckoutDate = model.DateOnly(evt.Checkout)
		changed = true
	}
	if booking.Summary != evt.Summary {
		booking.Summary = evt.Summary
		changed = true
	}
	return changed
}
