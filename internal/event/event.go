// Package event implements the in-process publish/subscribe bus that
// decouples booking detection from the downstream automations.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeBookingNew          Type = "booking_new"
	TypeBookingModified     Type = "booking_modified"
	TypeBookingCancelled    Type = "booking_cancelled"
	TypePayoutReceived      Type = "payout_received"
	TypeGuestInfoEnriched   Type = "guest_info_enriched"
	TypeCleaningTaskCreated Type = "cleaning_task_created"
	TypeMessageQueued       Type = "message_queued"
	TypePriceRecommendation Type = "price_recommendation"
)

// Payload is a closed union: exactly one payload type exists per event type,
// so subscribers can type-assert instead of digging through a loose map.
type Payload interface {
	isEventPayload()
}

type BookingNew struct {
	BookingID  uuid.UUID
	PropertyID uuid.UUID
}

type BookingModified struct {
	BookingID  uuid.UUID
	PropertyID uuid.UUID
}

type BookingCancelled struct {
	BookingID  uuid.UUID
	PropertyID uuid.UUID
}

type PayoutReceived struct {
	PayoutID  uuid.UUID
	BookingID *uuid.UUID
	Amount    decimal.Decimal
}

type GuestInfoEnriched struct {
	BookingID uuid.UUID
	GuestName string
}

type CleaningTaskCreated struct {
	TaskID     uuid.UUID
	PropertyID uuid.UUID
	Date       time.Time
	IsTurnover bool
}

type MessageQueued struct {
	MessageID    uuid.UUID
	BookingID    *uuid.UUID
	TemplateName string
}

type PriceRecommendation struct {
	PropertyID       uuid.UUID
	Date             time.Time
	RecommendedPrice float64
}

func (BookingNew) isEventPayload()          {}
func (BookingModified) isEventPayload()     {}
func (BookingCancelled) isEventPayload()    {}
func (PayoutReceived) isEventPayload()      {}
func (GuestInfoEnriched) isEventPayload()   {}
func (CleaningTaskCreated) isEventPayload() {}
func (MessageQueued) isEventPayload()       {}
func (PriceRecommendation) isEventPayload() {}

// Event is ephemeral: not persisted and not replayed. A subscriber that
// misses one relies on the periodic re-scans for self-healing.
type Event struct {
	Type      Type
	Payload   Payload
	Timestamp time.Time
}

// New builds an event stamped with the current UTC time.
func New(t Type, p Payload) Event {
	return Event{Type: t, Payload: p, Timestamp: time.Now().UTC()}
}
