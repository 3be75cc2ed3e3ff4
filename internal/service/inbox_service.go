package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/mail"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// InboxService turns platform notification emails into booking enrichment,
// payouts and cancellations. Every message ends up in the processing log
// exactly once, keyed by its mailbox message id.
type InboxService struct {
	log      *logrus.Logger
	bus      *event.Bus
	source   mail.MailboxSource
	bookings repository.BookingRepository
	payouts  repository.PayoutRepository
	emails   repository.EmailLogRepository

	nowFunc func() time.Time
}

func NewInboxService(
	log *logrus.Logger,
	bus *event.Bus,
	source mail.MailboxSource,
	bookings repository.BookingRepository,
	payouts repository.PayoutRepository,
	emails repository.EmailLogRepository,
) *InboxService {
	return &InboxService{
		log:      log,
		bus:      bus,
		source:   source,
		bookings: bookings,
		payouts:  payouts,
		emails:   emails,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// CheckMail processes all unseen messages. A message that fails to process
// is logged with an error status, not retried, so one malformed email cannot
// wedge the inbox.
func (s *InboxService) CheckMail(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, nil
	}
	msgs, err := s.source.FetchUnseen(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch mail: %w", err)
	}

	processed := 0
	for _, msg := range msgs {
		seen, err := s.emails.Seen(ctx, msg.ID)
		if err != nil {
			return processed, fmt.Errorf("check processing log: %w", err)
		}
		if seen {
			continue
		}
		s.handleMessage(ctx, msg)
		processed++
	}
	return processed, nil
}

func (s *InboxService) handleMessage(ctx context.Context, msg mail.Message) {
	kind := mail.Classify(msg.Subject)

	var (
		parsed  any
		procErr error
	)
	switch kind {
	case mail.KindBookingConfirmation:
		parsed, procErr = s.handleConfirmation(ctx, msg)
	case mail.KindPayout:
		parsed, procErr = s.handlePayout(ctx, msg)
	case mail.KindCancellation:
		parsed, procErr = s.handleCancellation(ctx, msg)
	case mail.KindGuestMessage:
		// Surfaced in the log so the host notices; no automation attached.
	}

	entry := &model.EmailLog{
		MessageID:   msg.ID,
		Subject:     msg.Subject,
		Sender:      msg.From,
		ParsedType:  string(kind),
		Status:      model.EmailLogStatusProcessed,
		ProcessedAt: s.nowFunc(),
	}
	if !msg.Received.IsZero() {
		received := msg.Received
		entry.ReceivedDate = &received
	}
	if kind == mail.KindUnknown {
		entry.Status = model.EmailLogStatusUnrecognized
	}
	if procErr != nil {
		entry.Status = model.EmailLogStatusError
		entry.ErrorMessage = procErr.Error()
		s.log.WithFields(logrus.Fields{
			"message": msg.ID,
			"kind":    kind,
		}).WithError(procErr).Error("process inbox message")
	}
	if parsed != nil {
		if data, err := json.Marshal(parsed); err == nil {
			entry.ParsedData = datatypes.JSON(data)
		}
	}
	if err := s.emails.Create(ctx, entry); err != nil {
		s.log.WithError(err).WithField("message", msg.ID).Error("write email processing log")
	}
}

// handleConfirmation enriches a feed booking with the guest details the
// calendar feed never carries. The booking is matched by confirmation code
// first, then by exact stay dates.
func (s *InboxService) handleConfirmation(ctx context.Context, msg mail.Message) (any, error) {
	c := mail.ExtractConfirmation(msg.Body)

	booking, err := s.matchBooking(ctx, c)
	if errors.Is(err, repository.ErrNotFound) {
		// The feed may simply not have synced yet; the email stays in the
		// log and the details show up in the unmatched report.
		return c, nil
	}
	if err != nil {
		return c, err
	}

	changed := false
	if c.GuestName != "" && booking.GuestName != c.GuestName {
		booking.GuestName = c.GuestName
		changed = true
	}
	if c.ConfirmationCode != "" && (booking.ConfirmationCode == nil || *booking.ConfirmationCode != c.ConfirmationCode) {
		code := c.ConfirmationCode
		booking.ConfirmationCode = &code
		changed = true
	}
	if !changed {
		return c, nil
	}
	if err := s.bookings.Save(ctx, booking); err != nil {
		return c, fmt.Errorf("save enriched booking: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"booking": booking.ID,
		"guest":   booking.GuestName,
	}).Info("booking enriched from confirmation email")
	s.bus.Publish(event.New(event.TypeGuestInfoEnriched, event.GuestInfoEnriched{
		BookingID: booking.ID,
		GuestName: booking.GuestName,
	}))
	return c, nil
}

func (s *InboxService) matchBooking(ctx context.Context, c mail.Confirmation) (*model.Booking, error) {
	if c.ConfirmationCode != "" {
		booking, err := s.bookings.FindByConfirmationCode(ctx, c.ConfirmationCode)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if c.Checkin != nil && c.Checkout != nil {
		return s.bookings.FindConfirmedByStay(ctx, *c.Checkin, *c.Checkout)
	}
	return nil, repository.ErrNotFound
}

// handlePayout records the payout and, when the email names a confirmation
// code we know, attaches it to the booking.
func (s *InboxService) handlePayout(ctx context.Context, msg mail.Message) (any, error) {
	p := mail.ExtractPayout(msg.Body)
	if !p.HasAmount {
		return p, fmt.Errorf("payout email without a parseable amount")
	}

	payout := &model.Payout{
		Amount:           p.Amount,
		PayoutDate:       model.DateOnly(msg.Received),
		ConfirmationCode: p.ConfirmationCode,
		Source:           model.PayoutSourceEmail,
	}
	if p.ConfirmationCode != "" {
		booking, err := s.bookings.FindByConfirmationCode(ctx, p.ConfirmationCode)
		if err == nil {
			bid := booking.ID
			payout.BookingID = &bid
			payout.PropertyID = &booking.PropertyID
			amount := p.Amount
			booking.TotalPayout = &amount
			if err := s.bookings.Save(ctx, booking); err != nil {
				return p, fmt.Errorf("attach payout to booking: %w", err)
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return p, err
		}
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		return p, fmt.Errorf("record payout: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"amount": p.Amount.StringFixed(2),
		"code":   p.ConfirmationCode,
	}).Info("payout recorded from email")
	s.bus.Publish(event.New(event.TypePayoutReceived, event.PayoutReceived{
		PayoutID:  payout.ID,
		BookingID: payout.BookingID,
		Amount:    payout.Amount,
	}))
	return p, nil
}

// handleCancellation cancels the named booking. The bus fans the event out
// to the cleaning cascade.
func (s *InboxService) handleCancellation(ctx context.Context, msg mail.Message) (any, error) {
	code := mail.ExtractCancellationCode(msg.Body)
	parsed := map[string]string{"confirmation_code": code}
	if code == "" {
		return parsed, fmt.Errorf("cancellation email without a confirmation code")
	}

	booking, err := s.bookings.FindByConfirmationCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return parsed, nil
	}
	if err != nil {
		return parsed, err
	}
	if booking.Status == model.BookingStatusCancelled {
		return parsed, nil
	}
	if err := s.bookings.UpdateStatus(ctx, booking.ID, model.BookingStatusCancelled); err != nil {
		return parsed, fmt.Errorf("cancel booking: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"booking": booking.ID,
		"code":    code,
	}).Info("booking cancelled from email")
	s.bus.Publish(event.New(event.TypeBookingCancelled, event.BookingCancelled{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
	}))
	return parsed, nil
}
