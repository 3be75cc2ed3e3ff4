package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/notify"
	"github.com/proppilot/proppilot/internal/repository"
)

// Built-in template names. Each one may be queued at most once per booking.
const (
	TemplateWelcome             = "welcome"
	TemplateCheckInInstructions = "check_in_instructions"
	TemplateCheckoutReminder    = "checkout_reminder"
	TemplateReviewRequest       = "review_request"
)

// CommsService queues and delivers guest messages. Scheduled messages are
// level-triggered: every scan re-derives which messages are due from booking
// dates, and the (booking, template) dedup makes re-scans harmless.
type CommsService struct {
	log        *logrus.Logger
	bus        *event.Bus
	db         *gorm.DB
	properties repository.PropertyRepository
	bookings   repository.BookingRepository
	messages   repository.MessageRepository
	renderer   TemplateRenderer
	mailer     notify.Mailer
	windows    MessageWindows

	nowFunc func() time.Time
}

// MessageWindows holds the trigger offsets, in hours, for the scheduled
// templates.
type MessageWindows struct {
	CheckinInstructionsBefore int
	CheckoutReminderBefore    int
	ReviewRequestAfter        int
}

func NewCommsService(
	log *logrus.Logger,
	bus *event.Bus,
	db *gorm.DB,
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
	messages repository.MessageRepository,
	renderer TemplateRenderer,
	mailer notify.Mailer,
	windows MessageWindows,
) *CommsService {
	return &CommsService{
		log:        log,
		bus:        bus,
		db:         db,
		properties: properties,
		bookings:   bookings,
		messages:   messages,
		renderer:   renderer,
		mailer:     mailer,
		windows:    windows,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterEventHandlers subscribes the service to booking lifecycle events.
func (s *CommsService) RegisterEventHandlers() {
	s.bus.Subscribe(event.TypeBookingNew, s.onBookingNew)
}

func (s *CommsService) onBookingNew(evt event.Event) error {
	p, ok := evt.Payload.(event.BookingNew)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	_, err := s.QueueMessage(context.Background(), p.BookingID, TemplateWelcome)
	return err
}

// QueueMessage renders the template for the booking and inserts a queued
// message log row. If a non-failed row for (booking, template) already
// exists it is returned as-is. Rendering and the template lookup happen
// before the transaction opens, so the dedup check and the insert are the
// only statements that hold a connection; a render failure leaves no row
// behind either way.
func (s *CommsService) QueueMessage(ctx context.Context, bookingID uuid.UUID, templateName string) (*model.MessageLog, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	prop, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", booking.PropertyID, err)
	}

	if existing, err := s.messages.FindActive(ctx, booking.ID, templateName); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("queue message: %w", err)
	}

	body, err := s.renderer.Render(ctx, templateName, messageContext(booking, prop))
	if err != nil {
		return nil, fmt.Errorf("queue message: %w", err)
	}

	channel := model.MessageChannelAirbnb
	subject := messageSubject(templateName, prop.Name)
	if tpl, err := s.messages.GetActiveTemplate(ctx, templateName); err == nil {
		if tpl.Channel != "" {
			channel = tpl.Channel
		}
		if tpl.Subject != "" {
			subject = tpl.Subject
		}
	}

	var msg *model.MessageLog
	created := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messages := repository.NewGormMessageRepository(tx)

		existing, err := messages.FindActive(ctx, booking.ID, templateName)
		if err == nil {
			msg = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.nowFunc()
		bid := booking.ID
		msg = &model.MessageLog{
			BookingID:    &bid,
			TemplateName: templateName,
			Channel:      channel,
			Recipient:    booking.GuestEmail,
			Subject:      subject,
			Body:         body,
			Status:       model.MessageStatusQueued,
			ScheduledAt:  &now,
		}
		if err := messages.Create(ctx, msg); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("queue message: %w", err)
	}

	if created {
		s.log.WithFields(logrus.Fields{
			"booking":  booking.ID,
			"template": templateName,
			"channel":  msg.Channel,
		}).Info("message queued")
		s.bus.Publish(event.New(event.TypeMessageQueued, event.MessageQueued{
			MessageID:    msg.ID,
			BookingID:    msg.BookingID,
			TemplateName: templateName,
		}))
	}
	return msg, nil
}

// CheckScheduledMessages scans confirmed bookings and queues every template
// whose trigger window contains the current moment. Each window spans from
// the trigger offset until the anchor itself, so a scan that was down when
// the trigger fired still queues the message on the next run.
func (s *CommsService) CheckScheduledMessages(ctx context.Context) error {
	bookings, err := s.bookings.ListConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("list confirmed bookings: %w", err)
	}

	now := s.nowFunc()
	for i := range bookings {
		b := &bookings[i]

		untilCheckin := b.CheckinDate.Sub(now)
		if untilCheckin >= 0 && untilCheckin <= time.Duration(s.windows.CheckinInstructionsBefore)*time.Hour {
			s.queueScheduled(ctx, b, TemplateCheckInInstructions)
		}

		untilCheckout := b.CheckoutDate.Sub(now)
		if untilCheckout >= 0 && untilCheckout <= time.Duration(s.windows.CheckoutReminderBefore)*time.Hour {
			s.queueScheduled(ctx, b, TemplateCheckoutReminder)
		}

		sinceCheckout := now.Sub(b.CheckoutDate)
		if sinceCheckout >= 0 && sinceCheckout <= time.Duration(s.windows.ReviewRequestAfter)*time.Hour {
			s.queueScheduled(ctx, b, TemplateReviewRequest)
		}
	}
	return nil
}

func (s *CommsService) queueScheduled(ctx context.Context, b *model.Booking, templateName string) {
	if _, err := s.QueueMessage(ctx, b.ID, templateName); err != nil {
		s.log.WithFields(logrus.Fields{
			"booking":  b.ID,
			"template": templateName,
		}).WithError(err).Error("queue scheduled message")
	}
}

// SendPendingMessages delivers due queued messages. Email goes out through
// SMTP; airbnb-channel messages stay queued until an operator copies them
// into the platform thread and marks them copied. A failed send marks the
// row failed, which frees the (booking, template) slot for a retry.
func (s *CommsService) SendPendingMessages(ctx context.Context) (int, error) {
	due, err := s.messages.ListDue(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("list due messages: %w", err)
	}

	sent := 0
	for i := range due {
		msg := &due[i]
		if msg.Channel != model.MessageChannelEmail {
			continue
		}
		if msg.Recipient == "" {
			// No address yet; the inbox enrichment may still fill it in.
			continue
		}
		if err := s.mailer.SendMail(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
			if errors.Is(err, notify.ErrNotConfigured) {
				s.log.Debug("email channel not configured, leaving messages queued")
				return sent, nil
			}
			s.log.WithError(err).WithField("message", msg.ID).Error("send email message")
			if err := s.messages.MarkFailed(ctx, msg.ID); err != nil {
				s.log.WithError(err).WithField("message", msg.ID).Error("mark message failed")
			}
			continue
		}
		if err := s.messages.MarkSent(ctx, msg.ID, s.nowFunc()); err != nil {
			s.log.WithError(err).WithField("message", msg.ID).Error("mark message sent")
			continue
		}
		sent++
	}
	return sent, nil
}

// MarkCopied records that an operator pasted the message into the platform
// thread.
func (s *CommsService) MarkCopied(ctx context.Context, messageID uuid.UUID) error {
	if _, err := s.messages.GetByID(ctx, messageID); err != nil {
		return err
	}
	return s.messages.MarkCopied(ctx, messageID)
}

func messageSubject(templateName, propertyName string) string {
	words := strings.Split(strings.ReplaceAll(templateName, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " - " + propertyName
}

// messageContext assembles the template variables. Every key is always
// present so templates never render missing-value placeholders.
func messageContext(b *model.Booking, p *model.Property) map[string]any {
	guestName := b.GuestName
	if guestName == "" {
		guestName = "there"
	}
	wifi := p.WifiPassword
	if wifi == "" {
		wifi = "N/A"
	}
	lockbox := p.LockboxCode
	if lockbox == "" {
		lockbox = "N/A"
	}
	numGuests := 0
	if b.NumGuests != nil {
		numGuests = *b.NumGuests
	}
	confirmation := ""
	if b.ConfirmationCode != nil {
		confirmation = *b.ConfirmationCode
	}
	return map[string]any{
		"guest_name":        guestName,
		"property_name":     p.Name,
		"address":           p.Address,
		"checkin_date":      b.CheckinDate.Format("January 2, 2006"),
		"checkout_date":     b.CheckoutDate.Format("January 2, 2006"),
		"checkin_time":      p.CheckinTime,
		"checkout_time":     p.CheckoutTime,
		"wifi_password":     wifi,
		"lockbox_code":      lockbox,
		"nights":            b.Nights(),
		"num_guests":        numGuests,
		"notes":             p.Notes,
		"confirmation_code": confirmation,
	}
}
