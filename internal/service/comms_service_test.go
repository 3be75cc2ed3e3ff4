package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// fakeMailer records outgoing email.
type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendMail(_ context.Context, to, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+": "+subject)
	return nil
}

type commsFixture struct {
	svc      *CommsService
	db       *gorm.DB
	bus      *event.Bus
	rec      *eventRecorder
	mailer   *fakeMailer
	prop     *model.Property
	bookings repository.BookingRepository
	messages repository.MessageRepository
}

func newCommsFixture(t *testing.T) *commsFixture {
	t.Helper()
	db := newTestDB(t)
	bus := event.NewBus(newTestLogger())
	rec := &eventRecorder{}
	rec.subscribeAll(bus)

	properties := repository.NewGormPropertyRepository(db)
	bookings := repository.NewGormBookingRepository(db)
	messages := repository.NewGormMessageRepository(db)
	mailer := &fakeMailer{}

	prop := &model.Property{
		Name:         "Lakeview Cottage",
		Address:      "12 Shoreline Dr",
		WifiPassword: "bluewater22",
		LockboxCode:  "4417",
		CheckinTime:  "15:00",
		CheckoutTime: "11:00",
	}
	if err := properties.Create(context.Background(), prop); err != nil {
		t.Fatalf("create property: %v", err)
	}

	svc := NewCommsService(newTestLogger(), bus, db, properties, bookings, messages,
		NewRenderer(messages), mailer, MessageWindows{
			CheckinInstructionsBefore: 24,
			CheckoutReminderBefore:    18,
			ReviewRequestAfter:        48,
		})
	return &commsFixture{
		svc: svc, db: db, bus: bus, rec: rec, mailer: mailer,
		prop: prop, bookings: bookings, messages: messages,
	}
}

func (f *commsFixture) createBooking(t *testing.T, uid string, checkin, checkout time.Time) *model.Booking {
	t.Helper()
	b := &model.Booking{
		PropertyID:   f.prop.ID,
		ICalUID:      &uid,
		GuestName:    "Jordan Lee",
		GuestEmail:   "jordan@example.com",
		CheckinDate:  checkin,
		CheckoutDate: checkout,
		Status:       model.BookingStatusConfirmed,
		Source:       model.BookingSourceICal,
	}
	if err := f.bookings.Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestQueueMessageRendersTemplate(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if msg.Status != model.MessageStatusQueued {
		t.Fatalf("status = %s, want queued", msg.Status)
	}
	if !strings.Contains(msg.Body, "Jordan Lee") {
		t.Errorf("body missing guest name: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Lakeview Cottage") {
		t.Errorf("body missing property name: %q", msg.Body)
	}
	if got := f.rec.count(event.TypeMessageQueued); got != 1 {
		t.Errorf("message_queued events = %d, want 1", got)
	}
}

func TestQueueMessageDedupsPerBookingAndTemplate(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	first, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("first queue: %v", err)
	}
	second, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("second queue: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("second call created a new message")
	}

	// A different template still goes through.
	if _, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateCheckInInstructions); err != nil {
		t.Fatalf("other template: %v", err)
	}

	var count int64
	f.db.Model(&model.MessageLog{}).Count(&count)
	if count != 2 {
		t.Fatalf("messages = %d, want 2", count)
	}
}

func TestQueueMessageUnknownTemplate(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	_, err := f.svc.QueueMessage(context.Background(), booking.ID, "no_such_template")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}

	var count int64
	f.db.Model(&model.MessageLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("messages = %d, render failure must leave no row", count)
	}
}

func TestDatabaseTemplateOverridesBuiltin(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	tpl := &model.MessageTemplate{
		Name:     TemplateWelcome,
		Subject:  "Custom welcome",
		Body:     "Hello {{.guest_name}}, custom body.",
		Channel:  model.MessageChannelEmail,
		IsActive: true,
	}
	if err := f.messages.EnsureTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("ensure template: %v", err)
	}

	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !strings.Contains(msg.Body, "custom body") {
		t.Errorf("body = %q, want database override", msg.Body)
	}
	if msg.Channel != model.MessageChannelEmail {
		t.Errorf("channel = %s, want email from template row", msg.Channel)
	}
	if msg.Subject != "Custom welcome" {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestQueueMessageWithSingleConnectionPool(t *testing.T) {
	// The pool allows one connection. Template resolution must not ask for
	// a second one while the dedup transaction holds it, or queueing hangs
	// on any constrained pool.
	f := newCommsFixture(t)
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	tpl := &model.MessageTemplate{
		Name:     TemplateWelcome,
		Subject:  "Welcome aboard",
		Body:     "Hello {{.guest_name}}.",
		Channel:  model.MessageChannelEmail,
		IsActive: true,
	}
	if err := f.messages.EnsureTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("ensure template: %v", err)
	}
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if msg.Status != model.MessageStatusQueued {
		t.Fatalf("status = %s, want queued", msg.Status)
	}
	if msg.Subject != "Welcome aboard" {
		t.Fatalf("subject = %q, template row not applied", msg.Subject)
	}
}

func TestCheckScheduledMessagesQueuesInsideWindows(t *testing.T) {
	f := newCommsFixture(t)
	// Check-in 2026-09-10 00:00 UTC; 20h before is inside the 24h window.
	f.svc.nowFunc = func() time.Time {
		return time.Date(2026, 9, 9, 4, 0, 0, 0, time.UTC)
	}
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	if err := f.svc.CheckScheduledMessages(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := f.messages.FindActive(context.Background(), booking.ID, TemplateCheckInInstructions); err != nil {
		t.Fatalf("check-in instructions not queued: %v", err)
	}
	if _, err := f.messages.FindActive(context.Background(), booking.ID, TemplateCheckoutReminder); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("checkout reminder queued too early: %v", err)
	}

	// Re-running the scan changes nothing.
	if err := f.svc.CheckScheduledMessages(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	var count int64
	f.db.Model(&model.MessageLog{}).Count(&count)
	if count != 1 {
		t.Fatalf("messages = %d, want 1", count)
	}
}

func TestCheckScheduledMessagesReviewAfterCheckout(t *testing.T) {
	f := newCommsFixture(t)
	// 30h past checkout, inside the 48h review window. Checkout reminder's
	// own window has passed.
	f.svc.nowFunc = func() time.Time {
		return time.Date(2026, 9, 15, 6, 0, 0, 0, time.UTC)
	}
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	if err := f.svc.CheckScheduledMessages(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := f.messages.FindActive(context.Background(), booking.ID, TemplateReviewRequest); err != nil {
		t.Fatalf("review request not queued: %v", err)
	}
}

func TestSendPendingMessagesEmail(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	tpl := &model.MessageTemplate{
		Name:     TemplateWelcome,
		Body:     "Hello {{.guest_name}}.",
		Channel:  model.MessageChannelEmail,
		IsActive: true,
	}
	if err := f.messages.EnsureTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("ensure template: %v", err)
	}
	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	sent, err := f.svc.SendPendingMessages(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 1 || len(f.mailer.sent) != 1 {
		t.Fatalf("sent = %d, mail = %d", sent, len(f.mailer.sent))
	}

	reloaded, _ := f.messages.GetByID(context.Background(), msg.ID)
	if reloaded.Status != model.MessageStatusSent || reloaded.SentAt == nil {
		t.Fatalf("message not marked sent: %+v", reloaded)
	}
}

func TestSendFailureMarksFailedAndAllowsRequeue(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	tpl := &model.MessageTemplate{
		Name:     TemplateWelcome,
		Body:     "Hello.",
		Channel:  model.MessageChannelEmail,
		IsActive: true,
	}
	if err := f.messages.EnsureTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("ensure template: %v", err)
	}
	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	f.mailer.err = errors.New("smtp: 550")
	if _, err := f.svc.SendPendingMessages(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	reloaded, _ := f.messages.GetByID(context.Background(), msg.ID)
	if reloaded.Status != model.MessageStatusFailed {
		t.Fatalf("status = %s, want failed", reloaded.Status)
	}

	// The failed attempt frees the slot for another try.
	f.mailer.err = nil
	retried, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if retried.ID == msg.ID {
		t.Fatal("requeue returned the failed row")
	}
}

func TestAirbnbMessagesWaitForOperator(t *testing.T) {
	f := newCommsFixture(t)
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	msg, err := f.svc.QueueMessage(context.Background(), booking.ID, TemplateWelcome)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if msg.Channel != model.MessageChannelAirbnb {
		t.Fatalf("channel = %s, want airbnb default", msg.Channel)
	}

	sent, err := f.svc.SendPendingMessages(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 0 || len(f.mailer.sent) != 0 {
		t.Fatal("airbnb message must not be emailed")
	}

	if err := f.svc.MarkCopied(context.Background(), msg.ID); err != nil {
		t.Fatalf("mark copied: %v", err)
	}
	reloaded, _ := f.messages.GetByID(context.Background(), msg.ID)
	if reloaded.Status != model.MessageStatusCopied {
		t.Fatalf("status = %s, want copied", reloaded.Status)
	}
}

func TestWelcomeQueuedOnBookingNewEvent(t *testing.T) {
	f := newCommsFixture(t)
	f.svc.RegisterEventHandlers()
	booking := f.createBooking(t, "uid-1", date(2026, 9, 10), date(2026, 9, 14))

	f.bus.Publish(event.New(event.TypeBookingNew, event.BookingNew{
		BookingID:  booking.ID,
		PropertyID: f.prop.ID,
	}))

	if _, err := f.messages.FindActive(context.Background(), booking.ID, TemplateWelcome); err != nil {
		t.Fatalf("welcome not queued from event: %v", err)
	}
}
