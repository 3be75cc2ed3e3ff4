package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/notify"
	"github.com/proppilot/proppilot/internal/repository"
)

// OperationsService automates the physical side of a stay: cleaning tasks,
// cleaner notifications, maintenance and inventory. It reacts to booking
// lifecycle events and is safe to invoke repeatedly for the same booking.
type OperationsService struct {
	log         *logrus.Logger
	bus         *event.Bus
	db          *gorm.DB
	properties  repository.PropertyRepository
	bookings    repository.BookingRepository
	tasks       repository.CleaningTaskRepository
	maintenance repository.MaintenanceRepository
	inventory   repository.InventoryRepository
	sms         notify.SMSSender

	nowFunc func() time.Time
}

func NewOperationsService(
	log *logrus.Logger,
	bus *event.Bus,
	db *gorm.DB,
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
	tasks repository.CleaningTaskRepository,
	maintenance repository.MaintenanceRepository,
	inventory repository.InventoryRepository,
	sms notify.SMSSender,
) *OperationsService {
	return &OperationsService{
		log:         log,
		bus:         bus,
		db:          db,
		properties:  properties,
		bookings:    bookings,
		tasks:       tasks,
		maintenance: maintenance,
		inventory:   inventory,
		sms:         sms,
		nowFunc:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterEventHandlers subscribes the service to booking lifecycle events.
func (s *OperationsService) RegisterEventHandlers() {
	s.bus.Subscribe(event.TypeBookingNew, s.onBookingNew)
	s.bus.Subscribe(event.TypeBookingModified, s.onBookingModified)
	s.bus.Subscribe(event.TypeBookingCancelled, s.onBookingCancelled)
}

func (s *OperationsService) onBookingNew(evt event.Event) error {
	p, ok := evt.Payload.(event.BookingNew)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	_, err := s.CreateCleaningTask(context.Background(), p.BookingID)
	return err
}

func (s *OperationsService) onBookingModified(evt event.Event) error {
	p, ok := evt.Payload.(event.BookingModified)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	return s.RescheduleCleaningTask(context.Background(), p.BookingID)
}

func (s *OperationsService) onBookingCancelled(evt event.Event) error {
	p, ok := evt.Payload.(event.BookingCancelled)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	_, err := s.CancelCleaningTasks(context.Background(), p.BookingID)
	return err
}

// CreateCleaningTask schedules a cleaning on the booking's checkout date.
// If a non-cancelled task for the booking already exists it is returned
// unchanged, so replayed events cannot produce duplicates. The check and the
// insert run in one transaction.
func (s *OperationsService) CreateCleaningTask(ctx context.Context, bookingID uuid.UUID) (*model.CleaningTask, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}

	var task *model.CleaningTask
	created := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := repository.NewGormCleaningTaskRepository(tx)
		bookings := repository.NewGormBookingRepository(tx)

		existing, err := tasks.FindActiveByBooking(ctx, booking.ID)
		if err == nil {
			task = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// Same-day turnover: a confirmed booking checks in the day this one
		// checks out. The cleaner needs to know it cannot slip.
		turnover, err := bookings.HasConfirmedCheckin(ctx, booking.PropertyID, booking.CheckoutDate)
		if err != nil {
			return err
		}

		priority := model.TaskPriorityNormal
		if turnover {
			priority = model.TaskPriorityHigh
		}
		bid := booking.ID
		task = &model.CleaningTask{
			PropertyID:    booking.PropertyID,
			BookingID:     &bid,
			ScheduledDate: model.DateOnly(booking.CheckoutDate),
			Status:        model.CleaningTaskStatusPending,
			IsTurnover:    turnover,
			Priority:      priority,
		}
		if err := tasks.Create(ctx, task); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create cleaning task: %w", err)
	}

	if created {
		s.log.WithFields(logrus.Fields{
			"booking":  booking.ID,
			"date":     task.ScheduledDate.Format("2006-01-02"),
			"turnover": task.IsTurnover,
		}).Info("cleaning task created")
		s.bus.Publish(event.New(event.TypeCleaningTaskCreated, event.CleaningTaskCreated{
			TaskID:     task.ID,
			PropertyID: task.PropertyID,
			Date:       task.ScheduledDate,
			IsTurnover: task.IsTurnover,
		}))
	}
	return task, nil
}

// RescheduleCleaningTask moves the booking's active task onto the booking's
// current checkout date. A booking without an active task gets one created,
// which covers modified events for bookings that predate the automation.
func (s *OperationsService) RescheduleCleaningTask(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}

	task, err := s.tasks.FindActiveByBooking(ctx, booking.ID)
	if errors.Is(err, repository.ErrNotFound) {
		_, err = s.CreateCleaningTask(ctx, bookingID)
		return err
	}
	if err != nil {
		return err
	}

	turnover, err := s.bookings.HasConfirmedCheckin(ctx, booking.PropertyID, booking.CheckoutDate)
	if err != nil {
		return err
	}

	newDate := model.DateOnly(booking.CheckoutDate)
	if model.SameDate(task.ScheduledDate, newDate) && task.IsTurnover == turnover {
		return nil
	}

	task.ScheduledDate = newDate
	task.IsTurnover = turnover
	if turnover {
		task.Priority = model.TaskPriorityHigh
	} else {
		task.Priority = model.TaskPriorityNormal
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return fmt.Errorf("reschedule cleaning task: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"booking": booking.ID,
		"date":    newDate.Format("2006-01-02"),
	}).Info("cleaning task rescheduled")
	return nil
}

// CancelCleaningTasks cancels every pending or notified task of the booking
// and returns how many were cancelled. Completed tasks are left alone.
func (s *OperationsService) CancelCleaningTasks(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	n, err := s.tasks.CancelActiveByBooking(ctx, bookingID)
	if err != nil {
		return 0, fmt.Errorf("cancel cleaning tasks: %w", err)
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{
			"booking": bookingID,
			"count":   n,
		}).Info("cleaning tasks cancelled")
	}
	return n, nil
}

// CompleteCleaningTask marks the task done now.
func (s *OperationsService) CompleteCleaningTask(ctx context.Context, taskID uuid.UUID) error {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return err
	}
	return s.tasks.Complete(ctx, taskID, s.nowFunc())
}

// NotifyCleaners texts each property's cleaner about due tasks. A task is
// only marked notified after the SMS went out, so an outage simply retries
// next cycle.
func (s *OperationsService) NotifyCleaners(ctx context.Context) (int, error) {
	due, err := s.tasks.ListDueForNotification(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	notified := 0
	for i := range due {
		task := &due[i]
		prop, err := s.properties.GetByID(ctx, task.PropertyID)
		if err != nil {
			s.log.WithError(err).WithField("task", task.ID).Error("load property for cleaner notification")
			continue
		}
		if prop.CleanerPhone == "" {
			continue
		}
		if err := s.sms.SendSMS(ctx, prop.CleanerPhone, cleanerNotification(task, prop)); err != nil {
			if errors.Is(err, notify.ErrNotConfigured) {
				s.log.Debug("sms channel not configured, skipping cleaner notifications")
				return notified, nil
			}
			s.log.WithError(err).WithField("task", task.ID).Error("send cleaner sms")
			continue
		}
		if err := s.tasks.MarkNotified(ctx, task.ID, s.nowFunc()); err != nil {
			s.log.WithError(err).WithField("task", task.ID).Error("mark task notified")
			continue
		}
		notified++
	}
	return notified, nil
}

// SendMorningReminders texts cleaners about today's still-active tasks,
// regardless of whether the initial notification went out.
func (s *OperationsService) SendMorningReminders(ctx context.Context) (int, error) {
	today := model.DateOnly(s.nowFunc())
	tasks, err := s.tasks.ListActiveForDate(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list today's tasks: %w", err)
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]
		prop, err := s.properties.GetByID(ctx, task.PropertyID)
		if err != nil || prop.CleanerPhone == "" {
			continue
		}
		body := fmt.Sprintf("Reminder: cleaning at %s today. %s", prop.Name, prop.Address)
		if task.IsTurnover {
			body += fmt.Sprintf(" SAME-DAY TURNOVER, must be done by %s.", prop.CheckinTime)
		}
		if err := s.sms.SendSMS(ctx, prop.CleanerPhone, body); err != nil {
			if errors.Is(err, notify.ErrNotConfigured) {
				return sent, nil
			}
			s.log.WithError(err).WithField("task", task.ID).Error("send morning reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

func cleanerNotification(task *model.CleaningTask, prop *model.Property) string {
	body := fmt.Sprintf("Cleaning needed at %s (%s) on %s after 11:00 AM checkout.",
		prop.Name, prop.Address, task.ScheduledDate.Format("Mon Jan 2"))
	if task.IsTurnover {
		body += fmt.Sprintf(" SAME-DAY TURNOVER: next guest arrives at %s.", prop.CheckinTime)
	}
	if prop.LockboxCode != "" {
		body += fmt.Sprintf(" Lockbox: %s.", prop.LockboxCode)
	}
	return body
}

// MaintenanceInput describes a new maintenance task.
type MaintenanceInput struct {
	PropertyID  uuid.UUID
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
}

func (s *OperationsService) CreateMaintenanceTask(ctx context.Context, in MaintenanceInput) (*model.MaintenanceTask, error) {
	if _, err := s.properties.GetByID(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", in.PropertyID, err)
	}
	priority := in.Priority
	if priority == "" {
		priority = string(model.TaskPriorityNormal)
	}
	task := &model.MaintenanceTask{
		PropertyID:  in.PropertyID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.MaintenanceStatusOpen,
		Priority:    priority,
	}
	if in.DueDate != nil {
		d := model.DateOnly(*in.DueDate)
		task.DueDate = &d
	}
	if err := s.maintenance.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create maintenance task: %w", err)
	}
	return task, nil
}

func (s *OperationsService) CompleteMaintenanceTask(ctx context.Context, taskID uuid.UUID, cost *float64) error {
	if _, err := s.maintenance.GetByID(ctx, taskID); err != nil {
		return err
	}
	return s.maintenance.Complete(ctx, taskID, s.nowFunc(), cost)
}

func (s *OperationsService) ListMaintenanceTasks(ctx context.Context) ([]model.MaintenanceTask, error) {
	return s.maintenance.List(ctx)
}

// InventoryInput describes a new tracked supply.
type InventoryInput struct {
	PropertyID       uuid.UUID
	Name             string
	Quantity         int
	ReorderThreshold int
	UnitCost         *float64
	Notes            string
}

func (s *OperationsService) AddInventoryItem(ctx context.Context, in InventoryInput) (*model.InventoryItem, error) {
	if _, err := s.properties.GetByID(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", in.PropertyID, err)
	}
	item := &model.InventoryItem{
		PropertyID:       in.PropertyID,
		Name:             in.Name,
		Quantity:         in.Quantity,
		ReorderThreshold: in.ReorderThreshold,
		UnitCost:         in.UnitCost,
		Notes:            in.Notes,
	}
	if item.ReorderThreshold == 0 {
		item.ReorderThreshold = 2
	}
	if err := s.inventory.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("add inventory item: %w", err)
	}
	return item, nil
}

func (s *OperationsService) UpdateInventoryQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return s.inventory.UpdateQuantity(ctx, itemID, quantity)
}

func (s *OperationsService) ListInventory(ctx context.Context) ([]model.InventoryItem, error) {
	return s.inventory.List(ctx)
}

// InventoryAlerts returns items at or below their reorder threshold.
func (s *OperationsService) InventoryAlerts(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := s.inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	low := items[:0]
	for _, item := range items {
		if item.NeedsReorder() {
			low = append(low, item)
		}
	}
	return low, nil
}
