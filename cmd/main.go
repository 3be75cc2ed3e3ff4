package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/proppilot/proppilot/internal/calendar"
	"github.com/proppilot/proppilot/internal/config"
	"github.com/proppilot/proppilot/internal/db"
	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/handler"
	"github.com/proppilot/proppilot/internal/mail"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/notify"
	"github.com/proppilot/proppilot/internal/repository"
	"github.com/proppilot/proppilot/internal/router"
	"github.com/proppilot/proppilot/internal/scheduler"
	"github.com/proppilot/proppilot/internal/service"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	settings, err := config.LoadSettings(config.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Fatal("load settings")
		}
		log.Warn("config.yaml not found, running with defaults")
		settings = &config.Settings{}
		settings.ApplyDefaults()
	}

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.WithError(err).Fatal("load db config")
	}
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	properties := repository.NewGormPropertyRepository(gormDB)
	bookings := repository.NewGormBookingRepository(gormDB)
	tasks := repository.NewGormCleaningTaskRepository(gormDB)
	maintenance := repository.NewGormMaintenanceRepository(gormDB)
	inventory := repository.NewGormInventoryRepository(gormDB)
	messages := repository.NewGormMessageRepository(gormDB)
	payouts := repository.NewGormPayoutRepository(gormDB)
	expenses := repository.NewGormExpenseRepository(gormDB)
	pricing := repository.NewGormPricingRepository(gormDB)
	emails := repository.NewGormEmailLogRepository(gormDB)

	if err := seed(context.Background(), log, settings, properties, messages); err != nil {
		log.WithError(err).Fatal("seed database")
	}

	bus := event.NewBus(log)

	var sms notify.SMSSender = notify.DisabledSMS{}
	if sid := config.GetEnv("TWILIO_ACCOUNT_SID", ""); sid != "" {
		sms = notify.NewTwilioSender(sid,
			config.GetEnv("TWILIO_AUTH_TOKEN", ""),
			config.GetEnv("TWILIO_FROM_NUMBER", ""))
	}
	var mailer notify.Mailer = notify.DisabledMailer{}
	if host := config.GetEnv("SMTP_HOST", ""); host != "" {
		mailer = notify.NewSMTPMailer(host,
			config.GetEnv("SMTP_PORT", "587"),
			config.GetEnv("SMTP_USER", ""),
			config.GetEnv("SMTP_PASSWORD", ""))
	}
	var mailbox mail.MailboxSource
	if dir := config.GetEnv("MAIL_DIR", ""); dir != "" {
		mailbox = mail.NewDirSource(log, dir)
	}

	syncSvc := service.NewSyncService(log, bus, calendar.NewFeedSource(0), properties, bookings)
	opsSvc := service.NewOperationsService(log, bus, gormDB, properties, bookings, tasks, maintenance, inventory, sms)
	commsSvc := service.NewCommsService(log, bus, gormDB, properties, bookings, messages,
		service.NewRenderer(messages), mailer, service.MessageWindows{
			CheckinInstructionsBefore: settings.Messages.CheckInInstructions.TriggerHoursBeforeCheckin,
			CheckoutReminderBefore:    settings.Messages.CheckoutReminder.TriggerHoursBeforeCheckout,
			ReviewRequestAfter:        settings.Messages.ReviewRequest.TriggerHoursAfterCheckout,
		})
	pricingSvc := service.NewPricingService(log, bus, properties, bookings, pricing, settings.Pricing)
	financialSvc := service.NewFinancialService(log, bus, properties, bookings, payouts, expenses)
	inboxSvc := service.NewInboxService(log, bus, mailbox, bookings, payouts, emails)

	// Cleaning reacts before messaging: handlers run in subscription order.
	opsSvc.RegisterEventHandlers()
	commsSvc.RegisterEventHandlers()

	sched := scheduler.New(log)
	sched.Every("calendar-sync",
		time.Duration(settings.Scheduler.CalendarSyncIntervalMin)*time.Minute,
		func(ctx context.Context) { syncSvc.SyncAll(ctx) })
	sched.Every("email-check",
		time.Duration(settings.Scheduler.EmailCheckIntervalMin)*time.Minute,
		func(ctx context.Context) {
			if _, err := inboxSvc.CheckMail(ctx); err != nil {
				log.WithError(err).Error("email check failed")
			}
		})
	sched.Every("message-check",
		time.Duration(settings.Scheduler.MessageCheckIntervalMin)*time.Minute,
		func(ctx context.Context) {
			if err := commsSvc.CheckScheduledMessages(ctx); err != nil {
				log.WithError(err).Error("scheduled message check failed")
			}
			if _, err := commsSvc.SendPendingMessages(ctx); err != nil {
				log.WithError(err).Error("send pending messages failed")
			}
		})
	sched.Every("cleaner-notifications", time.Hour,
		func(ctx context.Context) {
			if _, err := opsSvc.NotifyCleaners(ctx); err != nil {
				log.WithError(err).Error("cleaner notifications failed")
			}
		})
	sched.DailyAt("morning-reminders", 8, 0,
		func(ctx context.Context) {
			if _, err := opsSvc.SendMorningReminders(ctx); err != nil {
				log.WithError(err).Error("morning reminders failed")
			}
		})

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Booking:    handler.NewBookingHandler(properties, bookings, syncSvc),
		Operations: handler.NewOperationsHandler(opsSvc, tasks),
		Message:    handler.NewMessageHandler(commsSvc, messages),
		Pricing:    handler.NewPricingHandler(pricingSvc),
		Financial:  handler.NewFinancialHandler(financialSvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("scheduler stopped")
		}
	}()

	addr := ":" + config.GetEnv("PORT", "8080")
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()
	log.WithField("addr", addr).Info("proppilot started")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
