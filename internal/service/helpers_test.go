package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// eventRecorder captures everything published on the bus for assertions.
type eventRecorder struct {
	events []event.Event
}

func (r *eventRecorder) record(e event.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) subscribeAll(bus *event.Bus) {
	for _, t := range []event.Type{
		event.TypeBookingNew,
		event.TypeBookingModified,
		event.TypeBookingCancelled,
		event.TypePayoutReceived,
		event.TypeGuestInfoEnriched,
		event.TypeCleaningTaskCreated,
		event.TypeMessageQueued,
		event.TypePriceRecommendation,
	} {
		bus.Subscribe(t, r.record)
	}
}

func (r *eventRecorder) count(t event.Type) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
