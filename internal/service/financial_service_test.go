package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

type financialFixture struct {
	svc  *FinancialService
	prop *model.Property
	rec  *eventRecorder
}

func newFinancialFixture(t *testing.T) *financialFixture {
	t.Helper()
	db := newTestDB(t)
	bus := event.NewBus(newTestLogger())
	rec := &eventRecorder{}
	rec.subscribeAll(bus)

	properties := repository.NewGormPropertyRepository(db)
	bookings := repository.NewGormBookingRepository(db)
	payouts := repository.NewGormPayoutRepository(db)
	expenses := repository.NewGormExpenseRepository(db)

	prop := &model.Property{Name: "Lakeview Cottage", Address: "12 Shoreline Dr"}
	if err := properties.Create(context.Background(), prop); err != nil {
		t.Fatalf("create property: %v", err)
	}

	svc := NewFinancialService(newTestLogger(), bus, properties, bookings, payouts, expenses)
	return &financialFixture{svc: svc, prop: prop, rec: rec}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthlyReportAggregates(t *testing.T) {
	f := newFinancialFixture(t)
	ctx := context.Background()

	for _, amount := range []string{"850.25", "1200.50"} {
		if _, err := f.svc.AddManualPayout(ctx, PayoutInput{
			PropertyID: f.prop.ID,
			Amount:     dec(amount),
			PayoutDate: date(2026, 6, 15),
		}); err != nil {
			t.Fatalf("add payout: %v", err)
		}
	}
	// Next month's payout must not leak into June.
	if _, err := f.svc.AddManualPayout(ctx, PayoutInput{
		PropertyID: f.prop.ID,
		Amount:     dec("500.00"),
		PayoutDate: date(2026, 7, 1),
	}); err != nil {
		t.Fatalf("add payout: %v", err)
	}

	if _, err := f.svc.AddExpense(ctx, ExpenseInput{
		PropertyID:  f.prop.ID,
		Category:    "cleaning_and_maintenance",
		Description: "June cleans",
		Amount:      dec("240.00"),
		Date:        date(2026, 6, 20),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := f.svc.AddExpense(ctx, ExpenseInput{
		PropertyID:  f.prop.ID,
		Category:    "supplies",
		Description: "Linens",
		Amount:      dec("89.99"),
		Date:        date(2026, 6, 5),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	report, err := f.svc.MonthlyReport(ctx, f.prop.ID, 2026, 6)
	if err != nil {
		t.Fatalf("monthly report: %v", err)
	}
	if !report.TotalIncome.Equal(dec("2050.75")) {
		t.Errorf("income = %s, want 2050.75", report.TotalIncome)
	}
	if !report.TotalExpenses.Equal(dec("329.99")) {
		t.Errorf("expenses = %s, want 329.99", report.TotalExpenses)
	}
	if !report.NetIncome.Equal(dec("1720.76")) {
		t.Errorf("net = %s, want 1720.76", report.NetIncome)
	}
	if report.NumPayouts != 2 {
		t.Errorf("payouts = %d, want 2", report.NumPayouts)
	}
	if !report.ExpensesByCategory["supplies"].Equal(dec("89.99")) {
		t.Errorf("supplies = %s", report.ExpensesByCategory["supplies"])
	}
}

func TestAnnualReportSumsMonths(t *testing.T) {
	f := newFinancialFixture(t)
	ctx := context.Background()

	for month := 1; month <= 3; month++ {
		if _, err := f.svc.AddManualPayout(ctx, PayoutInput{
			PropertyID: f.prop.ID,
			Amount:     dec("1000.00"),
			PayoutDate: date(2026, time.Month(month), 10),
		}); err != nil {
			t.Fatalf("add payout: %v", err)
		}
	}

	report, err := f.svc.AnnualReport(ctx, f.prop.ID, 2026)
	if err != nil {
		t.Fatalf("annual report: %v", err)
	}
	if len(report.Months) != 12 {
		t.Fatalf("months = %d, want 12", len(report.Months))
	}
	if !report.TotalIncome.Equal(dec("3000.00")) {
		t.Errorf("income = %s, want 3000.00", report.TotalIncome)
	}
	if !report.Months[0].TotalIncome.Equal(dec("1000.00")) {
		t.Errorf("january = %s", report.Months[0].TotalIncome)
	}
	if !report.Months[11].TotalIncome.Equal(decimal.Zero) {
		t.Errorf("december = %s, want 0", report.Months[11].TotalIncome)
	}
}

func TestAddExpenseRejectsUnknownCategory(t *testing.T) {
	f := newFinancialFixture(t)

	_, err := f.svc.AddExpense(context.Background(), ExpenseInput{
		PropertyID:  f.prop.ID,
		Category:    "entertainment",
		Description: "not deductible",
		Amount:      dec("50.00"),
		Date:        date(2026, 6, 1),
	})
	if err == nil {
		t.Fatal("expected category rejection")
	}
}

func TestScheduleESummary(t *testing.T) {
	f := newFinancialFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddManualPayout(ctx, PayoutInput{
		PropertyID: f.prop.ID,
		Amount:     dec("12000.00"),
		PayoutDate: date(2026, 8, 1),
	}); err != nil {
		t.Fatalf("add payout: %v", err)
	}
	if _, err := f.svc.AddExpense(ctx, ExpenseInput{
		PropertyID:  f.prop.ID,
		Category:    "utilities",
		Description: "Electric",
		Amount:      dec("1400.00"),
		Date:        date(2026, 3, 1),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	summary, err := f.svc.ScheduleESummary(ctx, f.prop.ID, 2026)
	if err != nil {
		t.Fatalf("schedule e: %v", err)
	}
	if !summary.GrossRentalIncome.Equal(dec("12000.00")) {
		t.Errorf("gross = %s", summary.GrossRentalIncome)
	}
	if !summary.ExpensesByCategory["utilities"].Equal(dec("1400.00")) {
		t.Errorf("utilities = %s", summary.ExpensesByCategory["utilities"])
	}
	// Every category is present even when empty.
	if _, ok := summary.ExpensesByCategory["repairs"]; !ok {
		t.Error("repairs category missing")
	}
	if !summary.NetRentalIncome.Equal(dec("10600.00")) {
		t.Errorf("net = %s", summary.NetRentalIncome)
	}
}

func TestExportExpensesCSV(t *testing.T) {
	f := newFinancialFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddExpense(ctx, ExpenseInput{
		PropertyID:  f.prop.ID,
		Category:    "repairs",
		Description: "Faucet",
		Amount:      dec("85.00"),
		Date:        date(2026, 6, 20),
		Vendor:      "Joe's Plumbing",
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	data, err := f.svc.ExportExpensesCSV(ctx, f.prop.ID, 2026)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header plus one row", len(lines))
	}
	if lines[0] != "Date,Category,Description,Vendor,Amount" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2026-06-20") || !strings.Contains(lines[1], "85.00") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportAnnualReportXLSX(t *testing.T) {
	f := newFinancialFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddManualPayout(ctx, PayoutInput{
		PropertyID: f.prop.ID,
		Amount:     dec("1000.00"),
		PayoutDate: date(2026, 6, 15),
	}); err != nil {
		t.Fatalf("add payout: %v", err)
	}

	data, err := f.svc.ExportAnnualReportXLSX(ctx, f.prop.ID, 2026)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("not a zip archive: % x", data[:4])
	}
}

func TestManualPayoutPublishesEvent(t *testing.T) {
	f := newFinancialFixture(t)

	if _, err := f.svc.AddManualPayout(context.Background(), PayoutInput{
		PropertyID: f.prop.ID,
		Amount:     dec("750.00"),
		PayoutDate: date(2026, 6, 15),
	}); err != nil {
		t.Fatalf("add payout: %v", err)
	}
	if got := f.rec.count(event.TypePayoutReceived); got != 1 {
		t.Fatalf("payout_received events = %d, want 1", got)
	}
}
