package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/proppilot/proppilot/internal/event"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
)

// MonthlyReport summarizes one property-month.
type MonthlyReport struct {
	PropertyID         uuid.UUID                  `json:"property_id"`
	PropertyName       string                     `json:"property_name"`
	Year               int                        `json:"year"`
	Month              int                        `json:"month"`
	TotalIncome        decimal.Decimal            `json:"total_income"`
	TotalExpenses      decimal.Decimal            `json:"total_expenses"`
	NetIncome          decimal.Decimal            `json:"net_income"`
	NumPayouts         int                        `json:"num_payouts"`
	NightsBooked       int                        `json:"nights_booked"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
}

// AnnualReport summarizes one property-year with a per-month breakdown.
type AnnualReport struct {
	PropertyID    uuid.UUID       `json:"property_id"`
	PropertyName  string          `json:"property_name"`
	Year          int             `json:"year"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
	Months        []MonthlyReport `json:"months"`
}

// ScheduleESummary maps a property-year onto the IRS Schedule E lines.
type ScheduleESummary struct {
	PropertyID         uuid.UUID                  `json:"property_id"`
	PropertyName       string                     `json:"property_name"`
	Year               int                        `json:"year"`
	GrossRentalIncome  decimal.Decimal            `json:"gross_rental_income"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	TotalExpenses      decimal.Decimal            `json:"total_expenses"`
	NetRentalIncome    decimal.Decimal            `json:"net_rental_income"`
}

// FinancialService records income and expenses and produces the reports and
// exports. All money math is decimal; aggregation happens in Go so the
// queries stay portable across database drivers.
type FinancialService struct {
	log        *logrus.Logger
	bus        *event.Bus
	properties repository.PropertyRepository
	bookings   repository.BookingRepository
	payouts    repository.PayoutRepository
	expenses   repository.ExpenseRepository

	nowFunc func() time.Time
}

func NewFinancialService(
	log *logrus.Logger,
	bus *event.Bus,
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
	payouts repository.PayoutRepository,
	expenses repository.ExpenseRepository,
) *FinancialService {
	return &FinancialService{
		log:        log,
		bus:        bus,
		properties: properties,
		bookings:   bookings,
		payouts:    payouts,
		expenses:   expenses,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// ExpenseInput describes a new expense.
type ExpenseInput struct {
	PropertyID       uuid.UUID
	Category         string
	Description      string
	Amount           decimal.Decimal
	Date             time.Time
	Vendor           string
	IsRecurring      bool
	RecurrenceMonths *int
	Notes            string
}

func (s *FinancialService) AddExpense(ctx context.Context, in ExpenseInput) (*model.Expense, error) {
	if !model.ValidExpenseCategory(in.Category) {
		return nil, fmt.Errorf("unknown expense category %q", in.Category)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("expense amount must be positive, got %s", in.Amount)
	}
	if _, err := s.properties.GetByID(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", in.PropertyID, err)
	}
	expense := &model.Expense{
		PropertyID:       in.PropertyID,
		Category:         in.Category,
		Description:      in.Description,
		Amount:           in.Amount,
		Date:             model.DateOnly(in.Date),
		Vendor:           in.Vendor,
		IsRecurring:      in.IsRecurring,
		RecurrenceMonths: in.RecurrenceMonths,
		Notes:            in.Notes,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("add expense: %w", err)
	}
	return expense, nil
}

// PayoutInput describes a manually recorded payout.
type PayoutInput struct {
	PropertyID uuid.UUID
	BookingID  *uuid.UUID
	Amount     decimal.Decimal
	PayoutDate time.Time
	Notes      string
}

func (s *FinancialService) AddManualPayout(ctx context.Context, in PayoutInput) (*model.Payout, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("payout amount must be positive, got %s", in.Amount)
	}
	if _, err := s.properties.GetByID(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("load property %s: %w", in.PropertyID, err)
	}
	pid := in.PropertyID
	payout := &model.Payout{
		PropertyID: &pid,
		BookingID:  in.BookingID,
		Amount:     in.Amount,
		PayoutDate: model.DateOnly(in.PayoutDate),
		Source:     model.PayoutSourceManual,
		Notes:      in.Notes,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("add payout: %w", err)
	}
	s.bus.Publish(event.New(event.TypePayoutReceived, event.PayoutReceived{
		PayoutID:  payout.ID,
		BookingID: payout.BookingID,
		Amount:    payout.Amount,
	}))
	return payout, nil
}

func monthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func yearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func (s *FinancialService) MonthlyReport(ctx context.Context, propertyID uuid.UUID, year, month int) (*MonthlyReport, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	from, to := monthRange(year, month)
	return s.buildMonthly(ctx, prop, year, month, from, to)
}

func (s *FinancialService) buildMonthly(ctx context.Context, prop *model.Property, year, month int, from, to time.Time) (*MonthlyReport, error) {
	payouts, err := s.payouts.ListForRange(ctx, prop.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load payouts: %w", err)
	}
	expenses, err := s.expenses.ListForRange(ctx, prop.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	report := &MonthlyReport{
		PropertyID:         prop.ID,
		PropertyName:       prop.Name,
		Year:               year,
		Month:              month,
		ExpensesByCategory: make(map[string]decimal.Decimal),
		NumPayouts:         len(payouts),
	}
	for i := range payouts {
		report.TotalIncome = report.TotalIncome.Add(payouts[i].Amount)
	}
	for i := range expenses {
		e := &expenses[i]
		report.TotalExpenses = report.TotalExpenses.Add(e.Amount)
		report.ExpensesByCategory[e.Category] = report.ExpensesByCategory[e.Category].Add(e.Amount)
	}
	report.NetIncome = report.TotalIncome.Sub(report.TotalExpenses)

	bookings, err := s.bookings.ListConfirmedOverlapping(ctx, prop.ID, from, to.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	report.NightsBooked = nightsWithin(bookings, from, to)
	return report, nil
}

// nightsWithin counts booked nights clipped to [from, to).
func nightsWithin(bookings []model.Booking, from, to time.Time) int {
	nights := 0
	for i := range bookings {
		b := &bookings[i]
		start := b.CheckinDate
		if start.Before(from) {
			start = from
		}
		end := b.CheckoutDate
		if end.After(to) {
			end = to
		}
		if n := int(end.Sub(start).Hours() / 24); n > 0 {
			nights += n
		}
	}
	return nights
}

func (s *FinancialService) AnnualReport(ctx context.Context, propertyID uuid.UUID, year int) (*AnnualReport, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}

	annual := &AnnualReport{
		PropertyID:   prop.ID,
		PropertyName: prop.Name,
		Year:         year,
	}
	for month := 1; month <= 12; month++ {
		from, to := monthRange(year, month)
		m, err := s.buildMonthly(ctx, prop, year, month, from, to)
		if err != nil {
			return nil, err
		}
		annual.Months = append(annual.Months, *m)
		annual.TotalIncome = annual.TotalIncome.Add(m.TotalIncome)
		annual.TotalExpenses = annual.TotalExpenses.Add(m.TotalExpenses)
	}
	annual.NetIncome = annual.TotalIncome.Sub(annual.TotalExpenses)
	return annual, nil
}

func (s *FinancialService) ScheduleESummary(ctx context.Context, propertyID uuid.UUID, year int) (*ScheduleESummary, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	from, to := yearRange(year)

	payouts, err := s.payouts.ListForRange(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load payouts: %w", err)
	}
	expenses, err := s.expenses.ListForRange(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	summary := &ScheduleESummary{
		PropertyID:         propertyID,
		PropertyName:       prop.Name,
		Year:               year,
		ExpensesByCategory: make(map[string]decimal.Decimal),
	}
	for _, c := range model.ScheduleECategories {
		summary.ExpensesByCategory[c] = decimal.Zero
	}
	for i := range payouts {
		summary.GrossRentalIncome = summary.GrossRentalIncome.Add(payouts[i].Amount)
	}
	for i := range expenses {
		e := &expenses[i]
		summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
		summary.ExpensesByCategory[e.Category] = summary.ExpensesByCategory[e.Category].Add(e.Amount)
	}
	summary.NetRentalIncome = summary.GrossRentalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}

// ExportExpensesCSV renders the year's expenses for the property as CSV.
func (s *FinancialService) ExportExpensesCSV(ctx context.Context, propertyID uuid.UUID, year int) ([]byte, error) {
	from, to := yearRange(year)
	expenses, err := s.expenses.ListForRange(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Category", "Description", "Vendor", "Amount"}); err != nil {
		return nil, err
	}
	for i := range expenses {
		e := &expenses[i]
		if err := w.Write([]string{
			e.Date.Format("2006-01-02"),
			e.Category,
			e.Description,
			e.Vendor,
			e.Amount.StringFixed(2),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportIncomeCSV renders the year's payouts for the property as CSV.
func (s *FinancialService) ExportIncomeCSV(ctx context.Context, propertyID uuid.UUID, year int) ([]byte, error) {
	from, to := yearRange(year)
	payouts, err := s.payouts.ListForRange(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load payouts: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Amount", "Source", "Confirmation Code", "Notes"}); err != nil {
		return nil, err
	}
	for i := range payouts {
		p := &payouts[i]
		if err := w.Write([]string{
			p.PayoutDate.Format("2006-01-02"),
			p.Amount.StringFixed(2),
			string(p.Source),
			p.ConfirmationCode,
			p.Notes,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportAnnualReportXLSX renders the annual report as a two-sheet workbook:
// a month-by-month summary and the Schedule E category breakdown.
func (s *FinancialService) ExportAnnualReportXLSX(ctx context.Context, propertyID uuid.UUID, year int) ([]byte, error) {
	annual, err := s.AnnualReport(ctx, propertyID, year)
	if err != nil {
		return nil, err
	}
	schedule, err := s.ScheduleESummary(ctx, propertyID, year)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	rows := [][]any{
		{fmt.Sprintf("%s - %d", annual.PropertyName, annual.Year)},
		{},
		{"Month", "Income", "Expenses", "Net"},
	}
	for _, m := range annual.Months {
		rows = append(rows, []any{
			time.Month(m.Month).String(),
			m.TotalIncome.InexactFloat64(),
			m.TotalExpenses.InexactFloat64(),
			m.NetIncome.InexactFloat64(),
		})
	}
	rows = append(rows, []any{
		"Total",
		annual.TotalIncome.InexactFloat64(),
		annual.TotalExpenses.InexactFloat64(),
		annual.NetIncome.InexactFloat64(),
	})
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}

	const scheduleSheet = "Schedule E"
	if _, err := f.NewSheet(scheduleSheet); err != nil {
		return nil, err
	}
	scheduleRows := [][]any{
		{"Gross rental income", schedule.GrossRentalIncome.InexactFloat64()},
		{},
		{"Category", "Amount"},
	}
	for _, c := range model.ScheduleECategories {
		scheduleRows = append(scheduleRows, []any{c, schedule.ExpensesByCategory[c].InexactFloat64()})
	}
	scheduleRows = append(scheduleRows,
		[]any{"Total expenses", schedule.TotalExpenses.InexactFloat64()},
		[]any{"Net rental income", schedule.NetRentalIncome.InexactFloat64()},
	)
	for i, row := range scheduleRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(scheduleSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
