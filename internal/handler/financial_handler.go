package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/proppilot/proppilot/internal/service"
)

type FinancialHandler struct {
	financial *service.FinancialService
}

func NewFinancialHandler(financial *service.FinancialService) *FinancialHandler {
	return &FinancialHandler{financial: financial}
}

func yearParam(c echo.Context) (int, error) {
	year, err := strconv.Atoi(c.QueryParam("year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
	}
	return year, nil
}

func (h *FinancialHandler) MonthlyReport(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	month, err := strconv.Atoi(c.QueryParam("month"))
	if err != nil || month < 1 || month > 12 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid month")
	}
	report, err := h.financial.MonthlyReport(c.Request().Context(), propertyID, year, month)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *FinancialHandler) AnnualReport(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	report, err := h.financial.AnnualReport(c.Request().Context(), propertyID, year)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *FinancialHandler) ScheduleESummary(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	summary, err := h.financial.ScheduleESummary(c.Request().Context(), propertyID, year)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

type expenseRequest struct {
	PropertyID       string `json:"property_id" validate:"required,uuid"`
	Category         string `json:"category" validate:"required"`
	Description      string `json:"description" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	Date             string `json:"date" validate:"required"`
	Vendor           string `json:"vendor"`
	IsRecurring      bool   `json:"is_recurring"`
	RecurrenceMonths *int   `json:"recurrence_months" validate:"omitempty,gt=0"`
	Notes            string `json:"notes"`
}

func (h *FinancialHandler) AddExpense(c echo.Context) error {
	var req expenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}

	expense, err := h.financial.AddExpense(c.Request().Context(), service.ExpenseInput{
		PropertyID:       uuid.MustParse(req.PropertyID),
		Category:         req.Category,
		Description:      req.Description,
		Amount:           amount,
		Date:             date,
		Vendor:           req.Vendor,
		IsRecurring:      req.IsRecurring,
		RecurrenceMonths: req.RecurrenceMonths,
		Notes:            req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, expense)
}

type payoutRequest struct {
	PropertyID string  `json:"property_id" validate:"required,uuid"`
	BookingID  *string `json:"booking_id" validate:"omitempty,uuid"`
	Amount     string  `json:"amount" validate:"required"`
	PayoutDate string  `json:"payout_date" validate:"required"`
	Notes      string  `json:"notes"`
}

func (h *FinancialHandler) AddPayout(c echo.Context) error {
	var req payoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}
	date, err := time.Parse("2006-01-02", req.PayoutDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payout_date")
	}

	in := service.PayoutInput{
		PropertyID: uuid.MustParse(req.PropertyID),
		Amount:     amount,
		PayoutDate: date,
		Notes:      req.Notes,
	}
	if req.BookingID != nil {
		id := uuid.MustParse(*req.BookingID)
		in.BookingID = &id
	}

	payout, err := h.financial.AddManualPayout(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, payout)
}

func (h *FinancialHandler) ExportExpensesCSV(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	data, err := h.financial.ExportExpensesCSV(c.Request().Context(), propertyID, year)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="expenses_%d.csv"`, year))
	return c.Blob(http.StatusOK, "text/csv", data)
}

func (h *FinancialHandler) ExportIncomeCSV(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	data, err := h.financial.ExportIncomeCSV(c.Request().Context(), propertyID, year)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="income_%d.csv"`, year))
	return c.Blob(http.StatusOK, "text/csv", data)
}

func (h *FinancialHandler) ExportAnnualReportXLSX(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	data, err := h.financial.ExportAnnualReportXLSX(c.Request().Context(), propertyID, year)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="annual_report_%d.xlsx"`, year))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
