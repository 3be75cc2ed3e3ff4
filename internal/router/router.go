// Package router wires the dashboard API routes onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/proppilot/proppilot/internal/handler"
)

type Handlers struct {
	Booking    *handler.BookingHandler
	Operations *handler.OperationsHandler
	Message    *handler.MessageHandler
	Pricing    *handler.PricingHandler
	Financial  *handler.FinancialHandler
}

func Register(e *echo.Echo, h Handlers) {
	e.Use(middleware.Recover())
	e.Validator = handler.NewValidator()

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1")

	api.GET("/properties", h.Booking.ListProperties)
	api.GET("/bookings", h.Booking.ListBookings)
	api.GET("/bookings/:id", h.Booking.GetBooking)
	api.POST("/sync", h.Booking.TriggerSync)

	api.GET("/cleaning-tasks", h.Operations.ListCleaningTasks)
	api.POST("/cleaning-tasks/:id/complete", h.Operations.CompleteCleaningTask)
	api.GET("/maintenance-tasks", h.Operations.ListMaintenanceTasks)
	api.POST("/maintenance-tasks", h.Operations.CreateMaintenanceTask)
	api.POST("/maintenance-tasks/:id/complete", h.Operations.CompleteMaintenanceTask)
	api.GET("/inventory", h.Operations.ListInventory)
	api.GET("/inventory/alerts", h.Operations.InventoryAlerts)
	api.POST("/inventory", h.Operations.AddInventoryItem)
	api.PUT("/inventory/:id/quantity", h.Operations.UpdateInventoryQuantity)

	api.GET("/messages", h.Message.ListMessages)
	api.POST("/messages/:id/mark-copied", h.Message.MarkCopied)

	api.GET("/pricing/:property_id/recommendations", h.Pricing.Recommendations)
	api.POST("/pricing/rules", h.Pricing.CreateRule)
	api.POST("/pricing/overrides", h.Pricing.SetOverride)

	api.GET("/financial/:property_id/monthly", h.Financial.MonthlyReport)
	api.GET("/financial/:property_id/annual", h.Financial.AnnualReport)
	api.GET("/financial/:property_id/schedule-e", h.Financial.ScheduleESummary)
	api.GET("/financial/:property_id/export/expenses", h.Financial.ExportExpensesCSV)
	api.GET("/financial/:property_id/export/income", h.Financial.ExportIncomeCSV)
	api.GET("/financial/:property_id/export/annual-report", h.Financial.ExportAnnualReportXLSX)
	api.POST("/financial/expenses", h.Financial.AddExpense)
	api.POST("/financial/payouts", h.Financial.AddPayout)
}
