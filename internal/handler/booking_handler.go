package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/proppilot/proppilot/internal/repository"
	"github.com/proppilot/proppilot/internal/service"
)

type BookingHandler struct {
	properties repository.PropertyRepository
	bookings   repository.BookingRepository
	sync       *service.SyncService
}

func NewBookingHandler(
	properties repository.PropertyRepository,
	bookings repository.BookingRepository,
	sync *service.SyncService,
) *BookingHandler {
	return &BookingHandler{properties: properties, bookings: bookings, sync: sync}
}

func (h *BookingHandler) ListProperties(c echo.Context) error {
	props, err := h.properties.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, props)
}

// ListBookings returns bookings, optionally filtered by ?property_id=.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	var propertyID *uuid.UUID
	if raw := c.QueryParam("property_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid property_id")
		}
		propertyID = &id
	}
	bookings, err := h.bookings.List(c.Request().Context(), propertyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	booking, err := h.bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, booking)
}

// TriggerSync runs a full reconciliation pass immediately instead of waiting
// for the next scheduled cycle.
func (h *BookingHandler) TriggerSync(c echo.Context) error {
	results := h.sync.SyncAll(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
