package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/service"
)

type PricingHandler struct {
	pricing *service.PricingService
}

func NewPricingHandler(pricing *service.PricingService) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// Recommendations prices ?start=YYYY-MM-DD&end=YYYY-MM-DD for a property.
// Without parameters it covers the next 30 days.
func (h *PricingHandler) Recommendations(c echo.Context) error {
	propertyID, err := uuidParam(c, "property_id")
	if err != nil {
		return err
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, 30)
	if raw := c.QueryParam("start"); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start")
		}
	}
	if raw := c.QueryParam("end"); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end")
		}
	}

	recs, err := h.pricing.GetRecommendations(c.Request().Context(), propertyID, start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

type ruleRequest struct {
	PropertyID string  `json:"property_id" validate:"required,uuid"`
	RuleType   string  `json:"rule_type" validate:"required,oneof=seasonal day_of_week lead_time event"`
	Name       string  `json:"name" validate:"required"`
	Multiplier float64 `json:"multiplier" validate:"required,gt=0"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	DaysOfWeek string  `json:"days_of_week"`
}

func (h *PricingHandler) CreateRule(c echo.Context) error {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := service.RuleInput{
		PropertyID: uuid.MustParse(req.PropertyID),
		RuleType:   model.PricingRuleType(req.RuleType),
		Name:       req.Name,
		Multiplier: req.Multiplier,
		DaysOfWeek: req.DaysOfWeek,
	}
	if req.StartDate != nil {
		d, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		in.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		in.EndDate = &d
	}

	rule, err := h.pricing.CreateRule(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rule)
}

type overrideRequest struct {
	PropertyID string  `json:"property_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required"`
	Price      float64 `json:"price" validate:"required,gt=0"`
	Reason     string  `json:"reason"`
}

func (h *PricingHandler) SetOverride(c echo.Context) error {
	var req overrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	o, err := h.pricing.SetOverride(c.Request().Context(), uuid.MustParse(req.PropertyID), date, req.Price, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, o)
}
