package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/proppilot/proppilot/internal/repository"
	"github.com/proppilot/proppilot/internal/service"
)

type OperationsHandler struct {
	ops   *service.OperationsService
	tasks repository.CleaningTaskRepository
}

func NewOperationsHandler(ops *service.OperationsService, tasks repository.CleaningTaskRepository) *OperationsHandler {
	return &OperationsHandler{ops: ops, tasks: tasks}
}

func (h *OperationsHandler) ListCleaningTasks(c echo.Context) error {
	tasks, err := h.tasks.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *OperationsHandler) CompleteCleaningTask(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.ops.CompleteCleaningTask(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "completed"})
}

type maintenanceRequest struct {
	PropertyID  string  `json:"property_id" validate:"required,uuid"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=normal high"`
	DueDate     *string `json:"due_date"`
}

func (h *OperationsHandler) CreateMaintenanceTask(c echo.Context) error {
	var req maintenanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := service.MaintenanceInput{
		PropertyID:  uuid.MustParse(req.PropertyID),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid due_date")
		}
		in.DueDate = &due
	}

	task, err := h.ops.CreateMaintenanceTask(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *OperationsHandler) ListMaintenanceTasks(c echo.Context) error {
	tasks, err := h.ops.ListMaintenanceTasks(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

type completeMaintenanceRequest struct {
	Cost *float64 `json:"cost" validate:"omitempty,gte=0"`
}

func (h *OperationsHandler) CompleteMaintenanceTask(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req completeMaintenanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.ops.CompleteMaintenanceTask(c.Request().Context(), id, req.Cost); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "completed"})
}

type inventoryRequest struct {
	PropertyID       string   `json:"property_id" validate:"required,uuid"`
	Name             string   `json:"name" validate:"required"`
	Quantity         int      `json:"quantity" validate:"gte=0"`
	ReorderThreshold int      `json:"reorder_threshold" validate:"gte=0"`
	UnitCost         *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	Notes            string   `json:"notes"`
}

func (h *OperationsHandler) AddInventoryItem(c echo.Context) error {
	var req inventoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.ops.AddInventoryItem(c.Request().Context(), service.InventoryInput{
		PropertyID:       uuid.MustParse(req.PropertyID),
		Name:             req.Name,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		UnitCost:         req.UnitCost,
		Notes:            req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (h *OperationsHandler) UpdateInventoryQuantity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.ops.UpdateInventoryQuantity(c.Request().Context(), id, req.Quantity); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (h *OperationsHandler) ListInventory(c echo.Context) error {
	items, err := h.ops.ListInventory(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *OperationsHandler) InventoryAlerts(c echo.Context) error {
	items, err := h.ops.InventoryAlerts(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}
