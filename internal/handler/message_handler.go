package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/proppilot/proppilot/internal/repository"
	"github.com/proppilot/proppilot/internal/service"
)

type MessageHandler struct {
	comms    *service.CommsService
	messages repository.MessageRepository
}

func NewMessageHandler(comms *service.CommsService, messages repository.MessageRepository) *MessageHandler {
	return &MessageHandler{comms: comms, messages: messages}
}

// ListMessages returns recent message log rows, newest first. ?limit= caps
// the count, default 50.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	msgs, err := h.messages.List(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// MarkCopied records that the operator pasted the message into the platform
// thread by hand.
func (h *MessageHandler) MarkCopied(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.comms.MarkCopied(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "copied"})
}
