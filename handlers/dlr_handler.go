package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nusasms/nusasms-go/internal/service"
	"github.com/nusasms/nusasms-go/pkg/response"
)

// DLRHandler receives delivery-report webhooks from the provider.
type DLRHandler struct {
	service *service.SMSService
}

func NewDLRHandler(service *service.SMSService) *DLRHandler {
	return &DLRHandler{service: service}
}

// ReceiveDLR validates the inbound payload and resolves the matching
// outbound record. The response always carries the structural
// validation result: 200 for a valid payload, 400 with the per-field
// errors otherwise.
func (h *DLRHandler) ReceiveDLR(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return response.BadRequest(c, err)
	}

	validation, err := h.service.HandleDeliveryReport(c.Request().Context(), payload)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	status := http.StatusOK
	if !validation.Valid {
		status = http.StatusBadRequest
	}

	return c.JSON(status, validation)
}
