package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nusasms/nusasms-go/internal/domain"
	"github.com/nusasms/nusasms-go/internal/service"
	"github.com/nusasms/nusasms-go/pkg/response"
	"github.com/nusasms/nusasms-go/pkg/validator"
)

// SMSHandler exposes the gateway operations over the REST API. The
// gateway envelope is returned verbatim as the response body; clients
// branch on its "status" field exactly as they would against the
// provider directly.
type SMSHandler struct {
	service *service.SMSService
}

func NewSMSHandler(service *service.SMSService) *SMSHandler {
	return &SMSHandler{service: service}
}

type SendSMSRequest struct {
	From         string   `json:"from" validate:"required,max=11"`
	To           []string `json:"to" validate:"required,min=1,dive,required"`
	Message      string   `json:"message" validate:"required,max=400"`
	DeliveryTime string   `json:"deliveryTime,omitempty"`
}

type HLRLookupRequest struct {
	To           []string `json:"to" validate:"required,min=1,dive,required"`
	DeliveryTime string   `json:"deliveryTime,omitempty"`
}

type OTPSendRequest struct {
	From   string `json:"from" validate:"required,max=11"`
	To     string `json:"to" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

type OTPVerifyRequest struct {
	From   string `json:"from" validate:"required,max=11"`
	Secret string `json:"secret" validate:"required"`
	PIN    string `json:"pin" validate:"required"`
}

// SendSMS submits a message and records the attempt.
func (h *SMSHandler) SendSMS(c echo.Context) error {
	var req SendSMSRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	envelope, err := h.service.Send(c.Request().Context(), req.From, req.To, req.Message, req.DeliveryTime)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// GetBalance returns the account balance envelope.
func (h *SMSHandler) GetBalance(c echo.Context) error {
	envelope, err := h.service.Balance(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// HLRLookup proxies a reachability lookup.
func (h *SMSHandler) HLRLookup(c echo.Context) error {
	var req HLRLookupRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	envelope, err := h.service.HLRLookup(c.Request().Context(), req.To, req.DeliveryTime)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// RequestOTP asks the gateway to deliver a one-time PIN.
func (h *SMSHandler) RequestOTP(c echo.Context) error {
	var req OTPSendRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	envelope, err := h.service.RequestOTP(c.Request().Context(), req.From, req.To, req.Secret)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// VerifyOTP checks a user-supplied PIN.
func (h *SMSHandler) VerifyOTP(c echo.Context) error {
	var req OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	envelope, err := h.service.VerifyOTP(c.Request().Context(), req.From, req.Secret, req.PIN)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// GetMessages lists recorded send attempts with an optional status
// filter.
func (h *SMSHandler) GetMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	var status *domain.MessageStatus
	if statusStr != "" {
		parsedStatus := domain.MessageStatus(statusStr)
		status = &parsedStatus
	}

	messages, totalCount, err := h.service.Messages(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetStats returns per-status counts of recorded attempts.
func (h *SMSHandler) GetStats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, stats)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
