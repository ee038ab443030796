package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nusasms/nusasms-go/internal/domain"
	"github.com/nusasms/nusasms-go/pkg/gateway"
	"github.com/nusasms/nusasms-go/pkg/logger"
)

// Small internal interfaces so we can test without a real gateway,
// DB or Redis.
type smsGateway interface {
	SendMessage(ctx context.Context, req gateway.SendRequest) string
	CheckBalance(ctx context.Context) string
	HLRLookup(ctx context.Context, req gateway.HLRRequest) string
	RequestOTP(ctx context.Context, req gateway.OTPRequest) string
	VerifyOTP(ctx context.Context, req gateway.OTPVerifyRequest) string
}

type messageRepository interface {
	RecordSubmission(ctx context.Context, sender, destination, body string, segments int, providerID string) (*domain.OutboundMessage, error)
	RecordFailure(ctx context.Context, sender, destination, body string, segments int, errorText string) (*domain.OutboundMessage, error)
	UpdateDeliveryStatus(ctx context.Context, providerID string, status domain.MessageStatus, deliveredAt time.Time) error
	GetAll(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.OutboundMessage, int64, error)
	GetStats(ctx context.Context) (submitted, delivered, undelivered, failed int64, err error)
}

type cacheClient interface {
	CacheSubmittedMessage(ctx context.Context, providerID string, recordID int64, destination string, submittedAt time.Time) error
	GetSubmittedMessage(ctx context.Context, providerID string) (*domain.SubmittedMessageCache, error)
	CacheBalance(ctx context.Context, envelope string) error
	GetCachedBalance(ctx context.Context) (string, error)
}

// SMSService ties the gateway client to persistence and caching: it
// returns the gateway envelope to the caller unchanged while recording
// every send attempt and resolving delivery reports.
type SMSService struct {
	gateway smsGateway
	repo    messageRepository
	cache   cacheClient // may be nil, caching is best effort
}

func NewSMSService(gw smsGateway, repo messageRepository, cache cacheClient) *SMSService {
	return &SMSService{
		gateway: gw,
		repo:    repo,
		cache:   cache,
	}
}

// Envelope is a decoded gateway response body.
type Envelope map[string]any

// Success reports whether the envelope carries the gateway success
// status.
func (e Envelope) Success() bool {
	switch status := e["status"].(type) {
	case float64:
		return status != 0
	case string:
		return status != "0"
	default:
		return false
	}
}

func decodeEnvelope(raw string) (Envelope, error) {
	var body Envelope
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway envelope: %w", err)
	}
	return body, nil
}

// Send submits a message through the gateway and records the attempt.
// The returned envelope is what the gateway produced, success or not.
func (s *SMSService) Send(ctx context.Context, sender string, to []string, body, deliveryTime string) (Envelope, error) {
	raw := s.gateway.SendMessage(ctx, gateway.SendRequest{
		From:         sender,
		To:           to,
		Message:      body,
		DeliveryTime: deliveryTime,
	})

	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	destination, normErr := gateway.NormalizeDestinations(to)
	if normErr != nil {
		// The gateway already rejected the batch; keep the raw input
		// so the failed attempt is still traceable.
		destination = joinRaw(to)
	}

	segments := gateway.SegmentCount(body)

	if envelope.Success() {
		providerID := stringField(envelope, "msg_id")

		record, repoErr := s.repo.RecordSubmission(ctx, sender, destination, body, segments, providerID)
		if repoErr != nil {
			return nil, repoErr
		}

		if s.cache != nil && providerID != "" {
			if cacheErr := s.cache.CacheSubmittedMessage(ctx, providerID, record.ID, destination, time.Now()); cacheErr != nil {
				logger.Warnf("Failed to cache submitted message %s: %v", providerID, cacheErr)
			}
		}

		logger.Infof("Message %s submitted to %s (%d segments)", providerID, destination, segments)
		return envelope, nil
	}

	errorText := stringField(envelope, "error-text")
	if _, repoErr := s.repo.RecordFailure(ctx, sender, destination, body, segments, errorText); repoErr != nil {
		return nil, repoErr
	}

	logger.Warnf("Message to %s rejected: %s", destination, errorText)
	return envelope, nil
}

// Balance returns the account balance envelope, served from cache when
// a recent value exists.
func (s *SMSService) Balance(ctx context.Context) (Envelope, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedBalance(ctx)
		if err != nil {
			logger.Warnf("Failed to read cached balance: %v", err)
		} else if cached != "" {
			return decodeEnvelope(cached)
		}
	}

	raw := s.gateway.CheckBalance(ctx)

	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && envelope.Success() {
		if cacheErr := s.cache.CacheBalance(ctx, raw); cacheErr != nil {
			logger.Warnf("Failed to cache balance: %v", cacheErr)
		}
	}

	return envelope, nil
}

// HLRLookup proxies a reachability lookup.
func (s *SMSService) HLRLookup(ctx context.Context, to []string, deliveryTime string) (Envelope, error) {
	raw := s.gateway.HLRLookup(ctx, gateway.HLRRequest{To: to, DeliveryTime: deliveryTime})
	return decodeEnvelope(raw)
}

// RequestOTP proxies a one-time PIN request.
func (s *SMSService) RequestOTP(ctx context.Context, from, to, secret string) (Envelope, error) {
	raw := s.gateway.RequestOTP(ctx, gateway.OTPRequest{From: from, To: to, Secret: secret})
	return decodeEnvelope(raw)
}

// VerifyOTP proxies a one-time PIN check.
func (s *SMSService) VerifyOTP(ctx context.Context, from, secret, pin string) (Envelope, error) {
	raw := s.gateway.VerifyOTP(ctx, gateway.OTPVerifyRequest{From: from, Secret: secret, PIN: pin})
	return decodeEnvelope(raw)
}

// HandleDeliveryReport validates an inbound DLR payload and, when it
// is structurally valid, resolves the matching outbound record. An
// unknown provider id is logged but not treated as an error; the
// provider may report on messages submitted outside this service.
func (s *SMSService) HandleDeliveryReport(ctx context.Context, payload map[string]any) (gateway.DLRValidation, error) {
	validation := gateway.ValidateDLR(payload)
	if !validation.Valid {
		return validation, nil
	}

	providerID := stringField(payload, "msg_id")
	status := domain.StatusUndelivered
	if delivered(payload["status"]) {
		status = domain.StatusDelivered
	}

	if s.cache != nil {
		if cached, err := s.cache.GetSubmittedMessage(ctx, providerID); err != nil {
			logger.Warnf("Failed to read submitted-message cache for %s: %v", providerID, err)
		} else if cached != nil {
			logger.Debugf("DLR for %s correlates to record %d", providerID, cached.RecordID)
		}
	}

	if err := s.repo.UpdateDeliveryStatus(ctx, providerID, status, time.Now()); err != nil {
		logger.Warnf("DLR for unknown message %s: %v", providerID, err)
		return validation, nil
	}

	logger.Infof("Message %s resolved as %s", providerID, status)
	return validation, nil
}

// Messages lists recorded send attempts.
func (s *SMSService) Messages(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.OutboundMessage, int64, error) {
	return s.repo.GetAll(ctx, status, page, pageSize)
}

// Stats returns per-status counts of recorded attempts.
func (s *SMSService) Stats(ctx context.Context) (map[string]int64, error) {
	submitted, deliveredCount, undelivered, failed, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]int64{
		"submitted":   submitted,
		"delivered":   deliveredCount,
		"undelivered": undelivered,
		"failed":      failed,
		"total":       submitted + deliveredCount + undelivered + failed,
	}, nil
}

// stringField reads a field that providers variously encode as a
// string or a number.
func stringField(body map[string]any, key string) string {
	switch value := body[key].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}

// delivered interprets the DLR status field: 1 means delivered.
func delivered(v any) bool {
	switch status := v.(type) {
	case float64:
		return status == 1
	case string:
		return status == "1"
	default:
		return false
	}
}

func joinRaw(values []string) string {
	return strings.Join(values, ",")
}
