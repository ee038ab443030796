package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nusasms/nusasms-go/internal/domain"
	"github.com/nusasms/nusasms-go/pkg/gateway"
)

//
// Test fakes – only for this file.
//

type fakeGateway struct {
	sendResponse    string
	balanceResponse string
	hlrResponse     string
	otpResponse     string
	verifyResponse  string

	sendCalls    int
	balanceCalls int
	lastSend     gateway.SendRequest
}

func (g *fakeGateway) SendMessage(ctx context.Context, req gateway.SendRequest) string {
	g.sendCalls++
	g.lastSend = req
	return g.sendResponse
}

func (g *fakeGateway) CheckBalance(ctx context.Context) string {
	g.balanceCalls++
	return g.balanceResponse
}

func (g *fakeGateway) HLRLookup(ctx context.Context, req gateway.HLRRequest) string {
	return g.hlrResponse
}

func (g *fakeGateway) RequestOTP(ctx context.Context, req gateway.OTPRequest) string {
	return g.otpResponse
}

func (g *fakeGateway) VerifyOTP(ctx context.Context, req gateway.OTPVerifyRequest) string {
	return g.verifyResponse
}

type submissionCall struct {
	sender      string
	destination string
	segments    int
	providerID  string
}

type failureCall struct {
	destination string
	errorText   string
}

type deliveryCall struct {
	providerID string
	status     domain.MessageStatus
}

type fakeRepo struct {
	nextID        int64
	submissions   []submissionCall
	failures      []failureCall
	deliveryCalls []deliveryCall
	deliveryErr   error
}

func (r *fakeRepo) RecordSubmission(ctx context.Context, sender, destination, body string, segments int, providerID string) (*domain.OutboundMessage, error) {
	r.nextID++
	r.submissions = append(r.submissions, submissionCall{sender, destination, segments, providerID})
	return &domain.OutboundMessage{ID: r.nextID, Status: domain.StatusSubmitted}, nil
}

func (r *fakeRepo) RecordFailure(ctx context.Context, sender, destination, body string, segments int, errorText string) (*domain.OutboundMessage, error) {
	r.nextID++
	r.failures = append(r.failures, failureCall{destination, errorText})
	return &domain.OutboundMessage{ID: r.nextID, Status: domain.StatusFailed}, nil
}

func (r *fakeRepo) UpdateDeliveryStatus(ctx context.Context, providerID string, status domain.MessageStatus, deliveredAt time.Time) error {
	r.deliveryCalls = append(r.deliveryCalls, deliveryCall{providerID, status})
	return r.deliveryErr
}

func (r *fakeRepo) GetAll(ctx context.Context, status *domain.MessageStatus, page, pageSize int) ([]domain.OutboundMessage, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepo) GetStats(ctx context.Context) (int64, int64, int64, int64, error) {
	return 4, 2, 1, 3, nil
}

type fakeCache struct {
	submitted map[string]*domain.SubmittedMessageCache
	balance   string
}

func (c *fakeCache) CacheSubmittedMessage(ctx context.Context, providerID string, recordID int64, destination string, submittedAt time.Time) error {
	if c.submitted == nil {
		c.submitted = make(map[string]*domain.SubmittedMessageCache)
	}
	c.submitted[providerID] = &domain.SubmittedMessageCache{
		RecordID:    recordID,
		Destination: destination,
		SubmittedAt: submittedAt,
	}
	return nil
}

func (c *fakeCache) GetSubmittedMessage(ctx context.Context, providerID string) (*domain.SubmittedMessageCache, error) {
	return c.submitted[providerID], nil
}

func (c *fakeCache) CacheBalance(ctx context.Context, envelope string) error {
	c.balance = envelope
	return nil
}

func (c *fakeCache) GetCachedBalance(ctx context.Context) (string, error) {
	return c.balance, nil
}

func TestSend_SuccessRecordsSubmissionAndCaches(t *testing.T) {
	gw := &fakeGateway{sendResponse: `{"status":1,"msg_id":"123456","segment":1}`}
	repo := &fakeRepo{}
	cache := &fakeCache{}
	svc := NewSMSService(gw, repo, cache)

	envelope, err := svc.Send(context.Background(), "INFOSMS", []string{"081234567890"}, "hello", "")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if !envelope.Success() {
		t.Fatalf("expected success envelope, got %v", envelope)
	}

	if len(repo.submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(repo.submissions))
	}

	sub := repo.submissions[0]
	if sub.providerID != "123456" {
		t.Errorf("expected provider id 123456, got %q", sub.providerID)
	}
	if sub.destination != "6281234567890" {
		t.Errorf("expected normalized destination, got %q", sub.destination)
	}
	if sub.segments != 1 {
		t.Errorf("expected 1 segment, got %d", sub.segments)
	}

	if cache.submitted["123456"] == nil {
		t.Fatalf("expected submitted message to be cached")
	}
	if cache.submitted["123456"].RecordID != 1 {
		t.Errorf("expected cached record id 1, got %d", cache.submitted["123456"].RecordID)
	}
}

func TestSend_GatewayRejectionRecordsFailure(t *testing.T) {
	gw := &fakeGateway{sendResponse: `{"status":0,"error-text":"ERR007: msg contains non-GSM 7-bit characters","timestamp":"2026-01-01 00:00:00"}`}
	repo := &fakeRepo{}
	svc := NewSMSService(gw, repo, nil)

	envelope, err := svc.Send(context.Background(), "INFOSMS", []string{"081234567890"}, "msg", "")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if envelope.Success() {
		t.Fatalf("expected failure envelope")
	}

	if len(repo.failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", len(repo.failures))
	}
	if repo.failures[0].errorText != "ERR007: msg contains non-GSM 7-bit characters" {
		t.Errorf("unexpected recorded error text %q", repo.failures[0].errorText)
	}
}

func TestBalance_UsesCacheOnSecondCall(t *testing.T) {
	gw := &fakeGateway{balanceResponse: `{"status":1,"balance":1500,"expired":"2026-12-31"}`}
	cache := &fakeCache{}
	svc := NewSMSService(gw, &fakeRepo{}, cache)
	ctx := context.Background()

	first, err := svc.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if first["balance"] != float64(1500) {
		t.Fatalf("expected balance 1500, got %v", first["balance"])
	}

	second, err := svc.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if second["balance"] != float64(1500) {
		t.Fatalf("expected cached balance 1500, got %v", second["balance"])
	}

	if gw.balanceCalls != 1 {
		t.Fatalf("expected a single gateway call, got %d", gw.balanceCalls)
	}
}

func TestBalance_FailureEnvelopeIsNotCached(t *testing.T) {
	gw := &fakeGateway{balanceResponse: `{"status":0,"error-text":"ERR100: account suspended","timestamp":"2026-01-01 00:00:00"}`}
	cache := &fakeCache{}
	svc := NewSMSService(gw, &fakeRepo{}, cache)

	envelope, err := svc.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if envelope.Success() {
		t.Fatalf("expected failure envelope")
	}
	if cache.balance != "" {
		t.Fatalf("expected failure envelope not to be cached")
	}
}

func TestHandleDeliveryReport_Delivered(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewSMSService(&fakeGateway{}, repo, nil)

	validation, err := svc.HandleDeliveryReport(context.Background(), map[string]any{
		"msg_id": "123456",
		"to":     "6281234567890",
		"status": float64(1),
	})
	if err != nil {
		t.Fatalf("HandleDeliveryReport returned error: %v", err)
	}

	if !validation.Valid {
		t.Fatalf("expected valid payload, errors: %v", validation.Errors)
	}

	if len(repo.deliveryCalls) != 1 {
		t.Fatalf("expected 1 delivery update, got %d", len(repo.deliveryCalls))
	}
	if repo.deliveryCalls[0].providerID != "123456" {
		t.Errorf("expected provider id 123456, got %q", repo.deliveryCalls[0].providerID)
	}
	if repo.deliveryCalls[0].status != domain.StatusDelivered {
		t.Errorf("expected delivered status, got %q", repo.deliveryCalls[0].status)
	}
}

func TestHandleDeliveryReport_NonOneStatusIsUndelivered(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewSMSService(&fakeGateway{}, repo, nil)

	_, err := svc.HandleDeliveryReport(context.Background(), map[string]any{
		"msg_id": "9",
		"to":     "6281234567890",
		"status": "2",
	})
	if err != nil {
		t.Fatalf("HandleDeliveryReport returned error: %v", err)
	}

	if repo.deliveryCalls[0].status != domain.StatusUndelivered {
		t.Errorf("expected undelivered status, got %q", repo.deliveryCalls[0].status)
	}
}

func TestHandleDeliveryReport_InvalidPayloadSkipsUpdate(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewSMSService(&fakeGateway{}, repo, nil)

	validation, err := svc.HandleDeliveryReport(context.Background(), map[string]any{"msg_id": ""})
	if err != nil {
		t.Fatalf("HandleDeliveryReport returned error: %v", err)
	}

	if validation.Valid {
		t.Fatalf("expected invalid payload")
	}
	if len(validation.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %v", validation.Errors)
	}
	if len(repo.deliveryCalls) != 0 {
		t.Fatalf("expected no delivery update for invalid payload")
	}
}

func TestHandleDeliveryReport_UnknownProviderIDIsNotAnError(t *testing.T) {
	repo := &fakeRepo{deliveryErr: fmt.Errorf("no message found with provider id 404")}
	svc := NewSMSService(&fakeGateway{}, repo, nil)

	validation, err := svc.HandleDeliveryReport(context.Background(), map[string]any{
		"msg_id": "404",
		"to":     "6281234567890",
		"status": float64(1),
	})
	if err != nil {
		t.Fatalf("expected unknown provider id to be swallowed, got %v", err)
	}
	if !validation.Valid {
		t.Fatalf("expected valid payload")
	}
}

func TestStats(t *testing.T) {
	svc := NewSMSService(&fakeGateway{}, &fakeRepo{}, nil)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}

	if stats["submitted"] != 4 || stats["delivered"] != 2 || stats["undelivered"] != 1 || stats["failed"] != 3 {
		t.Fatalf("unexpected stats %v", stats)
	}
	if stats["total"] != 10 {
		t.Fatalf("expected total 10, got %d", stats["total"])
	}
}
