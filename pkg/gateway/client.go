// Package gateway is a client for the NusaSMS HTTP API: sending SMS,
// balance checks, HLR lookups and OTP request/verify flows, plus
// validation of inbound delivery-report payloads.
//
// Every operation returns serialized JSON text and never an error:
// any failure (validation, connectivity, decoding, provider-reported
// or unexpected) is converted into the uniform failure envelope
// {"status":0,"error-text":"<CODE>: <message>","timestamp":"..."}.
// Callers branch on the decoded "status" field.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.nusasms.com/api/v3"

// DefaultTimeout bounds a single outbound call. The client never
// retries.
const DefaultTimeout = 10 * time.Second

const (
	maxSenderIDLength = 11
	maxMessageLength  = 400
)

// Config carries the construction-time options of a Client. APIKey is
// the only required field; operations on a key-less client fail
// validation before any network call.
type Config struct {
	APIKey  string
	BaseURL string        // optional, defaults to DefaultBaseURL
	Timeout time.Duration // optional, defaults to DefaultTimeout
}

// endpoints is the fixed per-operation URL table, resolved once at
// construction and immutable afterwards.
type endpoints struct {
	send       string
	balance    string
	hlr        string
	otpRequest string
	otpVerify  string
}

func resolveEndpoints(baseURL string) endpoints {
	base := strings.TrimRight(baseURL, "/")
	return endpoints{
		send:       base + "/sms/send",
		balance:    base + "/account/balance",
		hlr:        base + "/hlr/lookup",
		otpRequest: base + "/otp/request",
		otpVerify:  base + "/otp/verify",
	}
}

// Client talks to the SMS gateway. It holds only the credential and
// the endpoint table, so it is safe to reuse across calls; concurrent
// use is safe as long as the Transport is.
type Client struct {
	apiKey    string
	endpoints endpoints
	transport Transport
}

// New builds a Client with the default resty-backed transport.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return NewWithTransport(cfg, newRestyTransport(timeout))
}

// NewWithTransport builds a Client around a caller-supplied Transport.
// This is the seam tests and custom HTTP stacks plug into.
func NewWithTransport(cfg Config, transport Transport) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:    cfg.APIKey,
		endpoints: resolveEndpoints(baseURL),
		transport: transport,
	}
}

// SendRequest describes a message submission. To accepts one or more
// numbers; each element may itself be comma-joined. DeliveryTime is an
// optional "2006-01-02 15:04:05" timestamp in UTC+7 for scheduled
// delivery.
type SendRequest struct {
	From         string
	To           []string
	Message      string
	DeliveryTime string
}

// HLRRequest describes an HLR lookup for one or more numbers, with an
// optional hour-precision schedule.
type HLRRequest struct {
	To           []string
	DeliveryTime string
}

// OTPRequest asks the gateway to generate and deliver a one-time PIN.
type OTPRequest struct {
	From   string
	To     string
	Secret string
}

// OTPVerifyRequest checks a PIN the end user supplied against an
// earlier OTPRequest.
type OTPVerifyRequest struct {
	From   string
	Secret string
	PIN    string
}

// SendMessage submits an SMS to one or more destinations.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (result string) {
	defer recoverToEnvelope(&result, sendCodes)

	if c.apiKey == "" {
		return failure(CodeAPIKeyEmpty, "api_key is empty")
	}
	if req.From == "" || utf8.RuneCountInString(req.From) > maxSenderIDLength {
		return failure(CodeFromInvalid, "from error or empty")
	}

	to, err := NormalizeDestinations(req.To)
	if err != nil {
		return failure(CodeToInvalid, "to error or empty")
	}

	switch {
	case req.Message == "":
		return failure(CodeMsgInvalid, "msg error or empty")
	case utf8.RuneCountInString(req.Message) > maxMessageLength:
		return failure(CodeMsgInvalid, fmt.Sprintf("msg is too long, max %d characters", maxMessageLength))
	case !IsGSM7(req.Message):
		return failure(CodeMsgInvalid, "msg contains non-GSM 7-bit characters")
	}

	params := map[string]string{
		"api_key": c.apiKey,
		"from":    req.From,
		"to":      to,
		"msg":     req.Message,
	}

	if req.DeliveryTime != "" {
		scheduled, err := convertDeliveryTime(req.DeliveryTime, deliveryTimeMinuteLayout, time.Now())
		if err != nil {
			return deliveryTimeFailure(err)
		}
		params["delivery_time"] = scheduled
	}

	raw, err := c.transport.Post(ctx, c.endpoints.send, params)

	return standardizeResponse(raw, err, sendCodes, func(body map[string]any) map[string]any {
		body["segment"] = SegmentCount(req.Message)
		return body
	})
}

// CheckBalance returns the remaining account credit. Success bodies
// are reduced to the status, balance and expired fields.
func (c *Client) CheckBalance(ctx context.Context) (result string) {
	defer recoverToEnvelope(&result, balanceCodes)

	if c.apiKey == "" {
		return failure(CodeAPIKeyEmpty, "api_key is empty")
	}

	params := map[string]string{"api_key": c.apiKey}

	raw, err := c.transport.Post(ctx, c.endpoints.balance, params)

	return standardizeResponse(raw, err, balanceCodes, func(body map[string]any) map[string]any {
		subset := map[string]any{"status": body["status"]}
		for _, key := range []string{"balance", "expired"} {
			if value, ok := body[key]; ok {
				subset[key] = value
			}
		}
		return subset
	})
}

// HLRLookup queries the network registry for the reachability of one
// or more numbers.
func (c *Client) HLRLookup(ctx context.Context, req HLRRequest) (result string) {
	defer recoverToEnvelope(&result, hlrCodes)

	if c.apiKey == "" {
		return failure(CodeAPIKeyEmpty, "api_key is empty")
	}

	to, err := NormalizeDestinations(req.To)
	if err != nil {
		return failure(CodeToInvalid, "to error or empty")
	}

	params := map[string]string{
		"api_key": c.apiKey,
		"to":      to,
	}

	if req.DeliveryTime != "" {
		scheduled, err := convertDeliveryTime(req.DeliveryTime, deliveryTimeHourLayout, time.Now())
		if err != nil {
			return deliveryTimeFailure(err)
		}
		params["delivery_time"] = scheduled
	}

	raw, err := c.transport.Post(ctx, c.endpoints.hlr, params)

	return standardizeResponse(raw, err, hlrCodes, nil)
}

// RequestOTP asks the gateway to generate and send a one-time PIN.
func (c *Client) RequestOTP(ctx context.Context, req OTPRequest) (result string) {
	defer recoverToEnvelope(&result, otpCodes)

	if c.apiKey == "" {
		return failure(CodeAPIKeyEmpty, "api_key is empty")
	}
	if req.From == "" {
		return failure(CodeFromInvalid, "from error or empty")
	}

	to, err := NormalizeMSISDN(req.To)
	if err != nil {
		return failure(CodeOTPToInvalid, "to error or empty")
	}

	if req.Secret == "" {
		return failure(CodeSecretEmpty, "secret error or empty")
	}

	params := map[string]string{
		"api_key": c.apiKey,
		"from":    req.From,
		"to":      to,
		"secret":  req.Secret,
	}

	raw, err := c.transport.Post(ctx, c.endpoints.otpRequest, params)

	return standardizeResponse(raw, err, otpCodes, nil)
}

// VerifyOTP checks a user-supplied PIN against an earlier RequestOTP.
func (c *Client) VerifyOTP(ctx context.Context, req OTPVerifyRequest) (result string) {
	defer recoverToEnvelope(&result, otpVerifyCodes)

	if c.apiKey == "" {
		return failure(CodeAPIKeyEmpty, "api_key is empty")
	}
	if req.From == "" {
		return failure(CodeFromInvalid, "from error or empty")
	}
	if req.Secret == "" {
		return failure(CodeSecretEmpty, "secret error or empty")
	}
	if req.PIN == "" {
		return failure(CodePINEmpty, "pin error or empty")
	}

	params := map[string]string{
		"api_key": c.apiKey,
		"from":    req.From,
		"secret":  req.Secret,
		"pin":     req.PIN,
	}

	raw, err := c.transport.Post(ctx, c.endpoints.otpVerify, params)

	return standardizeResponse(raw, err, otpVerifyCodes, nil)
}

// deliveryTimeFailure maps delivery-time conversion errors onto their
// envelope codes.
func deliveryTimeFailure(err error) string {
	if err == errDeliveryTimePast {
		return failure(CodeSendTimePast, "delivery time is in the past")
	}
	return failure(CodeSendTimeFormat, "invalid delivery time format, expected "+deliveryTimeLayout)
}

// recoverToEnvelope is the per-operation fault boundary: any panic in
// the validate/encode/transport/decode sequence becomes the uniform
// envelope under the operation's unexpected-failure code, so the
// public contract shape never changes.
func recoverToEnvelope(result *string, codes opCodes) {
	if r := recover(); r != nil {
		*result = failure(codes.unexpected, fmt.Sprintf("unexpected error: %v", r))
	}
}
