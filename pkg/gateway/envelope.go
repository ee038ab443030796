package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

// Error codes surfaced in the "error-text" field of the failure
// envelope. The ERR0xx range mirrors the provider's documented
// validation codes; ERR2xx codes cover response handling, one triple
// per operation because each operation decodes its response
// independently.
const (
	CodeAPIKeyEmpty       = "ERR999"
	CodeFromInvalid       = "ERR005"
	CodeToInvalid         = "ERR006"
	CodeMsgInvalid        = "ERR007"
	CodeSecretEmpty       = "ERR008"
	CodeSenderIDInvalid   = "ERR009" // documented by the provider, not produced by this client
	CodeSendTimeFormat    = "ERR010"
	CodeSendTimePast      = "ERR011"
	CodePINEmpty          = "ERR012"
	CodeOTPToInvalid      = "ERR014"
	CodeConnectionFailure = "ERR001"
	CodeEmptyResponse     = "ERR002"
	CodeUpstreamError     = "ERR100"
)

// opCodes holds the response-handling codes of a single operation.
type opCodes struct {
	invalidResponse string
	missingStatus   string
	unexpected      string
}

var (
	sendCodes      = opCodes{"ERR201", "ERR202", "ERR203"}
	balanceCodes   = opCodes{"ERR211", "ERR212", "ERR213"}
	hlrCodes       = opCodes{"ERR221", "ERR222", "ERR223"}
	otpCodes       = opCodes{"ERR231", "ERR232", "ERR233"}
	otpVerifyCodes = opCodes{"ERR241", "ERR242", "ERR243"}
)

const envelopeTimeLayout = "2006-01-02 15:04:05"

// failureEnvelope is the uniform error shape every operation returns
// on any failure, regardless of whether it originated in validation,
// transport, decoding or the provider itself.
type failureEnvelope struct {
	Status    int    `json:"status"`
	ErrorText string `json:"error-text"`
	Timestamp string `json:"timestamp"`
}

// failure renders the uniform failure envelope as JSON text.
func failure(code, message string) string {
	env := failureEnvelope{
		Status:    0,
		ErrorText: code + ": " + message,
		Timestamp: time.Now().Format(envelopeTimeLayout),
	}

	data, err := json.Marshal(env)
	if err != nil {
		// Cannot happen for a flat struct of scalars; keep the
		// contract anyway.
		return `{"status":0,"error-text":"` + code + `: encoding failure","timestamp":""}`
	}

	return string(data)
}

// standardizeResponse converts a raw transport result into the public
// response text: success bodies are re-encoded (after optional
// augmentation), every failure mode collapses into the uniform
// envelope.
func standardizeResponse(raw string, transportErr error, codes opCodes, augment func(map[string]any) map[string]any) string {
	if transportErr != nil {
		return failure(CodeConnectionFailure, "connection error: "+transportErr.Error())
	}

	if strings.TrimSpace(raw) == "" {
		return failure(CodeEmptyResponse, "empty response from server")
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return failure(codes.invalidResponse, "invalid response from server")
	}

	status, ok := body["status"]
	if !ok {
		return failure(codes.missingStatus, "no status in server response")
	}

	if isFailureStatus(status) {
		return failure(CodeUpstreamError, upstreamErrorText(body))
	}

	if augment != nil {
		body = augment(body)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return failure(codes.unexpected, "failed to encode response: "+err.Error())
	}

	return string(data)
}

// isFailureStatus reports whether the decoded status field carries the
// provider's failure sentinel. JSON numbers decode as float64; some
// provider endpoints quote the value.
func isFailureStatus(v any) bool {
	switch s := v.(type) {
	case float64:
		return s == 0
	case string:
		return s == "0"
	default:
		return false
	}
}

// upstreamErrorText extracts the provider's own error description from
// a failure body.
func upstreamErrorText(body map[string]any) string {
	for _, key := range []string{"error-text", "message"} {
		if text, ok := body[key].(string); ok && text != "" {
			return text
		}
	}
	return "unknown error from server"
}
