package domain

import "time"

type MessageStatus string

const (
	// StatusSubmitted means the gateway accepted the message; final
	// delivery is reported later via DLR webhook.
	StatusSubmitted   MessageStatus = "submitted"
	StatusFailed      MessageStatus = "failed"
	StatusDelivered   MessageStatus = "delivered"
	StatusUndelivered MessageStatus = "undelivered"
)

// OutboundMessage is one recorded send attempt against the gateway.
// Destination holds the normalized comma-joined MSISDN batch exactly
// as it was submitted.
type OutboundMessage struct {
	ID          int64         `db:"id" json:"id"`
	Sender      string        `db:"sender" json:"sender"`
	Destination string        `db:"destination" json:"destination"`
	Body        string        `db:"body" json:"body"`
	Segments    int           `db:"segments" json:"segments"`
	Status      MessageStatus `db:"status" json:"status"`
	ProviderID  *string       `db:"provider_id" json:"providerId,omitempty"`
	ErrorText   *string       `db:"error_text" json:"errorText,omitempty"`
	DeliveredAt *time.Time    `db:"delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// SubmittedMessageCache maps a provider message id back to the local
// record so DLR webhooks can be correlated without a table scan.
type SubmittedMessageCache struct {
	RecordID    int64     `json:"recordId"`
	Destination string    `json:"destination"`
	SubmittedAt time.Time `json:"submittedAt"`
}
