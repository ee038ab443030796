package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nusasms/nusasms-go/internal/domain"
)

// MessageRepository handles database operations for outbound messages.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = "id, sender, destination, body, segments, status, provider_id, error_text, delivered_at, created_at, updated_at"

// RecordSubmission inserts a successful send attempt.
func (r *MessageRepository) RecordSubmission(ctx context.Context, sender, destination, body string, segments int, providerID string) (*domain.OutboundMessage, error) {
	query := `
		INSERT INTO outbound_messages (sender, destination, body, segments, status, provider_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'submitted', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, sender, destination, body, segments, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// RecordFailure inserts a send attempt the gateway rejected, keeping
// the envelope's error text for later inspection.
func (r *MessageRepository) RecordFailure(ctx context.Context, sender, destination, body string, segments int, errorText string) (*domain.OutboundMessage, error) {
	query := `
		INSERT INTO outbound_messages (sender, destination, body, segments, status, error_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'failed', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, sender, destination, body, segments, errorText)
	if err != nil {
		return nil, fmt.Errorf("failed to record failure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// UpdateDeliveryStatus resolves a submitted message once its DLR
// arrives, matching on the provider message id.
func (r *MessageRepository) UpdateDeliveryStatus(ctx context.Context, providerID string, status domain.MessageStatus, deliveredAt time.Time) error {
	query := `
		UPDATE outbound_messages
		SET status = ?, delivered_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE provider_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, deliveredAt, providerID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no message found with provider id %s", providerID)
	}

	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.OutboundMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM outbound_messages
		WHERE id = ?
	`

	var message domain.OutboundMessage
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

func (r *MessageRepository) GetAll(
	ctx context.Context,
	status *domain.MessageStatus,
	page, pageSize int,
) ([]domain.OutboundMessage, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var messages []domain.OutboundMessage

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM outbound_messages WHERE status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count messages: %w", err)
		}

		query := `
			SELECT ` + messageColumns + `
			FROM outbound_messages
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &messages, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get messages: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM outbound_messages"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count messages: %w", err)
		}

		query := `
			SELECT ` + messageColumns + `
			FROM outbound_messages
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &messages, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get messages: %w", err)
		}
	}

	return messages, totalCount, nil
}

// GetStats returns per-status message counts.
func (r *MessageRepository) GetStats(ctx context.Context) (submitted, delivered, undelivered, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'submitted' THEN 1 ELSE 0 END), 0)   AS submitted,
			COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0)   AS delivered,
			COALESCE(SUM(CASE WHEN status = 'undelivered' THEN 1 ELSE 0 END), 0) AS undelivered,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)      AS failed
		FROM outbound_messages
	`

	var stats struct {
		Submitted   int64 `db:"submitted"`
		Delivered   int64 `db:"delivered"`
		Undelivered int64 `db:"undelivered"`
		Failed      int64 `db:"failed"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats.Submitted, stats.Delivered, stats.Undelivered, stats.Failed, nil
}
