package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/nusasms/nusasms-go/environments"
	"github.com/nusasms/nusasms-go/internal/domain"
	"github.com/nusasms/nusasms-go/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	submittedKeyPrefix = "submitted_message:"
	submittedTTL       = 72 * time.Hour

	balanceKey = "gateway:balance"
	balanceTTL = 1 * time.Minute
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheSubmittedMessage stores the provider message id to local record
// mapping the DLR webhook path reads.
func (c *Client) CacheSubmittedMessage(ctx context.Context, providerID string, recordID int64, destination string, submittedAt time.Time) error {
	cache := domain.SubmittedMessageCache{
		RecordID:    recordID,
		Destination: destination,
		SubmittedAt: submittedAt,
	}

	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := submittedKeyPrefix + providerID

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(submittedTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache submitted message: %w", err)
	}

	logger.Debugf("Cached provider id %s -> record %d in Redis", providerID, recordID)

	return nil
}

// GetSubmittedMessage returns the cached mapping for a provider
// message id, or nil when the key is absent or expired.
func (c *Client) GetSubmittedMessage(ctx context.Context, providerID string) (*domain.SubmittedMessageCache, error) {
	key := submittedKeyPrefix + providerID

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached message: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached message: %w", err)
	}

	var cache domain.SubmittedMessageCache
	if err := json.Unmarshal([]byte(data), &cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &cache, nil
}

// CacheBalance stores the most recent balance envelope for a short
// period so repeated dashboard polls do not hit the gateway.
func (c *Client) CacheBalance(ctx context.Context, envelope string) error {
	err := c.client.Do(ctx, c.client.B().Set().Key(balanceKey).Value(envelope).Ex(balanceTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// GetCachedBalance returns the cached balance envelope, or "" when it
// has expired.
func (c *Client) GetCachedBalance(ctx context.Context) (string, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(balanceKey).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get cached balance: %w", result.Error())
	}

	return result.ToString()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}
