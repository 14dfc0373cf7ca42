package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"meetpulse/pkg/types"
)

// Client delivers call notifications through the platform's notification
// service over HTTP. Failures are returned to the caller, which treats them
// as non-fatal; the client itself never retries.
type Client struct {
	endpoint string
	key      string
	http     *http.Client
	log      *zap.Logger
}

// NewClient creates a notification service client.
func NewClient(endpoint, key string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		key:      key,
		http:     &http.Client{Timeout: timeout},
		log:      log.Named("push"),
	}
}

// SendCallNotification posts one call notification for an offline callee.
func (c *Client) SendCallNotification(ctx context.Context, n types.CallNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "key="+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: notification service returned %s", ErrDeliveryFailed, resp.Status)
	}

	c.log.Debug("call notification accepted",
		zap.String("recipient", n.RecipientID),
		zap.String("call_type", n.CallType))
	return nil
}

// NopNotifier drops notifications. Used when no push backend is configured,
// for example in development.
type NopNotifier struct {
	Log *zap.Logger
}

// SendCallNotification logs the dropped notification and reports success.
func (n NopNotifier) SendCallNotification(_ context.Context, notification types.CallNotification) error {
	if n.Log != nil {
		n.Log.Info("push backend not configured, dropping call notification",
			zap.String("recipient", notification.RecipientID))
	}
	return nil
}
