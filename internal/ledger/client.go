// Package ledger talks to the external credential ledger. The ledger is
// an opaque remote call that can succeed, fail permanently, or time out;
// the client's only jobs are bounded timeouts, failure classification
// and request signing.
package ledger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"enrolld/internal/platform/metrics"
	"enrolld/pkg/platform/circuit"
	"enrolld/pkg/platform/sentinel"
)

// Registration is the payload submitted to the ledger for one identity.
type Registration struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
}

// Client submits registrations. Implementations classify failures:
// sentinel.ErrUnavailable is transient (retry via redelivery), anything
// else is permanent.
type Client interface {
	Register(ctx context.Context, signingKey []byte, reg Registration) (txID string, err error)
}

// HTTPClient is the production ledger client. Its call timeout is bounded
// independently of the queue redelivery horizon, and a circuit breaker
// sheds calls while the ledger is down instead of burning the timeout on
// every job.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, callTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: callTimeout},
		breaker: circuit.New("ledger",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
			circuit.WithCooldown(30*time.Second)),
		metrics: m,
		logger:  logger,
	}
}

type registerResponse struct {
	TxID string `json:"tx_id"`
}

// Register submits one registration, signed with the caller's key. The
// signing key is never logged or persisted here.
func (c *HTTPClient) Register(ctx context.Context, signingKey []byte, reg Registration) (string, error) {
	if c.breaker.IsOpen() {
		return "", fmt.Errorf("ledger circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(reg)
	if err != nil {
		return "", fmt.Errorf("encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sign(signingKey, body))

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveLedgerCall(time.Since(start))
	if err != nil {
		c.recordFailure()
		// Timeouts and connectivity loss are transient.
		return "", fmt.Errorf("ledger call: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.recordSuccess()
		var out registerResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode ledger response: %w", err)
		}
		return out.TxID, nil
	case resp.StatusCode == http.StatusConflict:
		// Already registered: permanent, caller decides whether that is
		// "already applied" or a duplicate.
		c.recordSuccess()
		return "", fmt.Errorf("ledger rejected registration: %w", sentinel.ErrConflict)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		c.recordFailure()
		return "", fmt.Errorf("ledger unavailable (status %d): %w", resp.StatusCode, sentinel.ErrUnavailable)
	default:
		// Other 4xx: the ledger rejected the payload for a non-retriable
		// reason.
		c.recordSuccess()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ledger rejected registration (status %d): %s: %w", resp.StatusCode, msg, sentinel.ErrInvalidState)
	}
}

func (c *HTTPClient) recordFailure() {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("ledger circuit opened")
	}
}

func (c *HTTPClient) recordSuccess() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("ledger circuit closed")
	}
}

func sign(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
