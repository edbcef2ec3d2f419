// Package gateway talks to the Razorpay orders API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const DefaultBaseURL = "https://api.razorpay.com/v1"

// ErrRejected marks a definite 4xx answer; the request must not be retried.
var ErrRejected = errors.New("gateway rejected request")

type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes,omitempty"`
	CreatedAt  int64             `json:"created_at"`
}

// Razorpay order statuses.
const (
	OrderCreated   = "created"
	OrderAttempted = "attempted"
	OrderPaid      = "paid"
)

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Config struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	Timeout    time.Duration
	MaxRetries int
	// Budget bounds one call including every retry and backoff sleep.
	Budget       time.Duration
	RetryInitial time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	if cfg.Budget <= 0 {
		cfg.Budget = cfg.Timeout * time.Duration(cfg.MaxRetries+1)
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order for amount (minor units). Razorpay does not deduplicate
// by receipt, so the request is only retried when it provably never reached the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+id, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// notSent reports whether err happened before the request reached the gateway.
func notSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// do sends the request, retrying transient failures. When idempotent is false only
// failures that cannot have created anything upstream are retried.
func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotent bool, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Budget)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryInitial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxRetries)), ctx)

	op := func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			err = fmt.Errorf("razorpay %s %s: %w", method, path, err)
			if !idempotent && !notSent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			err = fmt.Errorf("razorpay read body: %w", err)
			if !idempotent {
				return backoff.Permanent(err)
			}
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("razorpay %s %s: status %d", method, path, resp.StatusCode)
		case resp.StatusCode >= 500:
			err := fmt.Errorf("razorpay %s %s: status %d", method, path, resp.StatusCode)
			if !idempotent {
				return backoff.Permanent(err)
			}
			return err
		case resp.StatusCode >= 400:
			var apiErr apiError
			msg := strings.TrimSpace(string(data))
			if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Description != "" {
				msg = apiErr.Error.Description
			}
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg))
		}

		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("razorpay decode: %w", err))
		}
		return nil
	}

	return backoff.Retry(op, policy)
}
