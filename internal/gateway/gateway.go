// Package gateway is the client for the privileged REST endpoints that manage
// identity accounts and send transactional email.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"medorder/backend/internal/metrics"
)

var ErrUnavailable = errors.New("gateway unavailable")

// Response is the envelope every gateway endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// RequestError is a request the gateway refused. Status 4xx errors do not
// count against the circuit breaker.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

type Email struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var reqErr *RequestError
			return err == nil || (errors.As(err, &reqErr) && reqErr.Status < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.SetBreakerState(name, float64(to))
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		metrics:    m,
	}
}

// CreateUser registers an identity account and returns its id.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	resp, err := c.call(ctx, "create_user", http.MethodPost, "/users", req)
	if err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("create user: gateway response carried no user id")
	}
	return resp.UserID, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	_, err := c.call(ctx, "delete_user", http.MethodDelete, "/users/"+url.PathEscape(userID), nil)
	return err
}

func (c *Client) SendEmail(ctx context.Context, email Email) error {
	_, err := c.call(ctx, "send_email", http.MethodPost, "/emails", email)
	return err
}

func (c *Client) call(ctx context.Context, operation string, method string, path string, body any) (*Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, method, path, body)
	})
	c.metrics.GatewayCall(operation, err == nil)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("gateway circuit open", zap.String("operation", operation))
		return nil, fmt.Errorf("%s: %w", operation, ErrUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return result.(*Response), nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp Response
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &resp); err != nil && httpResp.StatusCode < 300 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if httpResp.StatusCode >= 300 || !resp.Success {
		msg := firstNonEmpty(resp.Error, resp.Message, http.StatusText(httpResp.StatusCode))
		status := httpResp.StatusCode
		if status < 300 {
			status = http.StatusUnprocessableEntity
		}
		return nil, &RequestError{Status: status, Message: msg}
	}
	return &resp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
