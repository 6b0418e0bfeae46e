package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/repository"
	"github.com/ocakbasi/order-sync/pkg/circuitbreaker"
	"github.com/ocakbasi/order-sync/pkg/errors"
	"github.com/ocakbasi/order-sync/pkg/logger"
	"github.com/ocakbasi/order-sync/pkg/retry"
)

// StoreClient talks to the Order Store REST API. It is the only path a
// display surface has to order data; surfaces never hold authoritative
// state of their own.
type StoreClient struct {
	baseURL     string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// apiEnvelope mirrors the store API response wrapper
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// transitionRequest is the body of a transition call
type transitionRequest struct {
	Status    models.Status `json:"status"`
	ChangedBy string        `json:"changed_by"`
}

// NewStoreClient creates a new StoreClient
func NewStoreClient(baseURL string, logger logger.Logger) *StoreClient {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
	}

	retryConfig := &retry.RetryConfig{
		MaxAttempts: 3,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 300 * time.Millisecond,
			MaxInterval:     3 * time.Second,
			Multiplier:      1.5,
			JitterFactor:    0.2,
		},
		Logger: logger,
		RetryableErrors: []error{
			errors.ErrTimeout,
			errors.ErrTemporaryFailure,
			errors.ErrTransientFetch,
			errors.ErrServiceUnavailable,
		},
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	return &StoreClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		logger:      logger,
		retryConfig: retryConfig,
		breaker:     breaker,
	}
}

// ListOrders fetches the orders matching the filter. Transport errors
// and 5xx responses come back as transient fetch failures so the polling
// loop keeps its previous snapshot and retries next tick.
func (c *StoreClient) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*models.Order, error) {
	query := url.Values{}

	if len(filter.StatusIn) > 0 {
		parts := make([]string, len(filter.StatusIn))
		for i, s := range filter.StatusIn {
			parts[i] = string(s)
		}
		query.Set("status", strings.Join(parts, ","))
	}

	if len(filter.SourceIn) > 0 {
		parts := make([]string, len(filter.SourceIn))
		for i, s := range filter.SourceIn {
			parts[i] = string(s)
		}
		query.Set("source", strings.Join(parts, ","))
	}

	if filter.IDEquals != "" {
		query.Set("id", filter.IDEquals)
	}

	endpoint := fmt.Sprintf("%s/api/v1/orders", c.baseURL)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var orders []*models.Order

	err := c.call(ctx, http.MethodGet, endpoint, nil, &orders)

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// ApplyTransition requests a status change for an order. An invalid edge
// comes back as ErrInvalidTransition and is never retried; resubmitting
// the current status is a no-op success on the store side.
func (c *StoreClient) ApplyTransition(ctx context.Context, orderID string, requested models.Status, changedBy string) (*models.Order, error) {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/transition", c.baseURL, orderID)
	body := transitionRequest{Status: requested, ChangedBy: changedBy}

	var order models.Order

	err := c.call(ctx, http.MethodPost, endpoint, body, &order)

	if err != nil {
		return nil, err
	}

	return &order, nil
}

// PrintTicket asks the store to print a physical ticket for an order.
// Independent of order state; a failure here is the operator's to retry.
func (c *StoreClient) PrintTicket(ctx context.Context, orderID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/print", c.baseURL, orderID)

	return c.call(ctx, http.MethodPost, endpoint, nil, nil)
}

// GetStatusHistory fetches the transition history of an order
func (c *StoreClient) GetStatusHistory(ctx context.Context, orderID string) ([]*models.StatusLog, error) {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/history", c.baseURL, orderID)

	var history []*models.StatusLog

	err := c.call(ctx, http.MethodGet, endpoint, nil, &history)

	if err != nil {
		return nil, err
	}

	return history, nil
}

// call performs one API request with retry and circuit breaking, and
// decodes the envelope's data into out when out is non-nil
func (c *StoreClient) call(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	retryFunc := func() error {
		if !c.breaker.Allow() {
			return errors.NewTransientFetchError("store circuit is open")
		}

		err := c.doOnce(ctx, method, endpoint, body, out)

		if err != nil {
			if errors.IsRetryable(err) {
				c.breaker.Failure()
			}
			return err
		}

		c.breaker.Success()
		return nil
	}

	err := retry.Retry(ctx, retryFunc, c.retryConfig)

	if err != nil {
		c.logger.Error("Store call failed after retries",
			"error", err,
			"method", method,
			"endpoint", endpoint)
		return err
	}

	return nil
}

// doOnce performs a single HTTP exchange against the store
func (c *StoreClient) doOnce(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reqBody io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to marshal request: %v", err))
		}

		reqBody = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return errors.NewTimeoutError("store request timed out")
		}
		return errors.NewTransientFetchError(fmt.Sprintf("failed to reach store: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
	}

	if resp.StatusCode >= 400 {
		var envelope apiEnvelope
		message := fmt.Sprintf("store returned %d", resp.StatusCode)

		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}

		switch {
		case resp.StatusCode == http.StatusConflict:
			return errors.NewInvalidTransitionError(message)
		case resp.StatusCode == http.StatusNotFound:
			return errors.NewNotFoundError(message)
		case resp.StatusCode == http.StatusBadGateway:
			return errors.NewPrintFailedError(message)
		case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
			return errors.NewTimeoutError(message)
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return errors.NewTransientFetchError(message)
		default:
			return errors.NewAppError(errors.ErrInternal, message, resp.StatusCode, false)
		}
	}

	if out == nil {
		return nil
	}

	var envelope apiEnvelope

	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to parse response: %v", err))
	}

	if !envelope.Success {
		return errors.NewInternalError("store reported failure without error detail")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to parse response data: %v", err))
	}

	return nil
}
