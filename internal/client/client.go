// Package client talks to the order API over REST and websocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"food-market/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the connection settings of the API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a REST client for the order API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "api-client").Logger(),
	}
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id.String(), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches orders matching filter, newest first.
func (c *Client) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := url.Values{}
	if filter.StoreID != "" {
		query.Set("storeId", filter.StoreID)
	}
	if filter.CustomerID != "" {
		query.Set("customerId", filter.CustomerID)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}

	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus requests a status change. A non-nil version makes the change
// conditional on the order still being at that version.
func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, version *int) (*model.Order, error) {
	body := model.UpdateStatusRequest{Status: string(status), Version: version}

	var order model.Order
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+id.String()+"/status", nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ChannelToken requests a token for joining the store's notification channel.
func (c *Client) ChannelToken(ctx context.Context, storeID string) (*model.ChannelTokenResponse, error) {
	var resp model.ChannelTokenResponse
	path := "/api/stores/" + url.PathEscape(storeID) + "/channel-token"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one request. Error responses from the API come back as *model.DomainError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var body model.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("code", body.Error).
		Str("correlation_id", body.CorrelationID).
		Msg("api returned an error")

	return &model.DomainError{Code: body.Error, Message: body.Message, Details: body.Details}
}
