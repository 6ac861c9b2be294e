// Package backend is the REST client of the external storefront API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

var _ model.StorefrontAPI = (*Client)(nil)

const maxErrorBody = 1 << 16

// APIError is a non-2xx answer of the storefront API.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront api: status %d", e.Status)
	}
	return fmt.Sprintf("storefront api: status %d: %s", e.Status, e.Message)
}

// Unwrap exposes the model sentinel the status maps to, if any.
func (e *APIError) Unwrap() error {
	return e.kind
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested int    `json:"requested,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client talks to the storefront API. Products are cached in an expiring LRU.
type Client struct {
	baseURL  string
	http     *http.Client
	products *expirable.LRU[int64, model.Product]
	logger   *logger.Logger
}

// NewClient creates a client for baseURL. A non-positive cacheSize keeps a single entry.
func NewClient(baseURL string, timeout time.Duration, cacheSize int, cacheTTL time.Duration, logger *logger.Logger) *Client {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: timeout},
		products: expirable.NewLRU[int64, model.Product](cacheSize, nil, cacheTTL),
		logger:   logger,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (model.Credentials, error) {
	var creds model.Credentials
	err := c.do(ctx, http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: password}, &creds)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusUnprocessableEntity) {
			apiErr.kind = model.ErrInvalidCredentials
		}
		return model.Credentials{}, err
	}
	if creds.Token == "" {
		return model.Credentials{}, fmt.Errorf("storefront api: login returned no token")
	}
	return creds, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", token, nil, nil)
}

// ListProducts fetches the catalog and refreshes the product cache.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", "", nil, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		c.products.Add(p.ID, p)
	}
	return products, nil
}

// GetProduct returns a cached product or fetches it.
func (c *Client) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	if p, ok := c.products.Get(id); ok {
		return p, nil
	}
	return c.FetchProduct(ctx, id)
}

// FetchProduct always asks the storefront API, so the stock it reports is the
// live one. The fresh product replaces the cached copy.
func (c *Client) FetchProduct(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), "", nil, &p); err != nil {
		c.products.Remove(id)
		return model.Product{}, err
	}
	c.products.Add(p.ID, p)
	return p, nil
}

// PlaceOrder submits draft. Cached products of the ordered lines are evicted since
// their stock moved.
func (c *Client) PlaceOrder(ctx context.Context, token string, draft model.OrderDraft) (model.Order, error) {
	var order model.Order
	err := c.do(ctx, http.MethodPost, "/api/orders", token, draft, &order)
	for _, line := range draft.Items {
		c.products.Remove(line.ProductID)
	}
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (c *Client) ListOrders(ctx context.Context, token string) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/my-orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call storefront api: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Storefront API: call completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("failed to decode response: missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Message == "" {
		eb.Message = strings.TrimSpace(string(raw))
	}

	if resp.StatusCode == http.StatusConflict && eb.Available != nil && eb.ProductID > 0 {
		return &model.StockExceededError{
			ProductID: eb.ProductID,
			Ceiling:   *eb.Available,
			Requested: eb.Requested,
		}
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: eb.Message}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.kind = model.ErrUnauthenticated
	case http.StatusNotFound:
		apiErr.kind = model.ErrNotFound
	}
	return apiErr
}
