// Package backend is the HTTP client for the Expense Tracker API. It keeps the
// session cookie in a cookie jar, so every call after SessionLogin is
// authenticated.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

const defaultTimeout = 15 * time.Second

// APIError is a {success:false,error} answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

func (c *Client) SessionLogin(ctx context.Context, idToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/sessionLogin", map[string]string{"idToken": idToken}, nil)
}

func (c *Client) SessionLogout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/sessionLogout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*auth.Profile, error) {
	var profile auth.Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) SystemCategories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Data []domain.Category `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/categories/system", nil, &resp)
	return resp.Data, err
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Data []domain.Category `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &resp)
	return resp.Data, err
}

type NewCategory struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

func (c *Client) CreateCategory(ctx context.Context, in NewCategory) (*domain.Category, error) {
	var resp struct {
		Data domain.Category `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/categories", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	var resp struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &resp)
	return resp.Transactions, err
}

type NewTransaction struct {
	Amount        float64     `json:"amount"`
	Type          string      `json:"type"`
	CategoryID    int64       `json:"category_id"`
	Date          domain.Date `json:"date"`
	Time          *string     `json:"time,omitempty"`
	Description   *string     `json:"description,omitempty"`
	PaymentMethod string      `json:"payment_method,omitempty"`
}

func (c *Client) CreateTransaction(ctx context.Context, in NewTransaction) (*domain.Transaction, error) {
	var resp struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/transactions", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Transaction, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	var resp struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(id), patch, &resp); err != nil {
		return nil, err
	}
	return &resp.Transaction, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

// Summary returns per-year totals for the inclusive date range. Zero dates
// leave the bound to the server's default.
func (c *Client) Summary(ctx context.Context, start, end domain.Date) (map[int]application.TransactionSummary, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start_date", start.String())
	}
	if !end.IsZero() {
		q.Set("end_date", end.String())
	}
	path := "/api/transactions/summary"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Data map[int]application.TransactionSummary `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Data, err
}

func (c *Client) Breakdown(ctx context.Context) (*application.Breakdown, error) {
	var resp struct {
		Data application.Breakdown `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/transactions/breakdown", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		if envelope.Error == "" {
			envelope.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
