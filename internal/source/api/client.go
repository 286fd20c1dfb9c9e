// Package api is the HTTP client of the remote finance API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/source"
)

const (
	incomePath    = "/api/income/"
	fixedCostPath = "/api/fixed-cost/"
	savingPath    = "/api/saving/"
	userPath      = "/api/user/"

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
)

// ErrTokenNotFound is returned before any request when no token is configured.
var ErrTokenNotFound = errors.New("token not found")

// StatusError is a non-2xx answer of the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: http status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type Client struct {
	baseURL    *url.URL
	token      string
	http       *http.Client
	maxRetries uint64
	initial    time.Duration
	logger     *slog.Logger
}

var _ source.Source = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxRetries bounds the retries of idempotent requests. Zero disables them.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) { c.initial = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    u,
		token:      strings.TrimSpace(token),
		http:       &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		initial:    500 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) FetchIncome(ctx context.Context, rate decimal.Decimal) ([]core.Bucket, error) {
	var out []core.Bucket
	if err := c.get(ctx, incomePath, rateQuery(rate), &out); err != nil {
		return nil, fmt.Errorf("fetch income: %w", err)
	}
	return out, nil
}

func (c *Client) FetchFixedCosts(ctx context.Context, rate decimal.Decimal) ([]core.Bucket, error) {
	var out []core.Bucket
	if err := c.get(ctx, fixedCostPath, rateQuery(rate), &out); err != nil {
		return nil, fmt.Errorf("fetch fixed costs: %w", err)
	}
	return out, nil
}

func (c *Client) PatchIncome(ctx context.Context, item core.LineItem) error {
	if err := c.send(ctx, http.MethodPatch, incomePath, lineItemBody(item)); err != nil {
		return fmt.Errorf("patch income: %w", err)
	}
	return nil
}

func (c *Client) PatchFixedCost(ctx context.Context, item core.LineItem) error {
	if err := c.send(ctx, http.MethodPatch, fixedCostPath, lineItemBody(item)); err != nil {
		return fmt.Errorf("patch fixed cost: %w", err)
	}
	return nil
}

func (c *Client) FetchSavings(ctx context.Context) ([]core.SavingMonth, error) {
	var out []core.SavingMonth
	if err := c.get(ctx, savingPath, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch savings: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteSaving(ctx context.Context, id int64) error {
	if err := c.send(ctx, http.MethodDelete, savingItemPath(id), nil); err != nil {
		return fmt.Errorf("delete saving %d: %w", id, err)
	}
	return nil
}

func (c *Client) PatchSaving(ctx context.Context, item core.SavingItem) error {
	if err := c.send(ctx, http.MethodPatch, savingItemPath(item.ID), savingItemBody(item)); err != nil {
		return fmt.Errorf("patch saving %d: %w", item.ID, err)
	}
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	var u core.User
	if err := c.get(ctx, userPath, nil, &u); err != nil {
		return core.User{}, fmt.Errorf("fetch user: %w", err)
	}
	return u, nil
}

// Patch bodies echo the item back with amounts as JSON numbers, the way
// the API sends them.
type (
	lineItemPatch struct {
		ID          int64         `json:"id,omitempty"`
		Name        string        `json:"name"`
		Price       json.Number   `json:"price"`
		Installment string        `json:"installment,omitempty"`
		Liquid      bool          `json:"liquid,omitempty"`
		Type        string        `json:"type,omitempty"`
		DateFrom    core.MonthKey `json:"date_from,omitempty"`
		DateTo      core.MonthKey `json:"date_to,omitempty"`
	}

	savingItemPatch struct {
		ID       int64         `json:"id"`
		Name     string        `json:"name"`
		Invested json.Number   `json:"invested"`
		Obtained json.Number   `json:"obtained"`
		TNA      json.Number   `json:"tna"`
		Liquid   bool          `json:"liquid"`
		Type     string        `json:"type"`
		Ccy      string        `json:"ccy"`
		DateTo   core.MonthKey `json:"date_to,omitempty"`
	}
)

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func lineItemBody(it core.LineItem) lineItemPatch {
	return lineItemPatch{
		ID:          it.ID,
		Name:        it.Name,
		Price:       number(it.Price),
		Installment: it.Installment,
		Liquid:      it.Liquid,
		Type:        it.Type,
		DateFrom:    it.DateFrom,
		DateTo:      it.DateTo,
	}
}

func savingItemBody(it core.SavingItem) savingItemPatch {
	return savingItemPatch{
		ID:       it.ID,
		Name:     it.Name,
		Invested: number(it.Invested),
		Obtained: number(it.Obtained),
		TNA:      number(it.TNA),
		Liquid:   it.Liquid,
		Type:     it.Type,
		Ccy:      it.Ccy,
		DateTo:   it.DateTo,
	}
}

// get retries transport failures and temporary statuses with exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	if c.token == "" {
		return ErrTokenNotFound
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		body, err := c.do(req)
		if err != nil {
			var se *StatusError
			if ctx.Err() != nil || (errors.As(err, &se) && !se.Temporary()) {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		c.logger.WarnContext(ctx, "Retrying finance API request",
			"path", path, "attempt", attempt, "next_in", next, "error", err)
	})
}

// send issues a mutation exactly once.
func (c *Client) send(ctx context.Context, method, path string, payload any) error {
	if c.token == "" {
		return ErrTokenNotFound
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	c.logger.DebugContext(req.Context(), "Finance API call",
		"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: req.Method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(truncate(body, 256))),
		}
	}
	return body, nil
}

func rateQuery(rate decimal.Decimal) url.Values {
	return url.Values{"exchg_rate": {rate.String()}}
}

func savingItemPath(id int64) string {
	return savingPath + strconv.FormatInt(id, 10) + "/"
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
