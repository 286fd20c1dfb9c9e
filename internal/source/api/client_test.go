package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, token, WithInitialBackoff(time.Millisecond), WithMaxRetries(2))
	require.NoError(t, err)
	return c
}

func TestFetchIncomeSendsTokenAndRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/income/", r.URL.Path)
		assert.Equal(t, "1050.5", r.URL.Query().Get("exchg_rate"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"date":"2024-01","income":[{"id":1,"name":"Sueldo","price":1000}],"total":1000}]`)
	}, "secret")

	got, err := c.FetchIncome(context.Background(), decimal.RequireFromString("1050.5"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.MonthKey("2024-01"), got[0].Date)
	assert.Equal(t, "Sueldo", got[0].Items[0].Name)
	assert.True(t, got[0].Total.Equal(decimal.NewFromInt(1000)))
}

func TestFetchFixedCostsDecodesFixedCostKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fixed-cost/", r.URL.Path)
		_, _ = io.WriteString(w, `[{"date":"2024-02","fixedCost":[{"name":"Tarjeta","price":"320.10"}],"total":"320.10"}]`)
	}, "secret")

	got, err := c.FetchFixedCosts(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Len(t, got[0].Items, 1)
	assert.Equal(t, core.CardSpendItem, got[0].Items[0].Name)
}

func TestMissingTokenFailsBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := c.FetchIncome(context.Background(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrTokenNotFound)
	err = c.PatchIncome(context.Background(), core.LineItem{Name: "x"})
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Zero(t, calls.Load())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}, "secret")

	got, err := c.FetchSavings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, "secret")

	_, err := c.FetchIncome(context.Background(), decimal.NewFromInt(1))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}, "secret")

	_, err := c.CurrentUser(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "nope", se.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPatchIsSentOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, "secret")

	err := c.PatchFixedCost(context.Background(), core.LineItem{ID: 4, Name: "Luz", DateTo: "2024-02"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPatchFixedCostBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/fixed-cost/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Luz", body["name"])
		assert.Equal(t, "2024-02", body["date_to"])
		w.WriteHeader(http.StatusNoContent)
	}, "secret")

	err := c.PatchFixedCost(context.Background(), core.LineItem{ID: 4, Name: "Luz", DateTo: "2024-02"})
	require.NoError(t, err)
}

func TestPatchBodiesSendNumbers(t *testing.T) {
	var bodies []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(raw))
		w.WriteHeader(http.StatusNoContent)
	}, "secret")
	ctx := context.Background()

	item := core.LineItem{ID: 4, Name: "Luz", Price: decimal.RequireFromString("200.50"), Installment: "3/12", DateTo: "2024-02"}
	require.NoError(t, c.PatchIncome(ctx, item))
	saving := core.SavingItem{ID: 13, Name: "Fondo", Invested: decimal.NewFromInt(10), Obtained: decimal.RequireFromString("12.5"), Type: "flex", Ccy: "usd", DateTo: "2024-05"}
	require.NoError(t, c.PatchSaving(ctx, saving))

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"id":4,"name":"Luz","price":200.5,"installment":"3/12","date_to":"2024-02"}`, bodies[0])
	assert.JSONEq(t, `{"id":13,"name":"Fondo","invested":10,"obtained":12.5,"tna":0,"liquid":false,"type":"flex","ccy":"usd","date_to":"2024-05"}`, bodies[1])
	assert.NotContains(t, bodies[0], `"price":"`)
}

func TestSavingMutationsUseItemPath(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, "secret")

	require.NoError(t, c.DeleteSaving(context.Background(), 12))
	require.NoError(t, c.PatchSaving(context.Background(), core.SavingItem{ID: 13, DateTo: "2024-05"}))
	assert.Equal(t, []string{"DELETE /api/saving/12/", "PATCH /api/saving/13/"}, seen)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchIncome(ctx, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com", "t")
	assert.Error(t, err)
	_, err = New("://", "t")
	assert.Error(t, err)
}
