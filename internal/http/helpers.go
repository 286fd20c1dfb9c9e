package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/monthly"
	"finanzas/internal/services"
	"finanzas/internal/source/api"
	"finanzas/internal/source/memory"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a service or source error to the response status.
// Anything unrecognised is an upstream failure.
func statusFor(err error) int {
	var se *api.StatusError
	switch {
	case errors.Is(err, services.ErrNotClosable),
		errors.Is(err, services.ErrNotDeletable),
		errors.Is(err, services.ErrNotFinalizable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnknownKind),
		errors.Is(err, core.ErrInvalidRate):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSavingNotFound),
		errors.Is(err, memory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrTokenNotFound):
		return http.StatusUnauthorized
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// fail logs err and answers with its mapped status.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := loggerFrom(r)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldOperation, op, applog.FieldError, err, applog.FieldStatusCode, status)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", applog.FieldOperation, op, applog.FieldError, err, applog.FieldStatusCode, status)
	}
	writeError(w, status, err.Error())
}

func loggerFrom(r *http.Request) *applog.Logger {
	return applog.FromContext(r.Context())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseRate reads the exchange rate from raw, falling back to def.
func parseRate(raw string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return core.ParseExchangeRate(raw)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// cursorParams is the page position requested in the query string.
type cursorParams struct {
	start    int
	hasStart bool
	perPage  int
	nav      string
}

func parseCursorParams(q url.Values, defaultPerPage int) (cursorParams, error) {
	p := cursorParams{perPage: defaultPerPage, nav: strings.ToLower(strings.TrimSpace(q.Get("nav")))}

	if v := strings.TrimSpace(q.Get("per_page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("invalid per_page %q", v)
		}
		p.perPage = n
	}
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid start %q", v)
		}
		p.start, p.hasStart = n, true
	}
	switch p.nav {
	case "", "next", "prev", "current":
	default:
		return p, fmt.Errorf("invalid nav %q: must be one of next, prev, current", p.nav)
	}
	return p, nil
}

// resolve turns the request into a cursor over seq. Without a start or
// with nav=current the page is focused on the month of now.
func resolve[T monthly.Keyed](p cursorParams, seq []T, now time.Time) monthly.Cursor {
	c := monthly.Cursor{StartIndex: p.start, ItemsPerPage: p.perPage}
	switch {
	case p.nav == "next":
		return c.Advance(monthly.Forward, len(seq))
	case p.nav == "prev":
		return c.Advance(monthly.Backward, len(seq))
	case p.nav == "current" || !p.hasStart:
		return monthly.FocusCurrentMonth(seq, now, monthly.NewCursor(p.perPage))
	default:
		return c
	}
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
