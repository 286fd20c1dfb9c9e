package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/monthly"
	"finanzas/internal/services"
)

type savingsResponse struct {
	Page monthly.Page[core.SavingMonth] `json:"page"`
}

type finalizeRequest struct {
	Month string `json:"month"`
}

type currenciesResponse struct {
	Month  core.MonthKey        `json:"month"`
	Rate   decimal.Decimal      `json:"exchg_rate"`
	Shares []core.CurrencyShare `json:"shares"`
}

type seriesResponse struct {
	Points []core.SavingPoint `json:"points"`
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	params, err := parseCursorParams(r.URL.Query(), s.itemsPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months, err := s.savings.Fetch(r.Context())
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	writeJSON(w, http.StatusOK, savingsResponse{
		Page: monthly.PageOf(months, resolve(params, months, s.now())),
	})
}

func (s *Server) handleDeleteSaving(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.savings.Delete(r.Context(), id); err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	applog.NewStructuredLogger(loggerFrom(r)).
		LogMutation(r.Context(), applog.OpDelete, services.KindSaving, id, "", "")
	s.respondSavings(w, r)
}

func (s *Server) handleFinalizeSaving(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req finalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := core.ParseMonthKey(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.savings.Finalize(r.Context(), id, month); err != nil {
		fail(w, r, applog.OpFinalize, err)
		return
	}
	applog.NewStructuredLogger(loggerFrom(r)).
		LogMutation(r.Context(), applog.OpFinalize, services.KindSaving, id, "", month.String())
	s.respondSavings(w, r)
}

// respondSavings refetches after a mutation; deleted positions disappear
// because the source no longer returns them.
func (s *Server) respondSavings(w http.ResponseWriter, r *http.Request) {
	months, err := s.savings.Fetch(r.Context())
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	writeJSON(w, http.StatusOK, savingsResponse{
		Page: monthly.PageOf(months, monthly.FocusCurrentMonth(months, s.now(), monthly.NewCursor(s.itemsPerPage))),
	})
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	rate, err := parseRate(r.URL.Query().Get("exchg_rate"), s.rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months, err := s.savings.Fetch(r.Context())
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	now := s.now()
	writeJSON(w, http.StatusOK, currenciesResponse{
		Month:  core.MonthKeyOf(now),
		Rate:   rate,
		Shares: services.CurrencyBreakdown(months, now, rate),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	months, err := s.savings.Fetch(r.Context())
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Points: services.Series(months)})
}
