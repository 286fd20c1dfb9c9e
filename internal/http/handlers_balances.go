package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/monthly"
)

// monthView is a merged month with its computed balance.
type monthView struct {
	core.MergedMonth
	Balance decimal.Decimal `json:"balance"`
}

type balancesResponse struct {
	Rate decimal.Decimal         `json:"exchg_rate"`
	Page monthly.Page[monthView] `json:"page"`
}

type closeOutRequest struct {
	Kind  string        `json:"kind"`
	Month string        `json:"month"`
	Item  core.LineItem `json:"item"`
	Rate  string        `json:"exchg_rate"`
}

type closeOutResponse struct {
	Closed bool              `json:"closed"`
	DateTo core.MonthKey     `json:"date_to"`
	Board  *balancesResponse `json:"board,omitempty"`
}

func views(months []core.MergedMonth) []monthView {
	out := make([]monthView, len(months))
	for i, m := range months {
		out[i] = monthView{MergedMonth: m, Balance: m.Balance()}
	}
	return out
}

// handleBalances serves one page of the merged series.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := parseRate(q.Get("exchg_rate"), s.rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := parseCursorParams(q, s.itemsPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	months, err := s.balances.FetchAndMerge(r.Context(), rate)
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	seq := views(months)
	writeJSON(w, http.StatusOK, balancesResponse{
		Rate: rate,
		Page: monthly.PageOf(seq, resolve(params, seq, s.now())),
	})
}

// handleCloseOut ends a recurring item from the given month on and answers
// with the refetched board, focused on the current month.
func (s *Server) handleCloseOut(w http.ResponseWriter, r *http.Request) {
	var req closeOutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := core.ParseMonthKey(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Item.Name) == "" {
		writeError(w, http.StatusBadRequest, "item name is required")
		return
	}
	rate, err := parseRate(req.Rate, s.rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.balances.CloseOut(r.Context(), req.Kind, req.Item, month); err != nil {
		fail(w, r, applog.OpCloseOut, err)
		return
	}
	dateTo, _ := month.AddMonths(-1)
	applog.NewStructuredLogger(loggerFrom(r)).
		LogMutation(r.Context(), applog.OpCloseOut, req.Kind, req.Item.ID, req.Item.Name, month.String())

	resp := closeOutResponse{Closed: true, DateTo: dateTo}
	months, err := s.balances.FetchAndMerge(r.Context(), rate)
	if err != nil {
		loggerFrom(r).WarnContext(r.Context(), "Refetch after close-out failed", applog.FieldError, err)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	seq := views(months)
	resp.Board = &balancesResponse{
		Rate: rate,
		Page: monthly.PageOf(seq, monthly.FocusCurrentMonth(seq, s.now(), monthly.NewCursor(s.itemsPerPage))),
	}
	writeJSON(w, http.StatusOK, resp)
}
