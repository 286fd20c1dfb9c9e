package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"finanzas/internal/export"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

const defaultJournalLimit = 20

type sheetsResponse struct {
	UpdatedRange string `json:"updated_range"`
}

type journalResponse struct {
	Entries []storage.JournalEntry `json:"entries"`
}

// handleExport downloads the merged series, or pushes it to the
// configured spreadsheet for format=sheets.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if raw == "" {
		raw = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if format == export.FormatSheets && s.sheets == nil {
		writeError(w, http.StatusBadRequest, "sheets export is not configured")
		return
	}
	rate, err := parseRate(q.Get("exchg_rate"), s.rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	months, err := s.balances.FetchAndMerge(r.Context(), rate)
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}

	if format == export.FormatSheets {
		updated, err := s.sheets.Export(r.Context(), months)
		if err != nil {
			fail(w, r, applog.OpExport, err)
			return
		}
		writeJSON(w, http.StatusOK, sheetsResponse{UpdatedRange: updated})
		return
	}

	// Rendered up front so a failure can still change the status.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, months); err != nil {
		loggerFrom(r).ErrorContext(r.Context(), "Export rendering failed",
			applog.FieldFormat, format, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="balances.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal is not configured")
		return
	}
	limit := defaultJournalLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		loggerFrom(r).ErrorContext(r.Context(), "Journal read failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	if entries == nil {
		entries = []storage.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, journalResponse{Entries: entries})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.CurrentUser(r.Context())
	if err != nil {
		fail(w, r, applog.OpFetch, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
