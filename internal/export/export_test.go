package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"finanzas/internal/core"
)

func sampleMonths() []core.MergedMonth {
	side := func(total string, names ...string) core.Side {
		items := []core.LineItem{}
		for _, n := range names {
			items = append(items, core.LineItem{Name: n, Price: decimal.RequireFromString(total)})
		}
		return core.Side{Items: items, Total: decimal.RequireFromString(total)}
	}
	return []core.MergedMonth{
		{Date: "2024-01", Income: side("1000", "Sueldo"), FixedCost: side("400.5", "Alquiler")},
		{Date: "2024-02", Income: core.EmptySide(), FixedCost: side("200", "Luz")},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleMonths()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"month", "income", "fixed_cost", "balance"},
		{"2024-01", "1000.00", "400.50", "599.50"},
		{"2024-02", "0.00", "200.00", "-200.00"},
	}, records)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMonths()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2024-02", got[1]["date"])
	assert.Contains(t, got[1], "fixedCost")
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "Balances", sampleMonths()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := ToFile(FormatCSV, sampleMonths(), "balances", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "balances_"))
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-01,1000.00")

	_, err = ToFile(FormatSheets, sampleMonths(), "balances", dir)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestSheetsExport(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
		updated  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method)
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &updated)
			_, _ = io.WriteString(w, `{"updatedRange":"'Balances'!A1:D3","updatedRows":3}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	exp, err := NewSheetsExporter(context.Background(), "sheet-id", "",
		goption.WithHTTPClient(srv.Client()), goption.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	rng, err := exp.Export(context.Background(), sampleMonths())
	require.NoError(t, err)
	assert.Equal(t, "'Balances'!A1:D3", rng)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, requests)
	values, ok := updated["values"].([]any)
	require.True(t, ok)
	assert.Len(t, values, 3)
}

func TestCredentialsOption(t *testing.T) {
	_, err := CredentialsOption("", "")
	assert.Error(t, err)
	_, err = CredentialsOption("", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	opt, err := CredentialsOption(`{"type":"service_account"}`, "")
	require.NoError(t, err)
	assert.NotNil(t, opt)
}

func TestNewSheetsExporterNeedsSpreadsheet(t *testing.T) {
	_, err := NewSheetsExporter(context.Background(), "", "x")
	assert.Error(t, err)
}
