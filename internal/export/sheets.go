package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
)

// SheetsExporter replaces the content of one sheet with the merged series.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// CredentialsOption builds the service-account client option, preferring
// inline JSON over a file path.
func CredentialsOption(serviceAccountJSON, serviceAccountFile string) (goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(serviceAccountJSON) != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case strings.TrimSpace(serviceAccountFile) != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	return goption.WithCredentialsJSON(credentialsJSON), nil
}

func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if sheetName == "" {
		sheetName = "Balances"
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// Export clears the sheet and writes the header plus one row per month.
// It returns the range Google reports as updated.
func (e *SheetsExporter) Export(ctx context.Context, months []core.MergedMonth) (string, error) {
	whole := fmt.Sprintf("'%s'!A:D", e.sheetName)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, whole, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(months)+1)
	values = append(values, toInterfaces(Header))
	for _, row := range Rows(months) {
		values = append(values, toInterfaces(row))
	}

	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", e.sheetName), &gsheet.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update sheet: %w", err)
	}

	slog.InfoContext(ctx, "Exported balances to Google Sheets",
		"spreadsheet_id", e.spreadsheetID,
		"range", resp.UpdatedRange,
		"rows", resp.UpdatedRows)
	return resp.UpdatedRange, nil
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
