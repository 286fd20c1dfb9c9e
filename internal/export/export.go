// Package export writes the merged monthly series as CSV, JSON, PDF or to a
// Google spreadsheet.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"finanzas/internal/core"
)

type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatPDF    Format = "pdf"
	FormatSheets Format = "sheets"
)

// ParseFormat accepts the file formats; sheets is handled by SheetsExporter.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatPDF, FormatSheets:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Header is the column layout shared by CSV and Sheets.
var Header = []string{"month", "income", "fixed_cost", "balance"}

// Rows renders one row per month with plain two-decimal amounts.
func Rows(months []core.MergedMonth) [][]string {
	rows := make([][]string, 0, len(months))
	for _, m := range months {
		rows = append(rows, []string{
			m.Date.String(),
			m.Income.Total.StringFixed(2),
			m.FixedCost.Total.StringFixed(2),
			m.Balance().StringFixed(2),
		})
	}
	return rows
}

func WriteCSV(w io.Writer, months []core.MergedMonth) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := writer.WriteAll(Rows(months)); err != nil {
		return fmt.Errorf("write CSV rows: %w", err)
	}
	return nil
}

func WriteJSON(w io.Writer, months []core.MergedMonth) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(months); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}

// WritePDF renders a one-table report of the months.
func WritePDF(w io.Writer, title string, months []core.MergedMonth) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFillColor(40, 40, 40)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  "+title), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	widths := []float64{40, 50, 50, 50}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(50, 50, 50)
	for i, h := range []string{"Mes", "Ingresos", "Gastos fijos", "Balance"} {
		pdf.CellFormat(widths[i], 8, tr(h), "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, m := range months {
		balance := m.Balance()
		cells := []string{
			m.Date.String(),
			core.FormatAmount(m.Income.Total),
			core.FormatAmount(m.FixedCost.Total),
			core.FormatAmount(balance),
		}
		for i, c := range cells {
			if i == 3 && balance.IsNegative() {
				pdf.SetTextColor(192, 0, 0)
			}
			pdf.CellFormat(widths[i], 7, tr(c), "", 0, "R", false, 0, "")
			pdf.SetTextColor(50, 50, 50)
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

// Write dispatches to the file writer for format.
func Write(w io.Writer, format Format, months []core.MergedMonth) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, months)
	case FormatJSON:
		return WriteJSON(w, months)
	case FormatPDF:
		return WritePDF(w, "Balances", months)
	default:
		return fmt.Errorf("format %q is not a file format", format)
	}
}

// ToFile writes the months to a timestamped file in dir and returns its
// absolute path.
func ToFile(format Format, months []core.MergedMonth, base, dir string) (string, error) {
	outputFilename, err := generateFilename(base, dir, string(format))
	if err != nil {
		return "", err
	}
	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", format, err)
	}
	if err := Write(file, format, months); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", outputFilename, err)
	}
	return filepath.Abs(outputFilename)
}

func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, timestamp, ext)), nil
}
