package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/monthly"
	"finanzas/internal/storage"
)

var (
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	boldRed   = color.New(color.FgRed, color.Bold).SprintFunc()
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	dimmed    = color.New(color.Faint).SprintFunc()
)

// renderTable writes a boxed table with a header row.
func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// signed colours an amount by its sign.
func signed(d decimal.Decimal) string {
	s := core.FormatAmount(d)
	switch {
	case d.IsNegative():
		return boldRed(s)
	case d.IsPositive():
		return boldGreen(s)
	default:
		return s
	}
}

func pageFooter[T any](w io.Writer, p monthly.Page[T]) {
	if p.Length == 0 {
		fmt.Fprintln(w, dimmed("sin datos"))
		return
	}
	first := min(p.Start+1, p.Length)
	last := min(p.Start+len(p.Items), p.Length)
	nav := ""
	if p.HasPrev {
		nav += " « anterior"
	}
	if p.HasNext {
		nav += " siguiente »"
	}
	fmt.Fprintf(w, "%s%s\n", dimmed(fmt.Sprintf("meses %d-%d de %d", first, last, p.Length)), dimmed(nav))
}

func printBalances(w io.Writer, rate decimal.Decimal, p monthly.Page[core.MergedMonth]) error {
	fmt.Fprintf(w, "%s %s\n", boldCyan("Balances"), dimmed("(cotización "+rate.String()+")"))
	data := pterm.TableData{{"Mes", "Ingresos", "Gastos fijos", "Balance"}}
	for _, m := range p.Items {
		data = append(data, []string{
			m.Date.String(),
			core.FormatAmount(m.Income.Total),
			core.FormatAmount(m.FixedCost.Total),
			signed(m.Balance()),
		})
	}
	if err := renderTable(w, data); err != nil {
		return err
	}
	pageFooter(w, p)
	return nil
}

// printMonthDetail lists the items of one merged month, with the ids used
// by close-out.
func printMonthDetail(w io.Writer, m core.MergedMonth) error {
	data := pterm.TableData{{"Tipo", "ID", "Nombre", "Importe", "Cuota", "Hasta"}}
	add := func(kind string, items []core.LineItem) {
		for _, it := range items {
			data = append(data, []string{
				kind,
				strconv.FormatInt(it.ID, 10),
				it.Name,
				core.FormatAmount(it.Price),
				it.Installment,
				it.DateTo.String(),
			})
		}
	}
	add("income", m.Income.Items)
	add("fixedCost", m.FixedCost.Items)
	fmt.Fprintln(w, boldCyan(m.Date.String()))
	return renderTable(w, data)
}

func printSavings(w io.Writer, p monthly.Page[core.SavingMonth]) error {
	data := pterm.TableData{{"Mes", "ID", "Nombre", "Tipo", "Moneda", "Invertido", "Obtenido", "TNA"}}
	for _, m := range p.Items {
		for _, it := range m.Saving {
			data = append(data, []string{
				m.Date.String(),
				strconv.FormatInt(it.ID, 10),
				it.Name,
				it.Type,
				it.Currency(),
				core.FormatAmount(it.Invested),
				core.FormatAmount(it.Obtained),
				it.TNA.String(),
			})
		}
	}
	fmt.Fprintln(w, boldCyan("Ahorros"))
	if err := renderTable(w, data); err != nil {
		return err
	}
	pageFooter(w, p)
	return nil
}

func printCurrencies(w io.Writer, month core.MonthKey, shares []core.CurrencyShare) error {
	fmt.Fprintf(w, "%s %s\n", boldCyan("Ahorros por moneda"), dimmed(month.String()))
	if len(shares) == 0 {
		fmt.Fprintln(w, dimmed("sin ahorros este mes"))
		return nil
	}
	data := pterm.TableData{{"Moneda", "Valor", "%"}}
	for _, s := range shares {
		data = append(data, []string{s.Ccy, core.FormatAmount(s.Value), s.Percent.String() + "%"})
	}
	return renderTable(w, data)
}

func printJournal(w io.Writer, entries []storage.JournalEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimmed("el journal está vacío"))
		return nil
	}
	data := pterm.TableData{{"Fecha", "Tipo", "Operación", "ID", "Nombre", "Mes", "Hasta"}}
	for _, e := range entries {
		data = append(data, []string{
			e.OccurredAt.Local().Format("2006-01-02 15:04"),
			e.Kind,
			e.Operation,
			strconv.FormatInt(e.ItemID, 10),
			e.ItemName,
			e.Month,
			e.DateTo,
		})
	}
	return renderTable(w, data)
}

func printUser(w io.Writer, u core.User) {
	fmt.Fprintf(w, "%s %s", boldCyan(u.Username), dimmed("#"+strconv.FormatInt(u.ID, 10)))
	if u.Email != "" {
		fmt.Fprintf(w, " <%s>", u.Email)
	}
	fmt.Fprintln(w)
}
