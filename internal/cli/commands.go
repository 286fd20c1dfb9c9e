package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"finanzas/internal/core"
	"finanzas/internal/export"
	"finanzas/internal/monthly"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

func success(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", boldGreen("✓"), fmt.Sprintf(format, a...))
}

// rate parses the --rate flag, falling back to the configured rate.
func (app *App) rate(flag string) (decimal.Decimal, error) {
	if strings.TrimSpace(flag) == "" {
		return app.rt.Rate, nil
	}
	r, err := core.ParseExchangeRate(flag)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--rate %q: %w", flag, err)
	}
	return r, nil
}

func (app *App) perPage(flag int) int {
	if flag > 0 {
		return flag
	}
	return app.rt.Config.ItemsPerPage
}

// cursor starts at --start when given, otherwise one month before the
// current one.
func cursor[T monthly.Keyed](cmd *cobra.Command, seq []T, start, perPage int, focus bool, app *App) monthly.Cursor {
	if focus || !cmd.Flags().Changed("start") {
		return monthly.FocusCurrentMonth(seq, app.now(), monthly.NewCursor(perPage))
	}
	return monthly.Cursor{StartIndex: start, ItemsPerPage: perPage}
}

func (app *App) balancesCmd() *cobra.Command {
	var (
		rate    string
		perPage int
		start   int
		focus   bool
		month   string
	)
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show income, fixed costs and balance per month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.rate(rate)
			if err != nil {
				return err
			}
			months, err := app.rt.Balances.FetchAndMerge(cmd.Context(), r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			page := monthly.PageOf(months, cursor(cmd, months, start, app.perPage(perPage), focus, app))
			if err := printBalances(out, r, page); err != nil {
				return err
			}
			if month == "" {
				return nil
			}
			key, err := core.ParseMonthKey(month)
			if err != nil {
				return err
			}
			for _, m := range months {
				if m.Date == key {
					return printMonthDetail(out, m)
				}
			}
			return fmt.Errorf("month %s has no balances", key)
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Exchange rate sent to the API (default from config)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Months per page (default from config)")
	cmd.Flags().IntVar(&start, "start", 0, "Index of the first month shown")
	cmd.Flags().BoolVar(&focus, "focus", false, "Start one month before the current month")
	cmd.Flags().StringVar(&month, "month", "", "Also list the items of this month (YYYY-MM)")
	return cmd
}

func (app *App) savingsCmd() *cobra.Command {
	var (
		perPage int
		start   int
		focus   bool
	)
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Show the saving positions per month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			months, err := app.rt.Savings.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			page := monthly.PageOf(months, cursor(cmd, months, start, app.perPage(perPage), focus, app))
			return printSavings(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Months per page (default from config)")
	cmd.Flags().IntVar(&start, "start", 0, "Index of the first month shown")
	cmd.Flags().BoolVar(&focus, "focus", false, "Start one month before the current month")
	return cmd
}

func (app *App) currenciesCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "Split this month's savings by currency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.rate(rate)
			if err != nil {
				return err
			}
			months, err := app.rt.Savings.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			now := app.now()
			return printCurrencies(cmd.OutOrStdout(), core.MonthKeyOf(now), services.CurrencyBreakdown(months, now, r))
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Exchange rate for non-peso positions (default from config)")
	return cmd
}

// findLineItem looks kind's items up by id, or by name when id is 0. The
// snapshot of month wins over other months.
func findLineItem(months []core.MergedMonth, kind string, id int64, name string, month core.MonthKey) (core.LineItem, error) {
	var (
		found core.LineItem
		ok    bool
	)
	for _, m := range months {
		items := m.Income.Items
		if kind == services.KindFixedCost {
			items = m.FixedCost.Items
		}
		for _, it := range items {
			if (id != 0 && it.ID != id) || (id == 0 && it.Name != name) {
				continue
			}
			if !ok || m.Date == month {
				found, ok = it, true
			}
		}
	}
	if !ok {
		return core.LineItem{}, fmt.Errorf("no %s item with id %d or name %q", kind, id, name)
	}
	return found, nil
}

func (app *App) closeOutCmd() *cobra.Command {
	var (
		kind  string
		month string
		id    int64
		name  string
		rate  string
	)
	cmd := &cobra.Command{
		Use:   "close-out",
		Short: "End a recurring income or fixed cost from a month on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != services.KindIncome && kind != services.KindFixedCost {
				return fmt.Errorf("--kind must be %s or %s", services.KindIncome, services.KindFixedCost)
			}
			key, err := core.ParseMonthKey(month)
			if err != nil {
				return err
			}
			if id == 0 && name == "" {
				return errors.New("one of --id or --name is required")
			}
			r, err := app.rate(rate)
			if err != nil {
				return err
			}

			board := services.NewBalanceBoard(app.rt.Balances, r, app.rt.Config.ItemsPerPage)
			if err := board.Reload(cmd.Context()); err != nil {
				return err
			}
			item, err := findLineItem(board.Months(), kind, id, name, key)
			if err != nil {
				return err
			}
			if err := board.CloseOut(cmd.Context(), kind, item, key); err != nil {
				return err
			}
			dateTo, _ := key.AddMonths(-1)
			out := cmd.OutOrStdout()
			success(out, "%s %q cerrado desde %s (date_to %s)", kind, item.Name, key, dateTo)
			return printBalances(out, board.Rate(), board.Page())
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "income or fixedCost")
	cmd.Flags().StringVar(&month, "month", "", "First month without the item (YYYY-MM)")
	cmd.Flags().Int64Var(&id, "id", 0, "Item id")
	cmd.Flags().StringVar(&name, "name", "", "Item name, when the item has no id")
	cmd.Flags().StringVar(&rate, "rate", "", "Exchange rate (default from config)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (app *App) finalizeCmd() *cobra.Command {
	var (
		id    int64
		month string
	)
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Close a flexible saving from a month on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := core.ParseMonthKey(month)
			if err != nil {
				return err
			}
			board := services.NewSavingBoard(app.rt.Savings, app.rt.Config.ItemsPerPage)
			if err := board.Finalize(cmd.Context(), id, key); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success(out, "ahorro %d finalizado desde %s", id, key)
			return printSavings(out, board.Page())
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Saving id")
	cmd.Flags().StringVar(&month, "month", "", "First month without the saving (YYYY-MM)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (app *App) deleteSavingCmd() *cobra.Command {
	var (
		id  int64
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "delete-saving",
		Short: "Delete a fixed-term saving",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := pterm.DefaultInteractiveConfirm.Show(fmt.Sprintf("¿Eliminar el ahorro %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), dimmed("cancelado"))
					return nil
				}
			}
			board := services.NewSavingBoard(app.rt.Savings, app.rt.Config.ItemsPerPage)
			if err := board.Delete(cmd.Context(), id); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success(out, "ahorro %d eliminado", id)
			return printSavings(out, board.Page())
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Saving id")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (app *App) exportCmd() *cobra.Command {
	var (
		format string
		dir    string
		name   string
		rate   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the monthly balances as csv, json, pdf or to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(strings.ToLower(format))
			if err != nil {
				return err
			}
			r, err := app.rate(rate)
			if err != nil {
				return err
			}
			months, err := app.rt.Balances.FetchAndMerge(cmd.Context(), r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if f == export.FormatSheets {
				exp, err := app.rt.SheetsExporter(cmd.Context())
				if err != nil {
					return err
				}
				updated, err := exp.Export(cmd.Context(), months)
				if err != nil {
					return err
				}
				success(out, "%d meses exportados a %s", len(months), updated)
				return nil
			}

			path, err := export.ToFile(f, months, name, dir)
			if err != nil {
				return err
			}
			success(out, "%d meses exportados a %s", len(months), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "csv, json, pdf or sheets")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Output directory (default: current directory)")
	cmd.Flags().StringVarP(&name, "name", "n", "finanzas_balances", "Base name of the report file")
	cmd.Flags().StringVar(&rate, "rate", "", "Exchange rate (default from config)")
	return cmd
}

func (app *App) journalCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List the latest recorded mutations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := storage.NewSQLiteRepository(app.rt.Config.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			entries, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJournal(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of entries")
	return cmd
}

func (app *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the owner of the API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := app.rt.Source.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
