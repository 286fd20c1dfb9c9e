package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"finanzas/internal/core"
	"finanzas/internal/monthly"
	"finanzas/internal/services"
)

const (
	optPrev    = "« Anterior"
	optCurrent = "Actual"
	optNext    = "Siguiente »"
	optPerPage = "Items por página"
	optRate    = "Cotización"
	optCcy     = "Monedas"
	optQuit    = "Salir"
)

// prompter is the interactive input used by browse.
type prompter interface {
	Select(options []string) (string, error)
	Input(prompt string) (string, error)
}

type ptermPrompter struct{}

func (ptermPrompter) Select(options []string) (string, error) {
	return pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText("Navegar").
		Show()
}

func (ptermPrompter) Input(prompt string) (string, error) {
	return pterm.DefaultInteractiveTextInput.Show(prompt)
}

// pager is what browse needs from a board.
type pager[T monthly.Keyed] interface {
	Next() monthly.Page[T]
	Prev() monthly.Page[T]
	FocusCurrent() monthly.Page[T]
	SetItemsPerPage(n int) monthly.Page[T]
	Page() monthly.Page[T]
}

func (app *App) browseCmd() *cobra.Command {
	var savings bool
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page interactively through balances or savings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if savings {
				return app.browseSavings(cmd.Context(), cmd.OutOrStdout(), ptermPrompter{})
			}
			return app.browseBalances(cmd.Context(), cmd.OutOrStdout(), ptermPrompter{})
		},
	}
	cmd.Flags().BoolVarP(&savings, "savings", "s", false, "Browse savings instead of balances")
	return cmd
}

// navigate applies one of the shared menu options. It reports false for
// options it does not handle.
func navigate[T monthly.Keyed](b pager[T], p prompter, choice string) (bool, error) {
	switch choice {
	case optPrev:
		b.Prev()
	case optNext:
		b.Next()
	case optCurrent:
		b.FocusCurrent()
	case optPerPage:
		raw, err := p.Input("Items por página")
		if err != nil {
			return true, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return true, fmt.Errorf("items por página: %q no es un entero positivo", raw)
		}
		b.SetItemsPerPage(n)
	default:
		return false, nil
	}
	return true, nil
}

func (app *App) browseBalances(ctx context.Context, w io.Writer, p prompter) error {
	board := services.NewBalanceBoard(app.rt.Balances, app.rt.Rate, app.rt.Config.ItemsPerPage)
	if err := board.Reload(ctx); err != nil {
		return err
	}
	options := []string{optPrev, optCurrent, optNext, optPerPage, optRate, optQuit}
	for {
		if err := printBalances(w, board.Rate(), board.Page()); err != nil {
			return err
		}
		choice, err := p.Select(options)
		if err != nil {
			return err
		}
		if choice == optQuit {
			return nil
		}
		handled, err := navigate[core.MergedMonth](board, p, choice)
		if err != nil {
			fmt.Fprintln(w, boldRed(err.Error()))
			continue
		}
		if handled || choice != optRate {
			continue
		}
		raw, err := p.Input("Cotización")
		if err != nil {
			return err
		}
		rate, err := core.ParseExchangeRate(raw)
		if err != nil {
			fmt.Fprintln(w, boldRed(err.Error()))
			continue
		}
		// A failed reload keeps the previous months on screen.
		if err := board.SetExchangeRate(ctx, rate); err != nil {
			fmt.Fprintln(w, boldRed(err.Error()))
		}
	}
}

func (app *App) browseSavings(ctx context.Context, w io.Writer, p prompter) error {
	board := services.NewSavingBoard(app.rt.Savings, app.rt.Config.ItemsPerPage)
	if err := board.Reload(ctx); err != nil {
		return err
	}
	options := []string{optPrev, optCurrent, optNext, optPerPage, optCcy, optQuit}
	for {
		if err := printSavings(w, board.Page()); err != nil {
			return err
		}
		choice, err := p.Select(options)
		if err != nil {
			return err
		}
		if choice == optQuit {
			return nil
		}
		handled, err := navigate[core.SavingMonth](board, p, choice)
		if err != nil {
			fmt.Fprintln(w, boldRed(err.Error()))
			continue
		}
		if !handled && choice == optCcy {
			now := app.now()
			if err := printCurrencies(w, core.MonthKeyOf(now), board.CurrencyBreakdown(now, app.rt.Rate)); err != nil {
				return err
			}
		}
	}
}
