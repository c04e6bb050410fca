package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Console implementa ports.Notifier escribiendo informes legibles a un writer.
type Console struct {
	out       io.Writer
	table     bool // incluir el trade log en el informe
	maxTrades int
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, maxTrades: 25}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, maxTrades: 25}
}

// Notify imprime los resultados: informe completo para un run, tabla
// comparativa cuando hay varios.
func (c *Console) Notify(_ context.Context, results []domain.BacktestResult) error {
	switch len(results) {
	case 0:
		fmt.Fprintln(c.out, "no backtest results")
	case 1:
		c.printSingle(results[0])
	default:
		c.printComparison(results)
	}
	return nil
}

// printSingle imprime el informe completo de un run.
func (c *Console) printSingle(r domain.BacktestResult) {
	fmt.Fprintf(c.out, "\n=== BACKTEST — %s (seed %d) ===\n", r.Strategy, r.Seed)
	fmt.Fprintf(c.out, "  Run:     %s\n", r.RunID)
	fmt.Fprintf(c.out, "  Period:  %s → %s\n",
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	fmt.Fprintf(c.out, "  Capital: $%.2f → $%.2f\n", r.InitialCapital, r.Final.Equity)

	m := r.Metrics
	fmt.Fprintf(c.out, "\n  Total return:     %+.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(c.out, "  Max drawdown:     %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(c.out, "  Win rate:         %.1f%%\n", m.WinRate*100)
	fmt.Fprintf(c.out, "  Avg return/trade: %+.2f%%\n", m.AvgReturnPerTrade*100)
	fmt.Fprintf(c.out, "  Sharpe:           %s\n", sharpeLabel(m.SharpeRatio))
	fmt.Fprintf(c.out, "  Trades:           %d executed, %d rejected\n",
		m.TotalTrades, m.RejectedTrades)

	if c.table {
		c.printTrades(r)
	}
	fmt.Fprintln(c.out)
}

// printTrades imprime los últimos trades del log (ejecutados y rechazados).
func (c *Console) printTrades(r domain.BacktestResult) {
	trades := r.Trades
	if len(trades) == 0 {
		fmt.Fprintln(c.out, "\n  (no trades)")
		return
	}
	if len(trades) > c.maxTrades {
		fmt.Fprintf(c.out, "\n  Trade log (last %d of %d):\n", c.maxTrades, len(trades))
		trades = trades[len(trades)-c.maxTrades:]
	} else {
		fmt.Fprintf(c.out, "\n  Trade log (%d):\n", len(trades))
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Market", "Outcome", "Side", "Type", "Size", "Fill", "Fee", "PnL", "Status")

	for _, t := range trades {
		status := string(t.Status)
		if t.Status == domain.TradeRejected {
			status = "REJECTED: " + rejectCategory(t.RejectReason)
		} else if t.Resolution {
			status = "RESOLVED"
		}
		table.Append(
			t.Timestamp.Format("01-02 15:04"),
			truncate(t.MarketID, 18),
			t.Outcome,
			string(t.Side),
			t.Type.String(),
			fmt.Sprintf("%.1f", t.RequestedSize),
			fmt.Sprintf("%.4f", t.FillPrice),
			fmt.Sprintf("%.4f", t.Fee),
			fmt.Sprintf("%+.2f", t.RealizedPnL),
			status,
		)
	}
	table.Render()
}

// printComparison imprime la tabla comparativa de varios runs.
func (c *Console) printComparison(results []domain.BacktestResult) {
	fmt.Fprintf(c.out, "\n=== STRATEGY COMPARISON — %d runs ===\n", len(results))

	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Seed", "Return", "Drawdown", "Win rate", "Sharpe", "Trades", "Rejected", "Final $")

	best := -1
	bestReturn := 0.0
	for i, r := range results {
		if best == -1 || r.Metrics.TotalReturn > bestReturn {
			best, bestReturn = i, r.Metrics.TotalReturn
		}
	}

	for i, r := range results {
		name := r.Strategy
		if i == best {
			name = "* " + name
		}
		m := r.Metrics
		table.Append(
			name,
			fmt.Sprintf("%d", r.Seed),
			fmt.Sprintf("%+.2f%%", m.TotalReturn*100),
			fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
			fmt.Sprintf("%.1f%%", m.WinRate*100),
			sharpeLabel(m.SharpeRatio),
			fmt.Sprintf("%d", m.TotalTrades),
			fmt.Sprintf("%d", m.RejectedTrades),
			fmt.Sprintf("$%.2f", r.Final.Equity),
		)
	}
	table.Render()

	if best >= 0 {
		fmt.Fprintf(c.out, "  * best total return: %s (%+.2f%%)\n\n",
			results[best].Strategy, bestReturn*100)
	}
}

// sharpeLabel formatea el Sharpe, distinguiendo indefinido de cero.
func sharpeLabel(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *s)
}

// rejectCategory extrae la categoría del motivo de rechazo ("InsufficientFunds: ..." → "InsufficientFunds").
func rejectCategory(reason string) string {
	if idx := strings.Index(reason, ":"); idx > 0 {
		return reason[:idx]
	}
	return reason
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
