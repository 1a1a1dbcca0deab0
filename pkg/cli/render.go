package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"invoice-analytics/internal/domain"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB")).MarginTop(1)
	infoStyle    = lipgloss.NewStyle().Faint(true)
	sqlLabel     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	sqlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0F766E")).PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
)

// logPrinter writes conversation log entries as they arrive. Observers may
// be called from more than one goroutine.
type logPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func newLogPrinter(w io.Writer) *logPrinter {
	return &logPrinter{w: w}
}

func (p *logPrinter) observe(s domain.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s.Log) < p.printed {
		p.printed = 0
	}
	for _, e := range s.Log[p.printed:] {
		_, _ = fmt.Fprintln(p.w, renderLogEntry(e))
	}
	p.printed = len(s.Log)
}

func renderLogEntry(e domain.LogEntry) string {
	switch e.Kind {
	case domain.LogInfo:
		return infoStyle.Render(e.Text)
	case domain.LogSQL:
		return sqlLabel.Render("SQL") + "\n" + sqlStyle.Render(e.SQL)
	case domain.LogError:
		return errorStyle.Render("Error: " + e.Text)
	default:
		return e.Text
	}
}

// printSessionResult prints the result table and row counts of a finished
// session.
func printSessionResult(w io.Writer, s domain.Session) {
	if len(s.ResultColumns) == 0 {
		return
	}
	printSection(w, "Result")
	rows := make([][]string, 0, len(s.ResultRows))
	for _, r := range s.ResultRows {
		cells := make([]string, len(s.ResultColumns))
		for i, c := range s.ResultColumns {
			cells[i] = cellText(r[c])
		}
		rows = append(rows, cells)
	}
	printTable(w, s.ResultColumns, rows)

	summary := fmt.Sprintf("%d rows received", len(s.ResultRows))
	if s.ResultRowCount != nil && *s.ResultRowCount != len(s.ResultRows) {
		summary += fmt.Sprintf(", %d reported", *s.ResultRowCount)
	}
	_, _ = fmt.Fprintln(w, infoStyle.Render(summary+"."))
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(string(b))
	}
}
