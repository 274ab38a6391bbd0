package zbxchart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// FetchResult describes one graph written by FetchGraph
type FetchResult struct {
	GraphID string
	Path    string // empty when streamed
	Bytes   int64
	Err     error
}

var (
	summaryBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	summaryTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	summaryHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	summaryCell   = lipgloss.NewStyle().Padding(0, 1)
	summaryError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
)

// RenderSummary draws a bordered table of fetched graphs
func RenderSummary(results []FetchResult) string {
	rows := make([][]string, 0, len(results))
	failed := map[int]bool{}
	for i, r := range results {
		target := r.Path
		if target == "" {
			target = "stdout"
		}
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed[i] = true
		}
		rows = append(rows, []string{r.GraphID, target, humanBytes(r.Bytes), status})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("GRAPH", "OUTPUT", "SIZE", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return summaryHeader
			case col == 3 && failed[row]:
				return summaryError
			default:
				return summaryCell
			}
		})

	title := summaryTitle.Render(fmt.Sprintf("%d graph(s)", len(results)))
	return summaryBorder.Render(strings.Join([]string{title, t.String()}, "\n"))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
