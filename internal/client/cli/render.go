package cli

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	activeStyle = cellStyle.Foreground(lipgloss.Color("2"))
)

// renderTimers draws ts as a table. The full form adds end time and
// duration columns; the short form shows how long each timer has run.
func renderTimers(ts []wire.Timer, full bool, now time.Time) string {
	if len(ts) == 0 {
		if full {
			return "No timers yet."
		}
		return "No active timers."
	}

	headers := []string{"ID", "Description", "Started"}
	if full {
		headers = append(headers, "Ended", "Duration")
	} else {
		headers = append(headers, "Running for")
	}

	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		row := []string{strconv.FormatInt(t.ID, 10), t.Description, formatStamp(t.Start)}
		switch {
		case !full:
			row = append(row, formatMillis(now.UnixMilli()-t.Start))
		case t.Active:
			row = append(row, "-", "running")
		default:
			row = append(row, formatStamp(*t.End), formatMillis(*t.Duration))
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case full && ts[row].Active:
				return activeStyle
			default:
				return cellStyle
			}
		})
	return tbl.String()
}

func formatStamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}

func formatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
