package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	sepStyle    = lipgloss.NewStyle().Faint(true)

	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

// tierStyle 风险等级对应的颜色
func tierStyle(tier etprediction.RiskTier) *lipgloss.Style {
	switch tier {
	case etprediction.TierHigh:
		return &highStyle
	case etprediction.TierMedium:
		return &mediumStyle
	default:
		return &lowStyle
	}
}

type tableRow struct {
	cells []string
	style *lipgloss.Style // nil 表示默认样式
}

// table 终端表格
type table struct {
	title   string
	headers []string
	rows    []tableRow
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) addRow(style *lipgloss.Style, cells ...string) {
	t.rows = append(t.rows, tableRow{cells: cells, style: style})
}

func (t *table) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row.cells {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(titleStyle.Render(t.title))
		sb.WriteString("\n")
	}

	t.writeLine(&sb, t.headers, headerStyle, widths)
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total)))

	for _, row := range t.rows {
		sb.WriteString("\n")
		style := cellStyle
		if row.style != nil {
			style = row.style.Padding(0, 1)
		}
		t.writeLine(&sb, row.cells, style, widths)
	}
	return sb.String()
}

func (t *table) writeLine(sb *strings.Builder, cells []string, style lipgloss.Style, widths []int) {
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		sb.WriteString(style.Width(widths[i]).Render(cell))
		if i < len(cells)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
}
