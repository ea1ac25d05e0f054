// Package report renders the derived dataset as a styled terminal report.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// printer formats numbers with English thousand separators.
var printer = message.NewPrinter(language.English)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// EmptyMessage is shown when no record matches.
const EmptyMessage = "No records match the selected years and filters."

// Options select what the report covers.
type Options struct {
	View      domain.View
	Selection domain.Selection
	TopN      int
}

// Render writes the report for ds to w. Aggregates are recomputed over the
// selected records.
func Render(w io.Writer, ds domain.Dataset, opts Options) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Emissions impact report"))
	sb.WriteString("\n")
	writeField(&sb, "Source", ds.Source)
	writeField(&sb, "Run", ds.RunID)
	if !ds.GeneratedAt.IsZero() {
		writeField(&sb, "Generated", ds.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	}
	writeField(&sb, "Rows", printer.Sprintf("%d read, %d dropped, %d warnings", ds.RowsRead, ds.RowsDropped, len(ds.Warnings)))
	sb.WriteString("\n")

	records := opts.Selection.Apply(ds.Records)
	if ds.Empty || len(records) == 0 {
		sb.WriteString(mutedStyle.Render(EmptyMessage))
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	topN := opts.TopN
	if topN < 1 {
		topN = domain.DefaultTopN
	}
	stats, err := domain.SummarizeTop(records, topN)
	if err != nil {
		return err
	}

	writeKeyMetrics(&sb, domain.ComputeKeyMetrics(records, opts.View))
	writeAggregates(&sb, stats)
	writeYears(&sb, stats.EmissionsByYear)
	writeTop(&sb, stats.TopClassifications)

	_, err = io.WriteString(w, sb.String())
	return err
}

// RenderGases writes the gas impact table for gc.
func RenderGases(w io.Writer, gc domain.GasConstants) error {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Greenhouse gas impact"))
	sb.WriteString("\n")

	for _, info := range domain.GasImpactInfo(gc) {
		var body strings.Builder
		body.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%s)", info.Name, info.Gas)))
		body.WriteString("\n")
		writeField(&body, "GWP", printer.Sprintf("%.0f", info.GWP))
		writeField(&body, "Damage factor", printer.Sprintf("%.0f/10", info.DamageFactor))
		writeField(&body, "Lifetime", info.Lifetime)
		writeField(&body, "Sources", info.Sources)
		writeField(&body, "Impact", info.Impact)
		sb.WriteString(boxStyle.Render(strings.TrimSuffix(body.String(), "\n")))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeKeyMetrics(sb *strings.Builder, m domain.KeyMetrics) {
	sb.WriteString(sectionStyle.Render("Key metrics (" + m.View.Label() + ")"))
	sb.WriteString("\n")
	writeField(sb, "Total", FormatAmount(m.Total))
	for _, g := range domain.Gases {
		writeField(sb, string(g), FormatAmount(m.Gas.Get(g)))
	}
	sb.WriteString("\n")
}

func writeAggregates(sb *strings.Builder, s domain.AggregateStats) {
	sb.WriteString(sectionStyle.Render("Weighted totals"))
	sb.WriteString("\n")
	writeField(sb, "GWP-weighted", FormatAmount(s.TotalGWPWeighted))
	writeField(sb, "Damage-weighted", FormatAmount(s.TotalDamageWeighted))
	writeField(sb, "Combined impact", FormatAmount(s.TotalCombinedImpact))
	writeField(sb, "Mean share", printer.Sprintf("CO2 %.1f%%  CH4 %.1f%%  N2O %.1f%%",
		s.MeanContributionPct.CO2, s.MeanContributionPct.CH4, s.MeanContributionPct.N2O))
	sb.WriteString("\n")
}

func writeYears(sb *strings.Builder, years []domain.YearGasTotals) {
	sb.WriteString(sectionStyle.Render("GWP-weighted emissions by year"))
	sb.WriteString("\n")
	rows := make([][]string, len(years))
	for i, y := range years {
		rows[i] = []string{
			fmt.Sprint(y.Year),
			FormatAmount(y.GWPWeighted.CO2),
			FormatAmount(y.GWPWeighted.CH4),
			FormatAmount(y.GWPWeighted.N2O),
			FormatAmount(y.TotalGWPWeighted),
		}
	}
	writeTable(sb, []string{"Year", "CO2", "CH4", "N2O", "Total"}, rows, -1)
	sb.WriteString("\n")
}

func writeTop(sb *strings.Builder, top []domain.ClassificationTotals) {
	sb.WriteString(sectionStyle.Render(fmt.Sprintf("Top %d classifications", len(top))))
	sb.WriteString("\n")
	rows := make([][]string, len(top))
	for i, c := range top {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			c.Classification,
			FormatAmount(c.TotalGWPWeighted),
			FormatAmount(c.CombinedImpact),
		}
	}
	writeTable(sb, []string{"#", "Classification", "GWP-weighted", "Combined"}, rows, 1)
}

// writeTable left-aligns textCol and right-aligns the other columns. A
// negative textCol right-aligns everything.
func writeTable(sb *strings.Builder, headers []string, rows [][]string, textCol int) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if i == textCol {
				parts[i] = c + pad
			} else {
				parts[i] = pad + c
			}
		}
		sb.WriteString("  ")
		sb.WriteString(style.Render(strings.Join(parts, "  ")))
		sb.WriteString("\n")
	}

	line(headers, labelStyle)
	for _, row := range rows {
		line(row, lipgloss.NewStyle())
	}
}

func writeField(sb *strings.Builder, label, value string) {
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label+":")))
	sb.WriteString(valueStyle.Render(value))
	sb.WriteString("\n")
}

// FormatAmount renders a CO2-equivalent quantity with thousand separators and
// no decimals.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// FormatPercent renders a share with one decimal.
func FormatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}
