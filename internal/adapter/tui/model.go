// Package tui is the interactive terminal dashboard over a derived dataset.
package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/couchcryptid/emissions-impact-etl/internal/report"
)

// Tab is the table shown below the key metrics.
type Tab int

const (
	TabYears Tab = iota
	TabClassifications
	TabStats
	numTabs
)

func (t Tab) String() string {
	switch t {
	case TabClassifications:
		return "Classifications"
	case TabStats:
		return "Statistics"
	default:
		return "By year"
	}
}

var views = []domain.View{domain.ViewOriginal, domain.ViewGWP, domain.ViewCombined}

const (
	keyQuit       = "q"
	keyCtrlC      = "ctrl+c"
	keyView       = "v"
	keyIndustrial = "i"
	keyYear       = "y"
	keyTab        = "tab"

	defaultHeight = 24
	tableChrome   = 12
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	metricStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	tabStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

// Options seed the dashboard state.
type Options struct {
	View       domain.View
	Industrial bool
	Years      []int // empty shows every year
	TopN       int
}

// Model is the Bubble Tea model of the dashboard.
type Model struct {
	ds domain.Dataset

	// years is what the y key cycles through: the selected years, or every
	// year in the data when none were selected.
	years    []int
	selected []int

	view       domain.View
	industrial bool
	yearIdx    int // -1 means every year in years
	tab        Tab
	topN       int

	records []domain.DerivedRecord
	table   table.Model
	height  int
}

// New creates a dashboard model for ds.
func New(ds domain.Dataset, opts Options) Model {
	if opts.View == "" {
		opts.View = domain.ViewOriginal
	}
	if opts.TopN < 1 {
		opts.TopN = domain.DefaultTopN
	}

	m := Model{
		ds:         ds,
		years:      domain.DatasetInfo(ds.Records).Years,
		view:       opts.View,
		industrial: opts.Industrial,
		yearIdx:    -1,
		topN:       opts.TopN,
		height:     defaultHeight,
	}
	if len(opts.Years) > 0 {
		m.selected = slices.Compact(slices.Sorted(slices.Values(opts.Years)))
		m.years = m.selected
	}

	m.table = table.New(table.WithFocused(true), table.WithHeight(m.tableHeight()))
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(lipgloss.Color("33"))
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	m.table.SetStyles(s)

	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyView:
			m.view = nextView(m.view)
			m.refresh()
			return m, nil
		case keyIndustrial:
			m.industrial = !m.industrial
			m.refresh()
			return m, nil
		case keyYear:
			m.yearIdx++
			if m.yearIdx >= len(m.years) {
				m.yearIdx = -1
			}
			m.refresh()
			return m, nil
		case keyTab:
			m.tab = (m.tab + 1) % numTabs
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Emissions impact dashboard"))
	sb.WriteString("  ")
	sb.WriteString(labelStyle.Render(m.filterLine()))
	sb.WriteString("\n\n")

	if len(m.records) == 0 {
		sb.WriteString(mutedStyle.Render(report.EmptyMessage))
		sb.WriteString("\n\n")
		sb.WriteString(helpStyle.Render(helpText))
		return sb.String()
	}

	sb.WriteString(m.metricsView())
	sb.WriteString("\n")
	sb.WriteString(tabStyle.Render(m.tab.String()))
	sb.WriteString("\n")
	sb.WriteString(m.table.View())
	sb.WriteString("\n")
	if m.tab == TabStats {
		sb.WriteString(labelStyle.Render(correlationLine(m.records)))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render(helpText))
	return sb.String()
}

const helpText = "v: view • y: year • i: industrial • tab: table • ↑/↓: scroll • q: quit"

// Selection returns the active record filter.
func (m Model) Selection() domain.Selection {
	s := domain.Selection{Years: m.selected, Industrial: m.industrial}
	if m.yearIdx >= 0 {
		s.Years = []int{m.years[m.yearIdx]}
	}
	return s
}

// CurrentView returns the active view.
func (m Model) CurrentView() domain.View {
	return m.view
}

// CurrentTab returns the active table.
func (m Model) CurrentTab() Tab {
	return m.tab
}

// Rows returns the rows of the active table.
func (m Model) Rows() []table.Row {
	return m.table.Rows()
}

func (m Model) filterLine() string {
	year := "all years"
	if years := m.Selection().Years; len(years) > 0 {
		parts := make([]string, len(years))
		for i, y := range years {
			parts[i] = strconv.Itoa(y)
		}
		year = strings.Join(parts, ", ")
	}
	scope := "all sectors"
	if m.industrial {
		scope = "industrial"
	}
	return fmt.Sprintf("%s • %s • %s", m.view.Label(), year, scope)
}

func (m Model) metricsView() string {
	km := domain.ComputeKeyMetrics(m.records, m.view)
	boxes := []string{metricBox("Total", km.Total)}
	for _, g := range domain.Gases {
		boxes = append(boxes, metricBox(string(g), km.Gas.Get(g)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func metricBox(label string, v float64) string {
	return metricStyle.Render(labelStyle.Render(label) + "\n" + report.FormatAmount(v) + " CO2eq")
}

// refresh recomputes the filtered records and the active table.
func (m *Model) refresh() {
	m.records = m.Selection().Apply(m.ds.Records)

	var cols []table.Column
	var rows []table.Row
	switch m.tab {
	case TabClassifications:
		cols, rows = classificationTable(m.records, m.view, m.topN)
	case TabStats:
		cols, rows = statsTable(m.records)
	default:
		cols, rows = yearTable(m.records, m.view)
	}

	// Clear rows first: a row with more cells than columns cannot render.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m Model) tableHeight() int {
	return max(m.height-tableChrome, 3)
}

func nextView(v domain.View) domain.View {
	for i, candidate := range views {
		if candidate == v {
			return views[(i+1)%len(views)]
		}
	}
	return views[0]
}

func yearTable(records []domain.DerivedRecord, v domain.View) ([]table.Column, []table.Row) {
	cols := []table.Column{
		{Title: "Year", Width: 6},
		{Title: "CO2", Width: 16},
		{Title: "CH4", Width: 16},
		{Title: "N2O", Width: 16},
		{Title: "Total", Width: 18},
	}
	totals := domain.TotalsByYear(records, v)
	gas := domain.GasSeriesByYear(records, v)
	rows := make([]table.Row, len(totals))
	for i := range totals {
		rows[i] = table.Row{
			strconv.Itoa(totals[i].Year),
			report.FormatAmount(gas[i].Gas.CO2),
			report.FormatAmount(gas[i].Gas.CH4),
			report.FormatAmount(gas[i].Gas.N2O),
			report.FormatAmount(totals[i].Value),
		}
	}
	return cols, rows
}

func classificationTable(records []domain.DerivedRecord, v domain.View, n int) ([]table.Column, []table.Row) {
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Classification", Width: 44},
		{Title: "Emissions", Width: 16},
		{Title: "Share", Width: 8},
	}
	top := domain.TopClassifications(records, v, n)
	rows := make([]table.Row, len(top))
	for i, c := range top {
		rows[i] = table.Row{
			strconv.Itoa(i + 1),
			c.Classification,
			report.FormatAmount(c.Value),
			report.FormatPercent(c.SharePct),
		}
	}
	return cols, rows
}

func statsTable(records []domain.DerivedRecord) ([]table.Column, []table.Row) {
	cols := []table.Column{
		{Title: "Column", Width: 20},
		{Title: "Count", Width: 6},
		{Title: "Mean", Width: 14},
		{Title: "Std", Width: 14},
		{Title: "Min", Width: 14},
		{Title: "Median", Width: 14},
		{Title: "Max", Width: 14},
	}
	summaries := domain.Describe(records)
	rows := make([]table.Row, len(summaries))
	for i, s := range summaries {
		rows[i] = table.Row{
			s.Column,
			strconv.Itoa(s.Count),
			report.FormatAmount(s.Mean),
			report.FormatAmount(s.Std),
			report.FormatAmount(s.Min),
			report.FormatAmount(s.Median),
			report.FormatAmount(s.Max),
		}
	}
	return cols, rows
}

func correlationLine(records []domain.DerivedRecord) string {
	parts := []string{"Pearson:"}
	for _, c := range domain.Correlations(records) {
		value := "n/a"
		if c.OK {
			value = fmt.Sprintf("%.2f", c.Value)
		}
		parts = append(parts, fmt.Sprintf("%s-%s %s", c.A, c.B, value))
	}
	return strings.Join(parts, "  ")
}

// Run starts the dashboard in the alternate screen and blocks until the user
// quits.
func Run(ds domain.Dataset, opts Options) error {
	_, err := tea.NewProgram(New(ds, opts), tea.WithAltScreen()).Run()
	return err
}
