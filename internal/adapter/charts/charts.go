// Package charts renders the static emissions charts with gonum/plot.
package charts

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Chart file names, without extension.
const (
	TotalsByYearChart       = "emisiones_totales_por_anio"
	GasByYearChart          = "emisiones_por_tipo_gas"
	TopClassificationsChart = "top_clasificaciones_emisiones"
)

var gasColors = map[domain.Gas]color.RGBA{
	domain.CO2: {R: 99, G: 110, B: 250, A: 255},
	domain.CH4: {R: 239, G: 85, B: 59, A: 255},
	domain.N2O: {R: 0, G: 204, B: 150, A: 255},
}

var lineColor = color.RGBA{R: 0, G: 100, B: 0, A: 255}

// Exporter writes the three charts for a dataset into a directory.
type Exporter struct {
	dir    string
	format string
	view   domain.View
	topN   int
	logger *slog.Logger
}

// NewExporter creates an Exporter writing png or svg files into dir.
func NewExporter(dir, format string, view domain.View, topN int, logger *slog.Logger) (*Exporter, error) {
	if format != "png" && format != "svg" {
		return nil, fmt.Errorf("unsupported chart format %q", format)
	}
	if topN < 1 {
		topN = domain.DefaultTopN
	}
	return &Exporter{dir: dir, format: format, view: view, topN: topN, logger: logger}, nil
}

// Load implements pipeline.Loader. An empty dataset produces no charts.
func (e *Exporter) Load(ctx context.Context, ds domain.Dataset) error {
	if ds.Empty {
		e.logger.Info("no records to chart", "run_id", ds.RunID)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.Export(ds.Records)
	return err
}

// Export renders every chart for records and returns the written paths.
func (e *Exporter) Export(records []domain.DerivedRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	charts := []struct {
		name  string
		build func() (*plot.Plot, error)
		w, h  vg.Length
	}{
		{TotalsByYearChart, func() (*plot.Plot, error) {
			return TotalsByYearPlot(domain.TotalsByYear(records, e.view), e.view)
		}, 10 * vg.Inch, 5 * vg.Inch},
		{GasByYearChart, func() (*plot.Plot, error) {
			return GasByYearPlot(domain.GasSeriesByYear(records, e.view), e.view)
		}, 10 * vg.Inch, 5 * vg.Inch},
		{TopClassificationsChart, func() (*plot.Plot, error) {
			return TopClassificationsPlot(domain.TopClassifications(records, e.view, e.topN), e.view)
		}, 10 * vg.Inch, 6 * vg.Inch},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		p, err := c.build()
		if err != nil {
			return paths, fmt.Errorf("build %s: %w", c.name, err)
		}
		path := filepath.Join(e.dir, c.name+"."+e.format)
		if err := p.Save(c.w, c.h, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", c.name, err)
		}
		e.logger.Info("chart written", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// TotalsByYearPlot draws the view total per year as a line.
func TotalsByYearPlot(series []domain.YearValue, v domain.View) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	p := newPlot("Tendencia de Emisiones Totales por Año ("+v.Label()+")", "Año", "Emisiones Totales (CO2eq)")

	points := make(plotter.XYs, len(series))
	labels := make([]string, len(series))
	for i, s := range series {
		points[i].X = float64(i)
		points[i].Y = s.Value
		labels[i] = strconv.Itoa(s.Year)
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	line.Width = vg.Points(2)

	p.Add(line, plotter.NewGrid())
	p.NominalX(labels...)
	return p, nil
}

// GasByYearPlot draws per-gas yearly sums as a stacked area, CO2 at the
// bottom.
func GasByYearPlot(series []domain.YearGasValues, v domain.View) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	p := newPlot("Emisiones por Tipo de Gas a lo largo del Tiempo ("+v.Label()+")", "Año", "Emisiones (CO2eq)")
	p.Legend.Top = true

	labels := make([]string, len(series))
	for i, s := range series {
		labels[i] = strconv.Itoa(s.Year)
	}

	// Cumulative bands; the tallest is added first so lower bands paint over it.
	bands := make([]plotter.XYs, len(domain.Gases))
	for gi := range domain.Gases {
		bands[gi] = make(plotter.XYs, len(series))
	}
	for i, s := range series {
		var acc float64
		for gi, g := range domain.Gases {
			acc += s.Gas.Get(g)
			bands[gi][i].X = float64(i)
			bands[gi][i].Y = acc
		}
	}

	p.Add(plotter.NewGrid())
	for gi := len(domain.Gases) - 1; gi >= 0; gi-- {
		g := domain.Gases[gi]
		area, err := plotter.NewLine(bands[gi])
		if err != nil {
			return nil, err
		}
		area.Color = gasColors[g]
		area.FillColor = gasColors[g]
		area.Width = vg.Points(1)
		p.Add(area)
	}
	for _, g := range domain.Gases {
		swatch, err := plotter.NewLine(plotter.XYs{{}})
		if err != nil {
			return nil, err
		}
		swatch.Color = gasColors[g]
		swatch.Width = vg.Points(6)
		p.Legend.Add(string(g), swatch)
	}
	p.NominalX(labels...)
	return p, nil
}

// TopClassificationsPlot draws classification totals as horizontal bars,
// largest at the top.
func TopClassificationsPlot(top []domain.ClassificationValue, v domain.View) (*plot.Plot, error) {
	if len(top) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	p := newPlot(fmt.Sprintf("Top %d Clasificaciones con Mayores Emisiones (%s)", len(top), v.Label()),
		"Emisiones Totales (CO2eq)", "")

	// Bars are drawn bottom-up, so reverse to put the largest on top.
	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, c := range top {
		j := len(top) - 1 - i
		values[j] = c.Value
		names[j] = truncate(c.Classification, 40)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = gasColors[domain.CO2]
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalY(names...)
	p.Y.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
