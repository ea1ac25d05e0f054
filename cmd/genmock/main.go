// Command genmock writes a synthetic greenhouse-gas inventory CSV in the same
// layout as the national inventory exports: semicolon separated, decimal
// commas, Spanish column names. The output is deterministic for a given seed
// so it can be checked in as a fixture.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/emisiones_mock.csv \
//	  -from 2010 -to 2022 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// sector is a classification with a baseline inventory per gas, in tonnes of
// CO2 equivalent.
type sector struct {
	name          string
	co2, ch4, n2o float64
	trend         float64 // yearly growth rate
}

var sectors = []sector{
	{name: "Energía - Generación de electricidad", co2: 38_000, ch4: 40, n2o: 120, trend: 0.02},
	{name: "Energía - Transporte", co2: 42_000, ch4: 110, n2o: 380, trend: 0.03},
	{name: "Procesos Industriales - Cemento", co2: 9_500, trend: 0.01},
	{name: "Procesos Industriales - Química", co2: 3_200, ch4: 15, n2o: 900, trend: -0.01},
	{name: "Fabricación de metales", co2: 6_100, ch4: 8, n2o: 20, trend: 0.005},
	{name: "Agricultura - Fermentación entérica", ch4: 31_000, trend: 0.01},
	{name: "Agricultura - Suelos agrícolas", co2: 300, n2o: 14_000, trend: 0.015},
	{name: "Residuos - Rellenos sanitarios", co2: 50, ch4: 12_500, n2o: 30, trend: 0.025},
	{name: "Residuos - Aguas residuales", ch4: 4_200, n2o: 700, trend: 0.02},
	{name: "Uso del suelo y silvicultura", co2: 18_000, ch4: 600, n2o: 150, trend: -0.03},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the CSV fixture")
	from := flag.Int("from", 2010, "first inventory year")
	to := flag.Int("to", 2022, "last inventory year")
	seed := flag.Uint64("seed", 42, "random seed")
	untagged := flag.Int("untagged", 2, "rows without a year, dropped by the ETL")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *to < *from {
		return fmt.Errorf("invalid year range %d-%d", *from, *to)
	}

	rows := generate(rand.New(rand.NewPCG(*seed, *seed)), *from, *to, *untagged)

	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d rows (%d years, %d sectors) to %s", len(rows), *to-*from+1, len(sectors), *out)
	return nil
}

func generate(rng *rand.Rand, from, to, untagged int) [][]string {
	rows := make([][]string, 0, (to-from+1)*len(sectors)+untagged)
	for year := from; year <= to; year++ {
		for _, s := range sectors {
			growth := 1 + s.trend*float64(year-from)
			rows = append(rows, row(strconv.Itoa(year), s, growth, rng))
		}
	}
	for i := range untagged {
		rows = append(rows, row("", sectors[i%len(sectors)], 1, rng))
	}
	return rows
}

func row(year string, s sector, growth float64, rng *rand.Rand) []string {
	noise := func(base float64) float64 {
		if base == 0 {
			return 0
		}
		return base * growth * (0.9 + 0.2*rng.Float64())
	}
	co2, ch4, n2o := noise(s.co2), noise(s.ch4), noise(s.n2o)
	total := co2 + ch4 + n2o
	// Removals only apply to land use.
	net := total
	if strings.HasPrefix(s.name, "Uso del suelo") {
		net = total * -0.4
	}

	return []string{
		year,
		s.name,
		decimalComma(ch4),
		decimalComma(co2),
		decimalComma(n2o),
		decimalComma(total),
		decimalComma(net),
	}
}

func decimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	header := []string{
		domain.ColumnYear,
		domain.ColumnClassification,
		domain.ColumnCH4,
		domain.ColumnCO2,
		domain.ColumnN2O,
		domain.ColumnTotal,
		domain.ColumnNet,
	}
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
