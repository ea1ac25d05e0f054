// Command validate checks a derived.csv written by `emissions-etl export`. It
// recomputes every weighted column from the source quantities and the gas
// constants, verifies the contribution shares and the aggregates, and, when
// the source inventory is given, checks that every exported row matches the
// source row it came from.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -derived out/derived.csv \
//	  -source data/mock/emisiones_mock.csv \
//	  -gas-constants gases.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/export"
	"github.com/couchcryptid/emissions-impact-etl/internal/config"
	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// pctTolerance bounds the rounding drift of three shares summing to 100.
const pctTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	derivedPath := flag.String("derived", "", "path to the exported derived.csv")
	sourcePath := flag.String("source", "", "optional path to the source inventory CSV")
	gasFile := flag.String("gas-constants", "", "optional YAML file with the gas constants used for the export")
	flag.Parse()

	if *derivedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*derivedPath, *sourcePath, *gasFile))
}

func run(derivedPath, sourcePath, gasFile string) int {
	fmt.Println("=== Emissions Export Validation ===")
	fmt.Println()

	gc, err := config.LoadGasConstants(gasFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load gas constants: %v\n", err)
		return 1
	}

	schema := &phase{name: "Phase 1: Derived CSV schema"}
	derived, err := loadDerived(derivedPath)
	if err != nil {
		var se *domain.SchemaError
		if !errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "FATAL: load derived CSV: %v\n", err)
			return 1
		}
		schema.errorf("%v", err)
	}

	phases := []*phase{
		schema,
		validateWeighting(derived, gc),
		validateShares(derived),
		validateAggregates(derived),
	}
	if sourcePath != "" {
		source, err := loadSource(sourcePath, gc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load source CSV: %v\n", err)
			return 1
		}
		phases = append(phases, validateSourceParity(derived, source))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d derived\n", len(derived))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadDerived(path string) ([]domain.DerivedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return export.ReadCSV(f)
}

// loadSource runs the source inventory through the same normalization and
// weighting as the ETL.
func loadSource(path string, gc domain.GasConstants) ([]domain.DerivedRecord, error) {
	table, err := csvfile.NewReader().Extract(context.Background(), path)
	if err != nil {
		return nil, err
	}
	res, err := domain.Normalize(table)
	if err != nil {
		return nil, err
	}
	return domain.DeriveWeighted(res.Records, gc), nil
}

// ── Phase 2: Weighting ──

func validateWeighting(records []domain.DerivedRecord, gc domain.GasConstants) *phase {
	p := &phase{name: "Phase 2: Weighted columns"}
	fmt.Println("Phase 2: Checking weighted columns...")

	for _, r := range records {
		for _, g := range domain.Gases {
			if want := float64(r.Eq(g) * gc.GWP(g)); r.GWPWeighted.Get(g) != want {
				p.errorf("line %d: %s GWP-weighted = %v, want %v", r.Line, g, r.GWPWeighted.Get(g), want)
			}
			if want := float64(r.Eq(g) * gc.DamageFactor(g)); r.DamageWeighted.Get(g) != want {
				p.errorf("line %d: %s damage-weighted = %v, want %v", r.Line, g, r.DamageWeighted.Get(g), want)
			}
		}
		if want := r.GWPWeighted.Sum(); r.TotalGWPWeighted != want {
			p.errorf("line %d: total GWP-weighted = %v, want %v", r.Line, r.TotalGWPWeighted, want)
		}
		if want := r.DamageWeighted.Sum(); r.TotalDamageWeighted != want {
			p.errorf("line %d: total damage-weighted = %v, want %v", r.Line, r.TotalDamageWeighted, want)
		}
		want := float64(r.TotalGWPWeighted*domain.CombinedGWPShare) + float64(r.TotalDamageWeighted*domain.CombinedDamageShare)
		if r.CombinedImpact != want {
			p.errorf("line %d: combined impact = %v, want %v", r.Line, r.CombinedImpact, want)
		}
	}

	fmt.Printf("  %d records checked\n", len(records))
	return p
}

// ── Phase 3: Contribution shares ──

func validateShares(records []domain.DerivedRecord) *phase {
	p := &phase{name: "Phase 3: Contribution shares"}
	fmt.Println("Phase 3: Checking contribution shares...")

	var zeroTotals int
	for _, r := range records {
		sum := r.ContributionPct.Sum()
		if r.TotalGWPWeighted == 0 {
			zeroTotals++
			if sum != 0 {
				p.errorf("line %d: shares sum to %v with a zero total", r.Line, sum)
			}
			continue
		}
		if math.Abs(sum-100) > pctTolerance*100 {
			p.errorf("line %d: shares sum to %v, want 100", r.Line, sum)
		}
	}

	fmt.Printf("  %d records with a zero GWP total\n", zeroTotals)
	return p
}

// ── Phase 4: Aggregates ──

func validateAggregates(records []domain.DerivedRecord) *phase {
	p := &phase{name: "Phase 4: Aggregate consistency"}
	fmt.Println("Phase 4: Checking aggregates...")

	stats, err := domain.Summarize(records)
	if errors.Is(err, domain.ErrEmptyDataset) {
		fmt.Println("  empty export, nothing to aggregate")
		return p
	}
	if err != nil {
		p.errorf("summarize: %v", err)
		return p
	}

	var byYear float64
	for _, y := range stats.EmissionsByYear {
		byYear += y.TotalGWPWeighted
	}
	if !closeEnough(byYear, stats.TotalGWPWeighted) {
		p.errorf("per-year totals sum to %v, overall total is %v", byYear, stats.TotalGWPWeighted)
	}

	want := float64(stats.TotalGWPWeighted*domain.CombinedGWPShare) + float64(stats.TotalDamageWeighted*domain.CombinedDamageShare)
	if !closeEnough(stats.TotalCombinedImpact, want) {
		p.errorf("total combined impact = %v, want %v", stats.TotalCombinedImpact, want)
	}

	for _, g := range domain.Gases {
		if v := stats.MeanContributionPct.Get(g); v < 0 || v > 100 {
			p.errorf("mean %s share %v outside [0, 100]", g, v)
		}
	}

	fmt.Printf("  %d years, total GWP-weighted %.2f\n", len(stats.EmissionsByYear), stats.TotalGWPWeighted)
	return p
}

// closeEnough compares sums accumulated in different orders.
func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// ── Phase 5: Source parity ──

type recordKey struct {
	year           int
	classification string
}

func validateSourceParity(derived, source []domain.DerivedRecord) *phase {
	p := &phase{name: "Phase 5: Source parity"}
	fmt.Println("Phase 5: Checking exported rows against the source...")

	bySource := make(map[recordKey][]domain.DerivedRecord, len(source))
	for _, r := range source {
		k := recordKey{r.Year, r.Classification}
		bySource[k] = append(bySource[k], r)
	}

	ignoreLine := cmpopts.IgnoreFields(domain.EmissionRecord{}, "Line")
	for _, r := range derived {
		candidates := bySource[recordKey{r.Year, r.Classification}]
		if len(candidates) == 0 {
			p.errorf("line %d: %d/%q not in source", r.Line, r.Year, r.Classification)
			continue
		}
		var diff string
		matched := false
		for _, c := range candidates {
			if diff = cmp.Diff(c, r, ignoreLine); diff == "" {
				matched = true
				break
			}
		}
		if !matched {
			p.errorf("line %d: %d/%q differs from source (-source +derived):\n%s", r.Line, r.Year, r.Classification, diff)
		}
	}

	if len(derived) > len(source) {
		p.errorf("derived has %d rows, source only %d", len(derived), len(source))
	}

	fmt.Printf("  %d source rows, %d exported\n", len(source), len(derived))
	return p
}
