package domain

import (
	"fmt"
	"strings"
)

// Gas identifies one of the weighted greenhouse gases.
type Gas string

const (
	CO2 Gas = "CO2"
	CH4 Gas = "CH4"
	N2O Gas = "N2O"
)

// Gases lists the weighted gases in canonical order.
var Gases = [...]Gas{CO2, CH4, N2O}

// ParseGas resolves a gas identifier, ignoring case.
func ParseGas(s string) (Gas, error) {
	for _, g := range Gases {
		if strings.EqualFold(strings.TrimSpace(s), string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown gas %q", s)
}

// Weights are the two multipliers applied to a gas.
type Weights struct {
	GWP          float64 `yaml:"gwp" json:"gwp"`
	DamageFactor float64 `yaml:"damage_factor" json:"damage_factor"`
}

// GasConstants is the immutable weighting table. Build it with
// DefaultGasConstants or NewGasConstants and pass it by value.
type GasConstants struct {
	weights map[Gas]Weights
}

// DefaultGasConstants returns the 100-year GWP values (IPCC AR5) and the
// 1-10 environmental damage scores.
func DefaultGasConstants() GasConstants {
	return GasConstants{weights: map[Gas]Weights{
		CO2: {GWP: 1, DamageFactor: 5},
		CH4: {GWP: 28, DamageFactor: 8},
		N2O: {GWP: 265, DamageFactor: 9},
	}}
}

// NewGasConstants copies w into a validated table.
func NewGasConstants(w map[Gas]Weights) (GasConstants, error) {
	gc := GasConstants{weights: make(map[Gas]Weights, len(w))}
	for g, v := range w {
		gc.weights[g] = v
	}
	if err := gc.Validate(); err != nil {
		return GasConstants{}, err
	}
	return gc, nil
}

// MaxGWP bounds a configured global warming potential. With MaxQuantity it
// keeps every weighted value finite.
const MaxGWP = 1e6

// Validate checks that the table holds exactly the three record gases with
// a GWP in (0, MaxGWP] and a damage factor in [1, 10].
func (gc GasConstants) Validate() error {
	if len(gc.weights) != len(Gases) {
		return fmt.Errorf("gas constants: want %d gases, got %d", len(Gases), len(gc.weights))
	}
	for _, g := range Gases {
		w, ok := gc.weights[g]
		if !ok {
			return fmt.Errorf("gas constants: missing %s", g)
		}
		if !(w.GWP > 0 && w.GWP <= MaxGWP) {
			return fmt.Errorf("gas constants: %s gwp must be within (0, %g], got %g", g, MaxGWP, w.GWP)
		}
		if w.DamageFactor < 1 || w.DamageFactor > 10 {
			return fmt.Errorf("gas constants: %s damage factor must be within 1-10, got %g", g, w.DamageFactor)
		}
	}
	return nil
}

// GWP returns the global warming potential multiplier for g.
func (gc GasConstants) GWP(g Gas) float64 { return gc.weights[g].GWP }

// DamageFactor returns the damage score for g.
func (gc GasConstants) DamageFactor(g Gas) float64 { return gc.weights[g].DamageFactor }

// Weights returns a copy of the table.
func (gc GasConstants) Weights() map[Gas]Weights {
	out := make(map[Gas]Weights, len(gc.weights))
	for g, w := range gc.weights {
		out[g] = w
	}
	return out
}

// GasInfo is the descriptive sheet shown next to the numbers.
type GasInfo struct {
	Gas          Gas     `json:"gas"`
	Name         string  `json:"name"`
	GWP          float64 `json:"gwp"`
	DamageFactor float64 `json:"damage_factor"`
	Lifetime     string  `json:"lifetime"`
	Sources      string  `json:"sources"`
	Impact       string  `json:"impact"`
}

var gasDescriptions = map[Gas]GasInfo{
	CO2: {
		Name:     "Carbon dioxide",
		Lifetime: "300-1000 years",
		Sources:  "Fossil fuels, deforestation, industry",
		Impact:   "Main driver of global warming, ocean acidification",
	},
	CH4: {
		Name:     "Methane",
		Lifetime: "9 years",
		Sources:  "Livestock, agriculture, landfills, natural gas",
		Impact:   "Potent greenhouse gas, contributes to tropospheric ozone",
	},
	N2O: {
		Name:     "Nitrous oxide",
		Lifetime: "114 years",
		Sources:  "Agriculture, combustion, chemical industry",
		Impact:   "Depletes the ozone layer, potent greenhouse gas",
	},
}

// GasImpactInfo returns one GasInfo per gas in canonical order, with the
// weights taken from gc.
func GasImpactInfo(gc GasConstants) []GasInfo {
	out := make([]GasInfo, 0, len(Gases))
	for _, g := range Gases {
		info := gasDescriptions[g]
		info.Gas = g
		info.GWP = gc.GWP(g)
		info.DamageFactor = gc.DamageFactor(g)
		out = append(out, info)
	}
	return out
}
