// Package domain models national greenhouse-gas inventory rows and the
// weighting rules applied to them.
//
// # Data Source
//
// Inventory extracts arrive as comma-separated files exported from a
// spreadsheet. One row is one (year, classification) pair with the emitted
// quantity of each gas already converted to CO2-equivalent units. The header
// uses the inventory's Spanish naming:
//
//	AÑO, CLASIFICACION, CH4_eq, CO2_eq, N2O_eq, Total_Emisiones, Emisiones_netas
//
// # Source Data Conventions
//
// Header names:
//
//	AÑO and CLASIFICACION are matched ignoring case and accents, so "Año",
//	"ANO" and "año" all resolve to the year column. Spreadsheet exports often
//	prefix the first header with a UTF-8 byte order mark, which is ignored.
//	The gas and total columns are matched exactly, then case-insensitively.
//	Total_Emisiones and Emisiones_netas are optional and read as zero when
//	the column is missing.
//
// Number format:
//
//	Quantities use a decimal comma: "12,5" = 12.5. Every comma is replaced by
//	a period before parsing, so thousands separators are not supported.
//	Empty cells and the tokens NaN, NA and null are missing values and read
//	as zero. Any other token that does not parse is reported as a
//	[ParseError] and read as zero.
//
// Year:
//
//	Integer year, optionally written as "2020.0" or "2020,0". Rows without a
//	usable year are dropped.
//
// # Weighting
//
// Two fixed schemes are applied per gas (see [DefaultGasConstants]):
//
//	Gas   GWP (100-yr)   Damage factor (1-10)
//	CO2   1              5
//	CH4   28             8
//	N2O   265            9
//
// The combined impact index blends both: 70% GWP-weighted total plus 30%
// damage-weighted total. Contribution percentages are each gas's share of the
// GWP-weighted total and are all zero when that total is zero.
package domain
