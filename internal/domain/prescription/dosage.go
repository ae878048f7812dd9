package prescription

import (
	"math/big"
	"regexp"
	"strconv"
)

// DosageUnits is the fixed unit vocabulary accepted in a single dose
var DosageUnits = []string{"mg", "g", "ml", "viên", "gói", "ống", "mcg", "μg", "IU", "%", "đơn vị"}

var dosagePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s?(mg|mcg|μg|g|ml|viên|gói|ống|iu|%|đơn vị)$`)

// Dosage is a parsed single-administration dose
type Dosage struct {
	Amount float64
	Unit   string

	exact *big.Rat
}

// Exact returns the amount as written, without binary rounding
func (d Dosage) Exact() *big.Rat {
	if d.exact == nil {
		return exactDecimal(d.Amount)
	}
	return new(big.Rat).Set(d.exact)
}

func (d Dosage) String() string {
	return formatAmount(d.Amount) + d.Unit
}

// ParseDosage parses "<number>[.<decimals>][ ]<unit>". The unit is matched
// case-insensitively and returned in its canonical spelling.
func ParseDosage(text string) (Dosage, bool) {
	m := dosagePattern.FindStringSubmatch(normalizeText(text))
	if m == nil {
		return Dosage{}, false
	}
	exact, ok := new(big.Rat).SetString(m[1])
	if !ok {
		return Dosage{}, false
	}
	amount, _ := exact.Float64()
	return Dosage{Amount: amount, Unit: canonicalUnit(m[2]), exact: exact}, true
}

func canonicalUnit(unit string) string {
	folded := foldName(unit)
	for _, u := range DosageUnits {
		if foldName(u) == folded {
			return u
		}
	}
	return unit
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// exactDecimal converts v through its shortest decimal spelling, so a
// configured 0.3 compares as 3/10
func exactDecimal(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(formatAmount(v))
	if !ok {
		return new(big.Rat).SetFloat64(v)
	}
	return r
}

func formatRat(r *big.Rat) string {
	f, _ := r.Float64()
	return formatAmount(f)
}
