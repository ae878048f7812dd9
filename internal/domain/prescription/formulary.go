package prescription

import (
	"math/big"
	"sort"
)

// Drug is a formulary monograph
type Drug struct {
	Name              string   `json:"name"`
	MaxDailyDose      float64  `json:"max_daily_dose"`
	Unit              string   `json:"unit"`
	Category          string   `json:"category,omitempty"`
	Interactions      []string `json:"interactions,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
	SideEffects       []string `json:"side_effects,omitempty"`
}

// MaxDailyDoseExact returns the maximum daily dose as an exact decimal
func (d Drug) MaxDailyDoseExact() *big.Rat {
	return exactDecimal(d.MaxDailyDose)
}

// InteractsWith reports whether name appears in the drug's declared
// interactions. The declaration is one-directional.
func (d Drug) InteractsWith(name string) bool {
	key := foldName(name)
	if key == "" {
		return false
	}
	for _, other := range d.Interactions {
		if foldName(other) == key {
			return true
		}
	}
	return false
}

// Formulary is a read-only lookup of drug monographs keyed by case-folded name
type Formulary struct {
	drugs map[string]*Drug
	order []string
}

// NewFormulary builds a formulary from the given entries. Later entries with
// the same case-folded name replace earlier ones; reference loaders reject
// such duplicates before reaching this point.
func NewFormulary(drugs []Drug) *Formulary {
	f := &Formulary{drugs: make(map[string]*Drug, len(drugs))}
	for i := range drugs {
		d := drugs[i]
		d.Interactions = append([]string(nil), d.Interactions...)
		d.Contraindications = append([]string(nil), d.Contraindications...)
		d.SideEffects = append([]string(nil), d.SideEffects...)
		key := foldName(d.Name)
		if key == "" {
			continue
		}
		if _, exists := f.drugs[key]; !exists {
			f.order = append(f.order, key)
		}
		f.drugs[key] = &d
	}
	return f
}

// Lookup resolves a drug by case-insensitive name. The returned monograph
// shares its slices with the formulary and must be treated as read-only.
func (f *Formulary) Lookup(name string) (Drug, bool) {
	if f == nil {
		return Drug{}, false
	}
	d, ok := f.drugs[foldName(name)]
	if !ok {
		return Drug{}, false
	}
	return *d, true
}

// Len returns the number of monographs
func (f *Formulary) Len() int {
	if f == nil {
		return 0
	}
	return len(f.drugs)
}

// Drugs returns copies of all monographs sorted by name
func (f *Formulary) Drugs() []Drug {
	if f == nil {
		return nil
	}
	out := make([]Drug, 0, len(f.order))
	for _, key := range f.order {
		out = append(out, *f.drugs[key])
	}
	sort.Slice(out, func(i, j int) bool { return foldName(out[i].Name) < foldName(out[j].Name) })
	return out
}
