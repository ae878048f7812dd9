package prescription

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Medication is one prescribed line as entered on the form
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	ScheduleCode string `json:"schedule_code"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Active reports whether the line carries a medication name
func (m Medication) Active() bool {
	return normalizeText(m.Name) != ""
}

// normalizeText trims and composes input so that precomposed and decomposed
// Vietnamese diacritics compare equal.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// foldName is the comparison key for drug names and units
func foldName(s string) string {
	return cases.Fold().String(normalizeText(s))
}

// NameKey returns the case-folded key under which drug names are compared
func NameKey(name string) string { return foldName(name) }

// CodeKey returns the normalized form under which schedule codes are matched
func CodeKey(code string) string { return normalizeText(code) }

func medicationField(idx int, name string) string {
	return fmt.Sprintf("medications[%d].%s", idx, name)
}

// checkMedication runs the per-field rules for the entry at idx. An entry
// without a name yields only the missing-name error.
func (v *Validator) checkMedication(idx int, m Medication) []Issue {
	pos := idx + 1
	name := normalizeText(m.Name)
	if name == "" {
		return []Issue{errorIssue(CodeMedNameRequired, medicationField(idx, "name"),
			"Medication #%d: name is required", pos)}
	}

	var issues []Issue
	drug, known := v.formulary.Lookup(name)
	if !known {
		issues = append(issues, warningIssue(CodeMedNotInFormulary, medicationField(idx, "name"),
			"Medication #%d: %q is not in the formulary", pos, name))
	}

	issues = append(issues, v.checkDosage(idx, name, m, drug, known)...)
	issues = append(issues, v.checkSchedule(idx, m)...)
	issues = append(issues, v.checkDuration(idx, m)...)
	return issues
}

// checkDosage validates the dose text and, when drug and schedule both
// resolve, compares the daily dose against the formulary maximum.
func (v *Validator) checkDosage(idx int, name string, m Medication, drug Drug, known bool) []Issue {
	pos := idx + 1
	field := medicationField(idx, "dosage")
	if normalizeText(m.Dosage) == "" {
		return []Issue{errorIssue(CodeDosageRequired, field, "Medication #%d (%s): dosage is required", pos, name)}
	}
	dose, ok := ParseDosage(m.Dosage)
	if !ok {
		return []Issue{errorIssue(CodeDosageInvalidFormat, field,
			"Medication #%d (%s): dosage %q must be a number followed by a unit (%s)",
			pos, name, normalizeText(m.Dosage), strings.Join(DosageUnits, ", "))}
	}
	if !known {
		return nil
	}
	schedule, ok := v.schedules.Lookup(m.ScheduleCode)
	if !ok || schedule.AsNeeded() {
		return nil
	}

	var issues []Issue
	daily := new(big.Rat).Mul(dose.Exact(), big.NewRat(int64(schedule.SlotsPerDay()), 1))
	maxDose := drug.MaxDailyDoseExact()
	if daily.Cmp(maxDose) > 0 {
		issues = append(issues, warningIssue(CodeDosageExceedsMax, field,
			"Medication #%d (%s): daily dose %s%s exceeds the maximum of %s%s",
			pos, name, formatRat(daily), drug.Unit, formatAmount(drug.MaxDailyDose), drug.Unit))
	}
	// daily*100 >= max*percent, compared exactly
	scaledDaily := new(big.Rat).Mul(daily, big.NewRat(100, 1))
	threshold := new(big.Rat).Mul(maxDose, big.NewRat(int64(v.policy.HighDosePercent), 1))
	if scaledDaily.Cmp(threshold) >= 0 {
		issues = append(issues, infoIssue(CodeHighDoseElderly, field,
			"Medication #%d (%s): daily dose %s%s is at least %d%% of the maximum; monitor closely in elderly residents",
			pos, name, formatRat(daily), drug.Unit, v.policy.HighDosePercent))
	}
	return issues
}

func (v *Validator) checkSchedule(idx int, m Medication) []Issue {
	pos := idx + 1
	field := medicationField(idx, "schedule_code")
	code := normalizeText(m.ScheduleCode)
	if code == "" {
		return []Issue{errorIssue(CodeScheduleRequired, field, "Medication #%d: dosing schedule is required", pos)}
	}
	if _, ok := v.schedules.Lookup(code); !ok {
		return []Issue{errorIssue(CodeScheduleInvalid, field, "Medication #%d: unknown dosing schedule %q", pos, code)}
	}
	return nil
}

func (v *Validator) checkDuration(idx int, m Medication) []Issue {
	pos := idx + 1
	field := medicationField(idx, "duration")
	text := normalizeText(m.Duration)
	if text == "" {
		return []Issue{errorIssue(CodeDurationRequired, field, "Medication #%d: treatment duration is required", pos)}
	}
	d, ok := ParseDuration(text)
	if !ok {
		return []Issue{errorIssue(CodeDurationInvalid, field,
			"Medication #%d: duration %q must look like \"7 ngày\" (units: ngày, tuần, tháng, năm)", pos, text)}
	}
	if days := d.Days(); days > v.policy.LongTermDays {
		return []Issue{infoIssue(CodeLongTermTreatment, field,
			"Medication #%d: long-term treatment of %d days; schedule periodic review", pos, days)}
	}
	return nil
}
