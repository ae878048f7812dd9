package prescription

// Policy holds the thresholds used by the field and list-level rules
type Policy struct {
	// HighDosePercent is the share of the maximum daily dose, in percent, at
	// or above which a high-dose note is raised
	HighDosePercent int
	// LongTermDays is the treatment length above which a long-term note is raised
	LongTermDays int
	// PolypharmacyThreshold is the active medication count above which a
	// polypharmacy warning is raised
	PolypharmacyThreshold int
	// ComplexScheduleThreshold is the distinct schedule count above which a
	// complexity note is raised
	ComplexScheduleThreshold int
}

// DefaultPolicy returns the care-home thresholds
func DefaultPolicy() Policy {
	return Policy{
		HighDosePercent:          70,
		LongTermDays:             90,
		PolypharmacyThreshold:    10,
		ComplexScheduleThreshold: 6,
	}
}

// activeCount counts entries with a non-empty name
func activeCount(meds []Medication) int {
	n := 0
	for _, m := range meds {
		if m.Active() {
			n++
		}
	}
	return n
}

// scheduleComplexity counts distinct non-empty schedule codes over the whole list
func scheduleComplexity(meds []Medication) int {
	seen := make(map[string]struct{})
	for _, m := range meds {
		code := normalizeText(m.ScheduleCode)
		if code == "" {
			continue
		}
		seen[code] = struct{}{}
	}
	return len(seen)
}

func (v *Validator) checkListPolicy(meds []Medication) []Issue {
	var issues []Issue
	active := activeCount(meds)
	if active == 0 {
		issues = append(issues, errorIssue(CodeNoMedications, MedicationsField,
			"The prescription must contain at least one medication"))
	}
	if active > v.policy.PolypharmacyThreshold {
		issues = append(issues, warningIssue(CodePolypharmacyRisk, MedicationsField,
			"Polypharmacy risk: %d active medications (more than %d)", active, v.policy.PolypharmacyThreshold))
	}
	if n := scheduleComplexity(meds); n > v.policy.ComplexScheduleThreshold {
		issues = append(issues, infoIssue(CodeComplexSchedule, MedicationsField,
			"Complex regimen: %d different dosing schedules", n))
	}
	return issues
}
