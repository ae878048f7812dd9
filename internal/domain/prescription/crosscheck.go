package prescription

import (
	"strconv"
	"strings"
)

// MedicationsField is the field reference for list-wide issues
const MedicationsField = "medications"

type resolvedEntry struct {
	idx  int
	name string
	drug Drug
}

// checkInteractions tests every pair i<j in both directions. Each direction is
// evaluated on its own, so a mutually declared interaction produces two
// warnings.
func (v *Validator) checkInteractions(meds []Medication) []Issue {
	var resolved []resolvedEntry
	for i, m := range meds {
		name := normalizeText(m.Name)
		if name == "" {
			continue
		}
		if drug, ok := v.formulary.Lookup(name); ok {
			resolved = append(resolved, resolvedEntry{idx: i, name: name, drug: drug})
		}
	}

	var issues []Issue
	for a := 0; a < len(resolved); a++ {
		for b := a + 1; b < len(resolved); b++ {
			first, second := resolved[a], resolved[b]
			if first.drug.InteractsWith(second.name) {
				issues = append(issues, interactionIssue(first, second))
			}
			if second.drug.InteractsWith(first.name) {
				issues = append(issues, interactionIssue(second, first))
			}
		}
	}
	return issues
}

func interactionIssue(from, to resolvedEntry) Issue {
	return warningIssue(CodeDrugInteraction, medicationField(from.idx, "name"),
		"Drug interaction: medication #%d (%s) interacts with medication #%d (%s)",
		from.idx+1, from.name, to.idx+1, to.name)
}

// checkDuplicates emits one error per name that appears more than once,
// in order of first appearance.
func checkDuplicates(meds []Medication) []Issue {
	positions := make(map[string][]int)
	display := make(map[string]string)
	var order []string
	for i, m := range meds {
		key := foldName(m.Name)
		if key == "" {
			continue
		}
		if _, seen := positions[key]; !seen {
			order = append(order, key)
			display[key] = normalizeText(m.Name)
		}
		positions[key] = append(positions[key], i+1)
	}

	var issues []Issue
	for _, key := range order {
		pos := positions[key]
		if len(pos) < 2 {
			continue
		}
		issues = append(issues, errorIssue(CodeDuplicateMedication, MedicationsField,
			"%s is prescribed more than once (positions %s)", display[key], joinPositions(pos)))
	}
	return issues
}

func joinPositions(pos []int) string {
	parts := make([]string, len(pos))
	for i, p := range pos {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
