package prescription

import (
	"regexp"
	"unicode/utf8"
)

// PrescriberField is the field reference used for prescriber issues
const PrescriberField = "prescriber"

// minPrescriberNameLength is counted in code points after trimming
const minPrescriberNameLength = 5

// titlePattern recognises professional titles at the start of a name:
// BS, Bác sĩ, Dr, ThS, TS, PGS, GS followed by a dot or whitespace.
var titlePattern = regexp.MustCompile(`(?i)^(bác sĩ|bs|dr|ths|ts|pgs|gs)(\.|\s)`)

func checkPrescriber(name string) []Issue {
	name = normalizeText(name)
	if name == "" {
		return []Issue{errorIssue(CodeDoctorRequired, PrescriberField, "Prescribing doctor is required")}
	}

	var issues []Issue
	if !titlePattern.MatchString(name) {
		issues = append(issues, warningIssue(CodeDoctorTitleMissing, PrescriberField,
			"Prescriber %q has no professional title (BS., Bác sĩ, Dr., ThS., TS., PGS., GS.)", name))
	}
	if utf8.RuneCountInString(name) < minPrescriberNameLength {
		issues = append(issues, warningIssue(CodeDoctorNameTooShort, PrescriberField,
			"Prescriber name %q is shorter than %d characters", name, minPrescriberNameLength))
	}
	return issues
}
