package mapper

import (
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	fhir "github.com/khoadang148/carehome-system-sub011/internal/fhir/r5"
)

// Outcome converts validation issues into an OperationOutcome
func Outcome(issues []prescription.Issue) *fhir.OperationOutcome {
	out := make([]fhir.OperationOutcomeIssue, 0, len(issues))
	for _, issue := range issues {
		entry := fhir.OperationOutcomeIssue{
			Severity: outcomeSeverity(issue.Severity()),
			Code:     outcomeCode(issue.Code()),
			Details: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System: fhir.SystemIssueCode,
					Code:   string(issue.Code()),
				}},
				Text: issue.Message(),
			},
			Diagnostics: issue.Message(),
		}
		if issue.Field() != "" {
			entry.Expression = []string{issue.Field()}
		}
		out = append(out, entry)
	}
	return fhir.NewOperationOutcome(out...)
}

func outcomeSeverity(s prescription.Severity) string {
	switch s {
	case prescription.SeverityError:
		return "error"
	case prescription.SeverityWarning:
		return "warning"
	default:
		return "information"
	}
}

// outcomeCode maps rule codes onto the FHIR issue-type value set
func outcomeCode(c prescription.Code) string {
	switch c {
	case prescription.CodeDoctorRequired, prescription.CodeMedNameRequired,
		prescription.CodeDosageRequired, prescription.CodeScheduleRequired,
		prescription.CodeDurationRequired, prescription.CodeNoMedications:
		return "required"
	case prescription.CodeDoctorTitleMissing, prescription.CodeDoctorNameTooShort,
		prescription.CodeDosageInvalidFormat, prescription.CodeDurationInvalid:
		return "value"
	case prescription.CodeMedNotInFormulary, prescription.CodeScheduleInvalid:
		return "code-invalid"
	default:
		return "business-rule"
	}
}
