// Package prescription implements the prescription validation and risk-scoring engine.
//
// The engine is pure: it reads the injected formulary and schedule catalog, never
// mutates them, and performs no I/O. A single Validator may be shared by any
// number of goroutines.
package prescription

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity classifies a validation issue
type Severity int

const (
	// SeverityError blocks acceptance of the prescription
	SeverityError Severity = iota + 1
	// SeverityWarning requires human acknowledgement but does not block
	SeverityWarning
	// SeverityInfo is advisory only
	SeverityInfo
)

// String returns the lowercase wire name
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown severity %d", int(s))
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// Code is the machine-readable identifier of a rule outcome
type Code string

const (
	CodeDoctorRequired      Code = "DOCTOR_REQUIRED"
	CodeDoctorTitleMissing  Code = "DOCTOR_TITLE_MISSING"
	CodeDoctorNameTooShort  Code = "DOCTOR_NAME_TOO_SHORT"
	CodeMedNameRequired     Code = "MED_NAME_REQUIRED"
	CodeMedNotInFormulary   Code = "MED_NOT_IN_FORMULARY"
	CodeDosageRequired      Code = "DOSAGE_REQUIRED"
	CodeDosageInvalidFormat Code = "DOSAGE_INVALID_FORMAT"
	CodeDosageExceedsMax    Code = "DOSAGE_EXCEEDS_MAX"
	CodeHighDoseElderly     Code = "HIGH_DOSE_ELDERLY"
	CodeScheduleRequired    Code = "SCHEDULE_REQUIRED"
	CodeScheduleInvalid     Code = "SCHEDULE_INVALID"
	CodeDurationRequired    Code = "DURATION_REQUIRED"
	CodeDurationInvalid     Code = "DURATION_INVALID_FORMAT"
	CodeLongTermTreatment   Code = "LONG_TERM_TREATMENT"
	CodeDrugInteraction     Code = "DRUG_INTERACTION"
	CodeDuplicateMedication Code = "DUPLICATE_MEDICATION"
	CodeNoMedications       Code = "NO_MEDICATIONS"
	CodePolypharmacyRisk    Code = "POLYPHARMACY_RISK"
	CodeComplexSchedule     Code = "COMPLEX_SCHEDULE"
)

// Issue is a single rule finding. Issues are values and cannot be modified
// once created.
type Issue struct {
	field    string
	message  string
	severity Severity
	code     Code
}

func newIssue(severity Severity, code Code, field, message string) Issue {
	return Issue{field: field, message: message, severity: severity, code: code}
}

func errorIssue(code Code, field, format string, args ...interface{}) Issue {
	return newIssue(SeverityError, code, field, fmt.Sprintf(format, args...))
}

func warningIssue(code Code, field, format string, args ...interface{}) Issue {
	return newIssue(SeverityWarning, code, field, fmt.Sprintf(format, args...))
}

func infoIssue(code Code, field, format string, args ...interface{}) Issue {
	return newIssue(SeverityInfo, code, field, fmt.Sprintf(format, args...))
}

// Field returns the input path the issue refers to
func (i Issue) Field() string { return i.field }

// Message returns the human-readable description
func (i Issue) Message() string { return i.message }

// Severity returns the issue severity
func (i Issue) Severity() Severity { return i.severity }

// Code returns the machine code
func (i Issue) Code() Code { return i.code }

// IsBlocking reports whether the issue prevents acceptance
func (i Issue) IsBlocking() bool { return i.severity == SeverityError }

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", i.severity, i.code, i.field, i.message)
}

type issueJSON struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
}

// MarshalJSON implements json.Marshaler
func (i Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(issueJSON{Field: i.field, Message: i.message, Severity: i.severity, Code: i.code})
}

// UnmarshalJSON implements json.Unmarshaler so persisted reports can be read back
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw issueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = newIssue(raw.Severity, raw.Code, raw.Field, raw.Message)
	return nil
}
