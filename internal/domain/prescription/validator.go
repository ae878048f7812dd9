package prescription

import "encoding/json"

// Validator runs the prescription rules against injected reference data.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	formulary *Formulary
	schedules *ScheduleCatalog
	policy    Policy
	scorer    *Scorer
}

// Option configures a Validator
type Option func(*Validator)

// WithPolicy overrides the rule thresholds
func WithPolicy(p Policy) Option {
	return func(v *Validator) { v.policy = p }
}

// WithRiskWeights overrides the scorer weights
func WithRiskWeights(w RiskWeights) Option {
	return func(v *Validator) { v.scorer = NewScorer(w) }
}

// NewValidator creates a validator. A nil formulary or catalog behaves as empty.
func NewValidator(formulary *Formulary, schedules *ScheduleCatalog, opts ...Option) *Validator {
	if formulary == nil {
		formulary = NewFormulary(nil)
	}
	if schedules == nil {
		schedules = NewScheduleCatalog(nil)
	}
	v := &Validator{
		formulary: formulary,
		schedules: schedules,
		policy:    DefaultPolicy(),
		scorer:    NewScorer(DefaultRiskWeights()),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Formulary returns the reference formulary
func (v *Validator) Formulary() *Formulary { return v.formulary }

// Schedules returns the reference schedule catalog
func (v *Validator) Schedules() *ScheduleCatalog { return v.schedules }

// Validate checks the prescriber and the ordered medication list. Issues are
// concatenated in a fixed order: prescriber, each medication in list order,
// interactions, duplicates, then list-level policy.
func (v *Validator) Validate(prescriber string, meds []Medication) *Report {
	var issues []Issue
	issues = append(issues, checkPrescriber(prescriber)...)
	for i, m := range meds {
		issues = append(issues, v.checkMedication(i, m)...)
	}
	issues = append(issues, v.checkInteractions(meds)...)
	issues = append(issues, checkDuplicates(meds)...)
	issues = append(issues, v.checkListPolicy(meds)...)

	return &Report{issues: issues, active: activeCount(meds)}
}

// Assess scores a report
func (v *Validator) Assess(r *Report) RiskAssessment {
	return v.scorer.Score(r.issues, r.active)
}

// Evaluate validates and scores in one call
func (v *Validator) Evaluate(prescriber string, meds []Medication) (*Report, RiskAssessment) {
	r := v.Validate(prescriber, meds)
	return r, v.Assess(r)
}

// Report is the ordered outcome of one validation run
type Report struct {
	issues []Issue
	active int
}

// Summary counts issues per severity
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Issues returns a copy of the ordered issues
func (r *Report) Issues() []Issue {
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Valid reports whether no issue has error severity
func (r *Report) Valid() bool {
	for _, issue := range r.issues {
		if issue.IsBlocking() {
			return false
		}
	}
	return true
}

// ActiveCount returns the number of medications with a name
func (r *Report) ActiveCount() int { return r.active }

// Errors returns the blocking issues
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, issue := range r.issues {
		if issue.IsBlocking() {
			out = append(out, issue)
		}
	}
	return out
}

// Has reports whether any issue carries the code
func (r *Report) Has(code Code) bool {
	return r.Count(code) > 0
}

// Count returns the number of issues with the code
func (r *Report) Count(code Code) int {
	n := 0
	for _, issue := range r.issues {
		if issue.Code() == code {
			n++
		}
	}
	return n
}

// Summary returns per-severity counts
func (r *Report) Summary() Summary {
	var s Summary
	for _, issue := range r.issues {
		switch issue.Severity() {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		}
	}
	return s
}

// MarshalJSON implements json.Marshaler
func (r *Report) MarshalJSON() ([]byte, error) {
	issues := r.issues
	if issues == nil {
		issues = []Issue{}
	}
	return json.Marshal(struct {
		Valid       bool    `json:"valid"`
		ActiveCount int     `json:"active_count"`
		Summary     Summary `json:"summary"`
		Issues      []Issue `json:"issues"`
	}{r.Valid(), r.active, r.Summary(), issues})
}
