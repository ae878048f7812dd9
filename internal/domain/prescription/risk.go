package prescription

import "fmt"

// RiskLevel is the qualitative band of a risk score
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// MaxRiskScore is the upper clamp of a risk score
const MaxRiskScore = 100

// RiskAssessment summarizes a prescription's issues as a score and band
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

// RiskWeights configures the scorer
type RiskWeights struct {
	Error   int
	Warning int
	Info    int
	// ManyMedicationsThreshold and ManyMedicationsPenalty add a flat amount
	// when the active count exceeds the threshold. This is independent of
	// the polypharmacy warning threshold in Policy.
	ManyMedicationsThreshold int
	ManyMedicationsPenalty   int
	// HighFrom and MediumFrom are inclusive lower bounds of the bands
	HighFrom   int
	MediumFrom int
}

// DefaultRiskWeights returns the standard weighting
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Error:                    20,
		Warning:                  10,
		Info:                     5,
		ManyMedicationsThreshold: 8,
		ManyMedicationsPenalty:   15,
		HighFrom:                 50,
		MediumFrom:               25,
	}
}

// Scorer converts issues into a RiskAssessment
type Scorer struct {
	weights RiskWeights
}

// NewScorer creates a scorer with the given weights
func NewScorer(w RiskWeights) *Scorer {
	return &Scorer{weights: w}
}

// Score weighs each issue by severity, adds the many-medications penalty,
// clamps to [0, MaxRiskScore] and assigns a band. Only error and warning
// messages become factors.
func (s *Scorer) Score(issues []Issue, active int) RiskAssessment {
	w := s.weights
	score := 0
	factors := make([]string, 0, len(issues)+1)
	for _, issue := range issues {
		switch issue.Severity() {
		case SeverityError:
			score += w.Error
			factors = append(factors, issue.Message())
		case SeverityWarning:
			score += w.Warning
			factors = append(factors, issue.Message())
		case SeverityInfo:
			score += w.Info
		}
	}
	if active > w.ManyMedicationsThreshold {
		score += w.ManyMedicationsPenalty
		factors = append(factors, fmt.Sprintf("Taking more than %d medications at the same time", w.ManyMedicationsThreshold))
	}

	if score < 0 {
		score = 0
	}
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return RiskAssessment{Score: score, Level: s.band(score), Factors: factors}
}

func (s *Scorer) band(score int) RiskLevel {
	switch {
	case score >= s.weights.HighFrom:
		return RiskHigh
	case score >= s.weights.MediumFrom:
		return RiskMedium
	default:
		return RiskLow
	}
}
