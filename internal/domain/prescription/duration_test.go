package prescription

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		days int
	}{
		{"7 ngày", true, 7},
		{"2 tuần", true, 14},
		{"3 tháng", true, 90},
		{"1 năm", true, 365},
		{"10 NGÀY", true, 10},
		{" 5 ngày ", true, 5},
		{"0 ngày", false, 0},
		{"7ngày", false, 0},
		{"7  ngày", false, 0},
		{"7 days", false, 0},
		{"1.5 tháng", false, 0},
		{"-3 ngày", false, 0},
		{"ngày", false, 0},
		{"99999999999999999999 năm", true, math.MaxInt},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			d, ok := ParseDuration(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.days, d.Days())
			}
		})
	}
}

func TestLongTermTreatmentThreshold(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		duration string
		want     bool
	}{
		{"90 ngày", false},
		{"3 tháng", false},
		{"91 ngày", true},
		{"13 tuần", true},
		{"1 năm", true},
	}
	for _, tc := range tests {
		t.Run(tc.duration, func(t *testing.T) {
			m := validMed("Metformin")
			m.Duration = tc.duration
			report := v.Validate("BS. Nguyễn Văn An", []Medication{m})
			assert.Equal(t, tc.want, report.Has(CodeLongTermTreatment))
			assert.True(t, report.Valid())
		})
	}
}

func TestDuration_DaysSaturates(t *testing.T) {
	d := Duration{Count: int(^uint(0) >> 1), Unit: "năm"}
	assert.Equal(t, int(^uint(0)>>1), d.Days())
}

func TestOversizedDurationIsLongTerm(t *testing.T) {
	m := validMed("Metformin")
	m.Duration = "99999999999999999999 ngày"
	report := newTestValidator().Validate("BS. Nguyễn Văn An", []Medication{m})
	assert.Equal(t, []Code{CodeLongTermTreatment}, codes(report.Issues()))
	assert.True(t, report.Valid())
}
