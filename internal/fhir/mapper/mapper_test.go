package mapper

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	fhir "github.com/khoadang148/carehome-system-sub011/internal/fhir/r5"
)

func float(v float64) *float64 { return &v }

func loadFixture(t *testing.T) *Request {
	t.Helper()
	data, err := os.ReadFile("testdata/validation_request.json")
	require.NoError(t, err)
	var req Request
	require.NoError(t, json.Unmarshal(data, &req))
	return &req
}

func TestPrescription_Fixture(t *testing.T) {
	prescriber, meds := Prescription(loadFixture(t))

	assert.Equal(t, "BS. Trần Thị Bình", prescriber)
	require.Len(t, meds, 2, "cancelled order is skipped")

	assert.Equal(t, prescription.Medication{
		Name:         "Metformin",
		Dosage:       "500mg",
		ScheduleCode: "sang-toi",
		Duration:     "30 ngày",
		Instructions: "Uống sau bữa sáng và bữa tối",
	}, meds[0])

	assert.Equal(t, prescription.Medication{
		Name:         "Paracetamol",
		Dosage:       "0.5g",
		ScheduleCode: "khi-can",
		Duration:     "2 tuần",
		Instructions: "Khi sốt trên 38.5 độ",
	}, meds[1])
}

func TestMedication_MissingFieldsAreEmpty(t *testing.T) {
	med := Medication(&fhir.MedicationRequest{ResourceType: "MedicationRequest"})
	assert.Equal(t, prescription.Medication{}, med)
}

func TestPrescriber(t *testing.T) {
	tests := []struct {
		name   string
		prac   *fhir.Practitioner
		orders []fhir.MedicationRequest
		want   string
	}{
		{
			name: "prefix given family",
			prac: &fhir.Practitioner{Name: []fhir.HumanName{{Prefix: []string{"ThS.", "BS."}, Given: []string{"Lê"}, Family: "Hoa"}}},
			want: "ThS. BS. Lê Hoa",
		},
		{
			name: "text when no parts",
			prac: &fhir.Practitioner{Name: []fhir.HumanName{{Text: " BS. Phạm Minh "}}},
			want: "BS. Phạm Minh",
		},
		{
			name:   "requester display fallback",
			prac:   &fhir.Practitioner{},
			orders: []fhir.MedicationRequest{{Requester: &fhir.Reference{Display: "Dr. Nguyen"}}},
			want:   "Dr. Nguyen",
		},
		{
			name: "nothing",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prescriber(tt.prac, tt.orders))
		})
	}
}

func TestDosage(t *testing.T) {
	assert.Equal(t, "", Dosage(nil))
	assert.Equal(t, "", Dosage(&fhir.Quantity{Unit: "mg"}))
	assert.Equal(t, "10mg", Dosage(&fhir.Quantity{Value: float(10), Unit: "mg"}))
	assert.Equal(t, "2.5ml", Dosage(&fhir.Quantity{Value: float(2.5), Code: "ml"}))
	assert.Equal(t, "1000IU", Dosage(&fhir.Quantity{Value: float(1000), Unit: "IU", Code: "[iU]"}))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   *fhir.Duration
		want string
	}{
		{nil, ""},
		{&fhir.Duration{Code: "d"}, ""},
		{&fhir.Duration{Value: float(7), Code: "d"}, "7 ngày"},
		{&fhir.Duration{Value: float(2), Code: "wk"}, "2 tuần"},
		{&fhir.Duration{Value: float(3), Unit: "mo"}, "3 tháng"},
		{&fhir.Duration{Value: float(1), Code: "a"}, "1 năm"},
		{&fhir.Duration{Value: float(12), Code: "h"}, "12 h"},
		{&fhir.Duration{Value: float(1.5), Code: "d"}, "1.5 ngày"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.in))
	}
}

func TestOutcome(t *testing.T) {
	v := prescription.NewValidator(
		prescription.NewFormulary([]prescription.Drug{{Name: "Metformin", MaxDailyDose: 2000, Unit: "mg"}}),
		prescription.NewScheduleCatalog([]prescription.Schedule{{Code: "sang", TimeSlots: []string{"07:00"}}}),
	)
	report := v.Validate("", []prescription.Medication{
		{Name: "Metformin", Dosage: "500mg", ScheduleCode: "sang", Duration: "7 ngày"},
	})

	outcome := Outcome(report.Issues())
	assert.Equal(t, "OperationOutcome", outcome.ResourceType)
	require.NotEmpty(t, outcome.Issue)

	first := outcome.Issue[0]
	assert.Equal(t, "error", first.Severity)
	assert.Equal(t, "required", first.Code)
	assert.Equal(t, string(prescription.CodeDoctorRequired), first.Details.Coding[0].Code)
	assert.Equal(t, fhir.SystemIssueCode, first.Details.Coding[0].System)
	assert.NotEmpty(t, first.Diagnostics)
}

func TestOutcome_Empty(t *testing.T) {
	outcome := Outcome(nil)
	data, err := json.Marshal(outcome)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resourceType":"OperationOutcome","issue":[]}`, string(data))
}
