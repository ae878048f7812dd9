// Package mapper converts FHIR R5 medication orders into prescription lines
// and validation reports back into OperationOutcome resources.
package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	fhir "github.com/khoadang148/carehome-system-sub011/internal/fhir/r5"
)

// Request is the body accepted by the FHIR validation endpoint
type Request struct {
	Practitioner       *fhir.Practitioner       `json:"practitioner,omitempty"`
	MedicationRequests []fhir.MedicationRequest `json:"medicationRequests"`
}

// durationUnits maps UCUM time codes to the Vietnamese words the duration
// rule accepts
var durationUnits = map[string]string{
	"d":  "ngày",
	"wk": "tuần",
	"mo": "tháng",
	"a":  "năm",
}

// Prescription maps a request into the prescriber name and medication lines.
// Cancelled orders are skipped. Missing fields map to empty strings so the
// validator reports them.
func Prescription(req *Request) (string, []prescription.Medication) {
	if req == nil {
		return "", nil
	}
	meds := make([]prescription.Medication, 0, len(req.MedicationRequests))
	for i := range req.MedicationRequests {
		mr := &req.MedicationRequests[i]
		if mr.Cancelled() {
			continue
		}
		meds = append(meds, Medication(mr))
	}
	return Prescriber(req.Practitioner, req.MedicationRequests), meds
}

// Medication maps one MedicationRequest
func Medication(mr *fhir.MedicationRequest) prescription.Medication {
	return prescription.Medication{
		Name:         strings.TrimSpace(mr.MedicationDisplay()),
		Dosage:       Dosage(mr.DoseQuantity()),
		ScheduleCode: mr.TimingCode(),
		Duration:     Duration(mr.SupplyDuration()),
		Instructions: strings.TrimSpace(mr.Instructions()),
	}
}

// Prescriber returns the practitioner's display name, falling back to the
// requester display of the first order
func Prescriber(p *fhir.Practitioner, orders []fhir.MedicationRequest) string {
	if p != nil {
		if name := p.DisplayName(); name != "" {
			return name
		}
	}
	for _, mr := range orders {
		if mr.Requester != nil && strings.TrimSpace(mr.Requester.Display) != "" {
			return strings.TrimSpace(mr.Requester.Display)
		}
	}
	return ""
}

// Dosage renders a quantity as value immediately followed by unit, e.g. 500mg
func Dosage(q *fhir.Quantity) string {
	if q == nil || q.Value == nil {
		return ""
	}
	unit := q.Unit
	if unit == "" {
		unit = q.Code
	}
	return formatNumber(*q.Value) + strings.TrimSpace(unit)
}

// Duration renders a supply duration as "<n> <unit>" using the Vietnamese
// unit words. Unknown units pass through unchanged.
func Duration(d *fhir.Duration) string {
	if d == nil || d.Value == nil {
		return ""
	}
	unit := d.Code
	if unit == "" {
		unit = d.Unit
	}
	if word, ok := durationUnits[strings.ToLower(unit)]; ok {
		unit = word
	}
	return fmt.Sprintf("%s %s", formatNumber(*d.Value), unit)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
