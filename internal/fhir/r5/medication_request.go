package r5

import "encoding/json"

// MedicationRequest represents a FHIR R5 MedicationRequest resource.
type MedicationRequest struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`

	Status string `json:"status,omitempty"` // active | on-hold | cancelled | completed | entered-in-error | stopped | draft | unknown
	Intent string `json:"intent,omitempty"` // proposal | plan | order | original-order | reflex-order | filler-order | instance-order | option

	// Medication being requested (R5 uses CodeableReference)
	Medication CodeableReference `json:"medication"`

	// Subject is the resident the medication is for
	Subject    *Reference `json:"subject,omitempty"`
	AuthoredOn string     `json:"authoredOn,omitempty"`
	Requester  *Reference `json:"requester,omitempty"`

	Note                      []Annotation     `json:"note,omitempty"`
	RenderedDosageInstruction string           `json:"renderedDosageInstruction,omitempty"`
	DosageInstruction         []Dosage         `json:"dosageInstruction,omitempty"`
	DispenseRequest           *DispenseRequest `json:"dispenseRequest,omitempty"`
}

// DispenseRequest contains information about the requested dispensing.
type DispenseRequest struct {
	ValidityPeriod         *Period   `json:"validityPeriod,omitempty"`
	NumberOfRepeatsAllowed int       `json:"numberOfRepeatsAllowed,omitempty"`
	Quantity               *Quantity `json:"quantity,omitempty"`
	ExpectedSupplyDuration *Duration `json:"expectedSupplyDuration,omitempty"`
}

// Dosage contains dosage instructions for the medication.
type Dosage struct {
	Sequence           int               `json:"sequence,omitempty"`
	Text               string            `json:"text,omitempty"`
	PatientInstruction string            `json:"patientInstruction,omitempty"`
	Timing             *Timing           `json:"timing,omitempty"`
	AsNeeded           bool              `json:"asNeeded,omitempty"`
	AsNeededFor        []CodeableConcept `json:"asNeededFor,omitempty"`
	Route              *CodeableConcept  `json:"route,omitempty"`
	DoseAndRate        []DoseAndRate     `json:"doseAndRate,omitempty"`
}

// DoseAndRate contains dose/rate information.
type DoseAndRate struct {
	Type         *CodeableConcept `json:"type,omitempty"`
	DoseRange    *Range           `json:"doseRange,omitempty"`
	DoseQuantity *Quantity        `json:"doseQuantity,omitempty"`
}

// Timing contains timing information for dosage.
type Timing struct {
	Repeat *TimingRepeat    `json:"repeat,omitempty"`
	Code   *CodeableConcept `json:"code,omitempty"`
}

// TimingRepeat contains repeat details for timing.
type TimingRepeat struct {
	Frequency  int      `json:"frequency,omitempty"`
	Period     float64  `json:"period,omitempty"`
	PeriodUnit string   `json:"periodUnit,omitempty"`
	TimeOfDay  []string `json:"timeOfDay,omitempty"`
	When       []string `json:"when,omitempty"`
}

// MedicationDisplay returns the concept text, falling back to the first
// coding display
func (m *MedicationRequest) MedicationDisplay() string {
	c := m.Medication.Concept
	if c == nil {
		if m.Medication.Reference != nil {
			return m.Medication.Reference.Display
		}
		return ""
	}
	if c.Text != "" {
		return c.Text
	}
	for _, coding := range c.Coding {
		if coding.Display != "" {
			return coding.Display
		}
	}
	return ""
}

// PrimaryDosage returns the first dosage instruction, or nil
func (m *MedicationRequest) PrimaryDosage() *Dosage {
	if len(m.DosageInstruction) == 0 {
		return nil
	}
	return &m.DosageInstruction[0]
}

// DoseQuantity returns the first dose quantity of the primary dosage
func (m *MedicationRequest) DoseQuantity() *Quantity {
	d := m.PrimaryDosage()
	if d == nil {
		return nil
	}
	for _, dr := range d.DoseAndRate {
		if dr.DoseQuantity != nil {
			return dr.DoseQuantity
		}
	}
	return nil
}

// TimingCode returns the schedule code of the primary dosage timing
func (m *MedicationRequest) TimingCode() string {
	d := m.PrimaryDosage()
	if d == nil || d.Timing == nil {
		return ""
	}
	return d.Timing.Code.FirstCode()
}

// SupplyDuration returns the expected supply duration, or nil
func (m *MedicationRequest) SupplyDuration() *Duration {
	if m.DispenseRequest == nil {
		return nil
	}
	return m.DispenseRequest.ExpectedSupplyDuration
}

// Instructions returns the patient instruction, falling back to the dosage
// text and then the rendered instruction
func (m *MedicationRequest) Instructions() string {
	if d := m.PrimaryDosage(); d != nil {
		if d.PatientInstruction != "" {
			return d.PatientInstruction
		}
		if d.Text != "" {
			return d.Text
		}
	}
	return m.RenderedDosageInstruction
}

// Cancelled reports whether the order was withdrawn and should be skipped
func (m *MedicationRequest) Cancelled() bool {
	switch m.Status {
	case StatusCancelled, StatusEnteredInError, StatusStopped:
		return true
	}
	return false
}

// ToJSON serializes the MedicationRequest to JSON.
func (m *MedicationRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON deserializes a MedicationRequest from JSON.
func (m *MedicationRequest) FromJSON(data []byte) error {
	return json.Unmarshal(data, m)
}
