// Package reference loads the formulary and dosing schedule catalog that the
// prescription validator reads. Data may come from the embedded default set,
// a JSON file, Postgres or an S3 object; every source yields a Document that
// is checked before it is turned into lookup tables.
package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

// ErrInvalidDocument is wrapped by every DataError
var ErrInvalidDocument = errors.New("invalid reference document")

// DataError describes one malformed entry in a reference document
type DataError struct {
	Field   string
	Code    string
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *DataError) Unwrap() error {
	return ErrInvalidDocument
}

// Document is the serialized form of the reference tables
type Document struct {
	Version   string                  `json:"version,omitempty"`
	Formulary []prescription.Drug     `json:"formulary"`
	Schedules []prescription.Schedule `json:"schedules"`
}

// Parse decodes a JSON reference document
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reference document: %w", err)
	}
	return &doc, nil
}

// Validate checks the document and returns every problem found, joined
func (d *Document) Validate() error {
	var errs []error
	add := func(field, code, format string, args ...interface{}) {
		errs = append(errs, &DataError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if len(d.Formulary) == 0 {
		add("formulary", "EMPTY_FORMULARY", "at least one drug is required")
	}
	names := make(map[string]int, len(d.Formulary))
	for i, drug := range d.Formulary {
		field := fmt.Sprintf("formulary[%d]", i)
		key := prescription.NameKey(drug.Name)
		if key == "" {
			add(field+".name", "NAME_REQUIRED", "drug name is required")
			continue
		}
		if first, dup := names[key]; dup {
			add(field+".name", "DUPLICATE_DRUG", "%q duplicates formulary[%d]", drug.Name, first)
		} else {
			names[key] = i
		}
		if !(drug.MaxDailyDose > 0) || math.IsInf(drug.MaxDailyDose, 1) {
			add(field+".max_daily_dose", "INVALID_MAX_DOSE", "maximum daily dose of %q must be a positive number", drug.Name)
		}
		if prescription.NameKey(drug.Unit) == "" {
			add(field+".unit", "UNIT_REQUIRED", "unit of %q is required", drug.Name)
		}
		for j, other := range drug.Interactions {
			if prescription.NameKey(other) == "" {
				add(fmt.Sprintf("%s.interactions[%d]", field, j), "EMPTY_INTERACTION", "interaction target is empty")
			}
		}
	}

	if len(d.Schedules) == 0 {
		add("schedules", "EMPTY_SCHEDULES", "at least one dosing schedule is required")
	}
	codes := make(map[string]int, len(d.Schedules))
	for i, s := range d.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		code := prescription.CodeKey(s.Code)
		if code == "" {
			add(field+".code", "CODE_REQUIRED", "schedule code is required")
			continue
		}
		if first, dup := codes[code]; dup {
			add(field+".code", "DUPLICATE_SCHEDULE", "%q duplicates schedules[%d]", code, first)
		} else {
			codes[code] = i
		}
		for j, slot := range s.TimeSlots {
			if _, err := time.Parse("15:04", slot); err != nil {
				add(fmt.Sprintf("%s.time_slots[%d]", field, j), "INVALID_TIME_SLOT", "time slot %q must be HH:MM", slot)
			}
		}
	}

	return errors.Join(errs...)
}

// Build validates the document and produces the lookup tables
func (d *Document) Build() (*prescription.Formulary, *prescription.ScheduleCatalog, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	return prescription.NewFormulary(d.Formulary), prescription.NewScheduleCatalog(d.Schedules), nil
}
