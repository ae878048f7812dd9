package reference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

func validDocument() *Document {
	return &Document{
		Formulary: []prescription.Drug{
			{Name: "Paracetamol", MaxDailyDose: 3000, Unit: "mg"},
			{Name: "Warfarin", MaxDailyDose: 10, Unit: "mg", Interactions: []string{"Aspirin", "Ginkgo"}},
		},
		Schedules: []prescription.Schedule{
			{Code: "sang", TimeSlots: []string{"07:00"}},
			{Code: "khi-can"},
		},
	}
}

func dataErrorCodes(t *testing.T, err error) []string {
	t.Helper()
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "expected joined errors, got %T", err)
	var out []string
	for _, e := range joined.Unwrap() {
		var de *DataError
		require.True(t, errors.As(e, &de))
		out = append(out, de.Code)
	}
	return out
}

func TestEmbeddedDocumentBuilds(t *testing.T) {
	doc, err := NewEmbeddedSource().Load(context.Background())
	require.NoError(t, err)

	formulary, schedules, err := doc.Build()
	require.NoError(t, err)
	assert.Greater(t, formulary.Len(), 20)

	for _, code := range []string{"sang", "toi", "sang-toi", "sang-trua-toi", "4-lan", "khi-can"} {
		_, ok := schedules.Lookup(code)
		assert.True(t, ok, code)
	}
	prn, _ := schedules.Lookup("khi-can")
	assert.True(t, prn.AsNeeded())

	warfarin, ok := formulary.Lookup("warfarin")
	require.True(t, ok)
	assert.True(t, warfarin.InteractsWith("Aspirin"))
}

func TestValidate_AcceptsDanglingInteractions(t *testing.T) {
	assert.NoError(t, validDocument().Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	doc := validDocument()
	doc.Formulary = append(doc.Formulary,
		prescription.Drug{Name: ""},
		prescription.Drug{Name: "PARACETAMOL", MaxDailyDose: 0, Unit: ""},
		prescription.Drug{Name: "Aspirin", MaxDailyDose: 325, Unit: "mg", Interactions: []string{" "}},
	)
	doc.Schedules = append(doc.Schedules,
		prescription.Schedule{Code: " sang "},
		prescription.Schedule{Code: "toi", TimeSlots: []string{"7pm"}},
		prescription.Schedule{Code: ""},
	)

	err := doc.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Equal(t, []string{
		"NAME_REQUIRED",
		"DUPLICATE_DRUG",
		"INVALID_MAX_DOSE",
		"UNIT_REQUIRED",
		"EMPTY_INTERACTION",
		"DUPLICATE_SCHEDULE",
		"INVALID_TIME_SLOT",
		"CODE_REQUIRED",
	}, dataErrorCodes(t, err))
}

func TestValidate_EmptyDocument(t *testing.T) {
	err := (&Document{}).Validate()

	assert.Equal(t, []string{"EMPTY_FORMULARY", "EMPTY_SCHEDULES"}, dataErrorCodes(t, err))
}

func TestBuild_RejectsInvalid(t *testing.T) {
	doc := validDocument()
	doc.Formulary[0].MaxDailyDose = -1

	f, s, err := doc.Build()

	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Nil(t, f)
	assert.Nil(t, s)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"test","formulary":[{"name":"Metformin","max_daily_dose":2000,"unit":"mg"}],"schedules":[{"code":"sang","time_slots":["07:00"]}]}`), 0o600))

	doc, err := NewFileSource(path).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "test", doc.Version)
	assert.Len(t, doc.Formulary, 1)
	assert.Equal(t, []string{"07:00"}, doc.Schedules[0].TimeSlots)
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"formulary":`), 0o600))
	_, err = NewFileSource(path).Load(context.Background())
	assert.ErrorContains(t, err, "decode reference document")
}
