package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
)

const testReference = `{
  "version": "cli-test",
  "formulary": [
    {"name": "Metformin", "max_daily_dose": 2000, "unit": "mg", "category": "ANTIDIABETIC"},
    {"name": "Warfarin", "max_daily_dose": 10, "unit": "mg", "interactions": ["Aspirin", "Ghost"]},
    {"name": "Aspirin", "max_daily_dose": 325, "unit": "mg"}
  ],
  "schedules": [
    {"code": "sang", "time_slots": ["07:00"]},
    {"code": "sang-toi", "time_slots": ["07:00", "19:00"]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate_TextOutput(t *testing.T) {
	ref := writeFile(t, "reference.json", testReference)
	input := `{"prescriber": "BS. Nguyễn Văn An", "medications": [
		{"name": "Metformin", "dosage": "500mg", "schedule_code": "sang-toi", "duration": "30 ngày"}
	]}`

	out, err := run(t, input, "validate", "--reference", ref)
	require.NoError(t, err)
	assert.Contains(t, out, "Prescription VALID")
	assert.Contains(t, out, "reference version: cli-test")
	assert.Contains(t, out, "active medications: 1")
}

func TestValidate_JSONOutputFromFile(t *testing.T) {
	ref := writeFile(t, "reference.json", testReference)
	input := writeFile(t, "request.json", `{"prescriber": "", "medications": []}`)

	out, err := run(t, "", "validate", input, "--reference", ref, "-o", "json")
	require.NoError(t, err)

	var res struct {
		Valid  bool `json:"valid"`
		Issues []struct {
			Code string `json:"code"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)

	codes := make([]string, 0, len(res.Issues))
	for _, i := range res.Issues {
		codes = append(codes, i.Code)
	}
	assert.Contains(t, codes, "DOCTOR_REQUIRED")
	assert.Contains(t, codes, "NO_MEDICATIONS")
}

func TestValidate_FailOnInvalid(t *testing.T) {
	ref := writeFile(t, "reference.json", testReference)
	input := `{"prescriber": "BS. Nguyễn Văn An", "medications": [
		{"name": "Aspirin", "dosage": "81mg", "schedule_code": "moi-gio", "duration": "7 ngày"}
	]}`

	out, err := run(t, input, "validate", "--reference", ref, "--fail-on-invalid")
	assert.ErrorIs(t, err, errInvalidPrescription)
	assert.Contains(t, out, "INVALID")
	assert.Contains(t, out, "SCHEDULE_INVALID")

	_, err = run(t, input, "validate", "--reference", ref)
	assert.NoError(t, err)
}

func TestValidate_UnknownOutput(t *testing.T) {
	ref := writeFile(t, "reference.json", testReference)
	_, err := run(t, `{"prescriber": "BS. Nguyễn Văn An", "medications": []}`,
		"validate", "--reference", ref, "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestValidate_BadReference(t *testing.T) {
	ref := writeFile(t, "reference.json", `{"formulary": [], "schedules": []}`)
	_, err := run(t, `{"prescriber": "BS. Nguyễn Văn An", "medications": []}`, "validate", "--reference", ref)
	assert.Error(t, err)
}

func TestParseRequest(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"prescriber": "BS. An Bình", "medications": [{"name": "Aspirin"}]}`), false)
		require.NoError(t, err)
		assert.Equal(t, "BS. An Bình", req.Prescriber)
		assert.Equal(t, assessment.ChannelCLI, req.Channel)
		require.Len(t, req.Medications, 1)
		assert.Equal(t, "Aspirin", req.Medications[0].Name)
	})

	t.Run("fhir", func(t *testing.T) {
		data, err := os.ReadFile("../../internal/fhir/mapper/testdata/validation_request.json")
		require.NoError(t, err)
		req, err := parseRequest(data, true)
		require.NoError(t, err)
		assert.Equal(t, "BS. Trần Thị Bình", req.Prescriber)
		assert.Len(t, req.Medications, 2)
		assert.Equal(t, assessment.ChannelCLI, req.Channel)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseRequest([]byte(`{`), false)
		assert.Error(t, err)
		_, err = parseRequest([]byte(`[`), true)
		assert.Error(t, err)
	})
}

func TestReadInput(t *testing.T) {
	data, err := readInput(strings.NewReader("stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", string(data))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReferenceCheck(t *testing.T) {
	ref := writeFile(t, "reference.json", testReference)

	out, err := run(t, "", "reference", "check", ref)
	require.NoError(t, err)
	assert.Contains(t, out, "version:   cli-test")
	assert.Contains(t, out, "drugs:     3")
	assert.Contains(t, out, "schedules: 2")
	assert.Contains(t, out, "Warfarin -> Ghost")
	assert.NotContains(t, out, "Warfarin -> Aspirin")
}

func TestParseBatch(t *testing.T) {
	reqs, err := parseBatch([]byte(`[{"request_id": "a", "prescriber": "BS. An Bình"}, {"prescriber": "BS. Hoa Lan"}]`))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "a", reqs[0].RequestID)
	assert.Empty(t, reqs[1].RequestID)

	reqs, err = parseBatch([]byte(`{"request_id": "b", "prescriber": "BS. An Bình"}`))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "b", reqs[0].RequestID)

	_, err = parseBatch([]byte(`nope`))
	assert.Error(t, err)
}

func TestDeleteTopicsRequiresConfirmation(t *testing.T) {
	cmd := topicsCmd()
	del, _, err := cmd.Find([]string{"delete"})
	require.NoError(t, err)
	err = del.RunE(del, []string{"rxcheck.validation.requests"})
	assert.ErrorContains(t, err, "--yes")
}
