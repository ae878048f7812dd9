package prescription

func testFormulary() *Formulary {
	return NewFormulary([]Drug{
		{Name: "Paracetamol", MaxDailyDose: 4000, Unit: "mg", Category: "analgesic"},
		{Name: "Metformin", MaxDailyDose: 2000, Unit: "mg", Category: "antidiabetic"},
		// Warfarin declares Aspirin, Aspirin does not declare Warfarin.
		{Name: "Warfarin", MaxDailyDose: 10, Unit: "mg", Category: "anticoagulant", Interactions: []string{"aspirin"}},
		{Name: "Aspirin", MaxDailyDose: 4000, Unit: "mg", Category: "antiplatelet"},
		// Mutual declaration.
		{Name: "Clopidogrel", MaxDailyDose: 75, Unit: "mg", Interactions: []string{"Omeprazole"}},
		{Name: "Omeprazole", MaxDailyDose: 40, Unit: "mg", Interactions: []string{"CLOPIDOGREL"}},
	})
}

func testSchedules() *ScheduleCatalog {
	return NewScheduleCatalog([]Schedule{
		{Code: "sang", TimeSlots: []string{"07:00"}, Shorthand: "QD"},
		{Code: "sang-toi", TimeSlots: []string{"07:00", "19:00"}, Shorthand: "BID"},
		{Code: "sang-trua-toi", TimeSlots: []string{"07:00", "12:00", "19:00"}, Shorthand: "TID"},
		{Code: "khi-can", Shorthand: "PRN"},
	})
}

func newTestValidator() *Validator {
	return NewValidator(testFormulary(), testSchedules())
}

// validMed returns an entry that produces no issues on its own
func validMed(name string) Medication {
	return Medication{Name: name, Dosage: "1mg", ScheduleCode: "sang", Duration: "7 ngày"}
}

func codes(issues []Issue) []Code {
	out := make([]Code, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code()
	}
	return out
}
