package dur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	warfarin     = Drug{NDC: "00056017270", GPI: "83300010000330", Name: "Warfarin 5mg"}
	ibuprofen    = Drug{NDC: "00904515260", GPI: "66100010000310", Name: "Ibuprofen 200mg"}
	atorvastatin = Drug{NDC: "00071015523", GPI: "39400010000310", Name: "Atorvastatin 10mg"}
	rosuvastatin = Drug{NDC: "00078057715", GPI: "39400020000310", Name: "Rosuvastatin 10mg"}
	finasteride  = Drug{NDC: "00006011731", GPI: "24100070100310", Name: "Finasteride 5mg"}
)

func TestWarfarinNSAIDInteraction(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:               warfarin,
		ServiceDate:        time.Now(),
		CurrentMedications: []Medication{{Drug: ibuprofen}},
		PatientAge:         65,
		PatientGender:      "F",
	})

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Alerts)

	var dd *Alert
	for i := range result.Alerts {
		if result.Alerts[i].Type == AlertDrugDrugInteraction {
			dd = &result.Alerts[i]
		}
	}
	require.NotNil(t, dd)
	assert.Equal(t, SeverityMajor, dd.Severity)
	assert.Equal(t, "Ibuprofen 200mg", dd.ConflictingDrug)
	assert.Equal(t, SeverityMajor, result.MaxSeverity())
}

func TestTherapeuticDuplication(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:               rosuvastatin,
		ServiceDate:        time.Now(),
		CurrentMedications: []Medication{{Drug: atorvastatin}},
		PatientAge:         55,
		PatientGender:      "M",
	})

	assert.False(t, result.Passed)
	require.Equal(t, 1, result.TotalAlerts())
	assert.Equal(t, AlertTherapeuticDuplication, result.Alerts[0].Type)
	assert.Equal(t, SeverityModerate, result.Alerts[0].Severity)
	assert.Equal(t, "Atorvastatin 10mg", result.Alerts[0].ConflictingDrug)
}

func TestNSAIDInElderly(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:          ibuprofen,
		ServiceDate:   time.Now(),
		PatientAge:    82,
		PatientGender: "F",
	})

	assert.False(t, result.Passed)
	require.Equal(t, 1, result.TotalAlerts())
	assert.Equal(t, AlertDrugAge, result.Alerts[0].Type)

	// Under 65 the rule does not apply.
	young := v.Validate(Request{Drug: ibuprofen, ServiceDate: time.Now(), PatientAge: 40, PatientGender: "M"})
	assert.True(t, young.Passed)
}

func TestFinasterideGenderContraindication(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:          finasteride,
		ServiceDate:   time.Now(),
		PatientAge:    35,
		PatientGender: "F",
	})

	assert.False(t, result.Passed)
	require.Equal(t, 1, result.TotalAlerts())
	assert.Equal(t, AlertDrugGender, result.Alerts[0].Type)
	assert.Equal(t, SeverityMajor, result.Alerts[0].Severity)

	male := v.Validate(Request{Drug: finasteride, ServiceDate: time.Now(), PatientAge: 55, PatientGender: "M"})
	assert.True(t, male.Passed)
}

func TestEarlyRefill(t *testing.T) {
	v := NewValidator()
	now := time.Now()

	result := v.Validate(Request{
		Drug:        atorvastatin,
		Quantity:    30,
		DaysSupply:  30,
		ServiceDate: now,
		CurrentMedications: []Medication{{
			Drug:         atorvastatin,
			LastFillDate: now.AddDate(0, 0, -10),
			DaysSupply:   30,
		}},
		PatientAge:    55,
		PatientGender: "M",
	})

	assert.False(t, result.Passed)
	require.Equal(t, 1, result.TotalAlerts())
	assert.Equal(t, AlertEarlyRefill, result.Alerts[0].Type)

	// 25 of 30 days elapsed is past the threshold.
	ok := v.Validate(Request{
		Drug:        atorvastatin,
		Quantity:    30,
		DaysSupply:  30,
		ServiceDate: now,
		CurrentMedications: []Medication{{
			Drug:         atorvastatin,
			LastFillDate: now.AddDate(0, 0, -25),
			DaysSupply:   30,
		}},
		PatientAge:    55,
		PatientGender: "M",
	})
	assert.True(t, ok.Passed)
}

func TestHighDose(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:          ibuprofen,
		Quantity:      270,
		DaysSupply:    30,
		ServiceDate:   time.Now(),
		PatientAge:    40,
		PatientGender: "M",
	})

	assert.False(t, result.Passed)
	require.Equal(t, 1, result.TotalAlerts())
	assert.Equal(t, AlertHighDose, result.Alerts[0].Type)
}

func TestCleanPrescription(t *testing.T) {
	v := NewValidator()

	result := v.Validate(Request{
		Drug:          atorvastatin,
		Quantity:      30,
		DaysSupply:    30,
		ServiceDate:   time.Now(),
		PatientAge:    55,
		PatientGender: "M",
	})

	assert.True(t, result.Passed)
	assert.Zero(t, result.TotalAlerts())
	assert.Zero(t, result.MaxSeverity())
}
