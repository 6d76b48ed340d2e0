package patient

import (
	"fmt"
	"time"
)

// Patient is a fully synthetic person with a clinical history. None of
// the identifiers or clinical content correspond to a real individual.
type Patient struct {
	PatientID string `json:"patient_id"`
	MRN       string `json:"mrn"`

	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`

	Address Address `json:"address"`
	Phone   string  `json:"phone"`

	Diagnoses    []Diagnosis   `json:"diagnoses"`
	Encounters   []Encounter   `json:"encounters"`
	Medications  []Medication  `json:"medications"`
	Observations []Observation `json:"observations"`
}

type Address struct {
	Line  string `json:"line"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// Diagnosis is an ICD-10-CM coded condition.
type Diagnosis struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Encounter struct {
	EncounterID   string     `json:"encounter_id"`
	Type          string     `json:"type"`
	AdmitDate     time.Time  `json:"admit_date"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`
}

type Medication struct {
	Name string `json:"name"`
	Dose string `json:"dose"`
	NDC  string `json:"ndc"`
	GPI  string `json:"gpi"`
}

// Observation is a vital sign or lab result coded with LOINC.
type Observation struct {
	LOINC string  `json:"loinc"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (p *Patient) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

// Age is the patient's age in whole years as of now.
func (p *Patient) Age() int {
	return ageAt(p.BirthDate, time.Now())
}

func ageAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.YearDay() < birth.YearDay() {
		years--
	}
	return years
}
