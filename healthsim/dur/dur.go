// Package dur screens prescriptions against drug utilization review
// rules before adjudication.
package dur

import "time"

// NCPDP DUR conflict codes.
const (
	AlertDrugDrugInteraction    = "DD"
	AlertTherapeuticDuplication = "TD"
	AlertHighDose               = "HD"
	AlertEarlyRefill            = "ER"
	AlertDrugAge                = "PA"
	AlertDrugGender             = "SX"
)

// Alert severities. Level 1 is the most severe and blocks payment.
const (
	SeverityMajor         = 1
	SeverityModerate      = 2
	SeverityInformational = 3
)

// Drug identifies a medication by NDC and GPI.
type Drug struct {
	NDC  string `json:"ndc"`
	GPI  string `json:"gpi"`
	Name string `json:"name"`
}

// Medication is a drug the patient is already taking.
type Medication struct {
	Drug
	LastFillDate time.Time `json:"last_fill_date,omitempty"`
	DaysSupply   int       `json:"days_supply,omitempty"`
}

// Request describes the prescription being screened.
type Request struct {
	Drug        Drug      `json:"drug"`
	Quantity    int       `json:"quantity"`
	DaysSupply  int       `json:"days_supply"`
	ServiceDate time.Time `json:"service_date"`

	CurrentMedications []Medication `json:"current_medications"`

	PatientAge    int    `json:"patient_age"`
	PatientGender string `json:"patient_gender"`
}

// Alert is one DUR finding.
type Alert struct {
	Type            string `json:"type"`
	Severity        int    `json:"severity"`
	Message         string `json:"message"`
	ConflictingDrug string `json:"conflicting_drug,omitempty"`
}

// Result is the outcome of a DUR screen.
type Result struct {
	Passed bool    `json:"passed"`
	Alerts []Alert `json:"alerts,omitempty"`
}

func (r *Result) TotalAlerts() int { return len(r.Alerts) }

// MaxSeverity returns the most severe alert level present, or zero
// when there are no alerts.
func (r *Result) MaxSeverity() int {
	max := 0
	for _, a := range r.Alerts {
		if max == 0 || a.Severity < max {
			max = a.Severity
		}
	}
	return max
}
