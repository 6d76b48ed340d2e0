// fhir package contains structs representing FHIR R4 data.
// These data models are a lighter weight definition containing the
// fields the exporters populate rather than the full R4 schema.
package fhir

// Coding systems referenced by exported resources.
const (
	SystemICD10 = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemNDC   = "http://hl7.org/fhir/sid/ndc"
	SystemLOINC = "http://loinc.org"
	SystemMRN   = "http://terminology.hl7.org/CodeSystem/v2-0203|MR"
)

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type Reference struct {
	Reference string `json:"reference"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type HumanName struct {
	Family string   `json:"family"`
	Given  []string `json:"given"`
}

type Address struct {
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
}

type ContactPoint struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type Patient struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
	Name         []HumanName    `json:"name"`
	Gender       string         `json:"gender"`
	BirthDate    string         `json:"birthDate"`
	Address      []Address      `json:"address,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
}

type Condition struct {
	ResourceType string          `json:"resourceType"`
	ID           string          `json:"id"`
	Subject      Reference       `json:"subject"`
	Code         CodeableConcept `json:"code"`
}

type Encounter struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Class        Coding            `json:"class"`
	Type         []CodeableConcept `json:"type,omitempty"`
	Subject      Reference         `json:"subject"`
	Period       Period            `json:"period"`
}

type MedicationRequest struct {
	ResourceType              string          `json:"resourceType"`
	ID                        string          `json:"id"`
	Status                    string          `json:"status"`
	Intent                    string          `json:"intent"`
	MedicationCodeableConcept CodeableConcept `json:"medicationCodeableConcept"`
	Subject                   Reference       `json:"subject"`
	DosageInstruction         []struct {
		Text string `json:"text"`
	} `json:"dosageInstruction,omitempty"`
}

type Observation struct {
	ResourceType  string          `json:"resourceType"`
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Code          CodeableConcept `json:"code"`
	Subject       Reference       `json:"subject"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

type Coverage struct {
	ResourceType string          `json:"resourceType"`
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	SubscriberID string          `json:"subscriberId"`
	Beneficiary  Reference       `json:"beneficiary"`
	Period       Period          `json:"period"`
	Class        []CoverageClass `json:"class,omitempty"`
}

type CoverageClass struct {
	Type  CodeableConcept `json:"type"`
	Value string          `json:"value"`
}

type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string      `json:"fullUrl"`
	Resource interface{} `json:"resource"`
}

// OperationOutcome carries error details back to API callers.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// CapabilityStatement is the resource served by the metadata endpoint.
type CapabilityStatement struct {
	ResourceType   string                      `json:"resourceType"`
	Status         string                      `json:"status"`
	Date           string                      `json:"date"`
	Publisher      string                      `json:"publisher"`
	Kind           string                      `json:"kind"`
	Software       CapabilityStatementSoftware `json:"software"`
	Implementation CapabilityStatementImpl     `json:"implementation"`
	FHIRVersion    string                      `json:"fhirVersion"`
	Format         []string                    `json:"format"`
}

type CapabilityStatementSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type CapabilityStatementImpl struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}
