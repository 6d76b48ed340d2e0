package fhir

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pborman/uuid"

	"github.com/mark64oswald/healthsim-core/healthsim/member"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
)

const dateLayout = "2006-01-02"

// Exporter converts generated patients and members into FHIR R4
// resources.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

// Bundle packs every resource for the given patients into one
// collection bundle. Each entry carries a urn:uuid fullUrl.
func (e *Exporter) Bundle(patients ...*patient.Patient) *Bundle {
	b := &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.New(),
		Type:         "collection",
	}
	for _, p := range patients {
		for _, r := range e.Resources(p) {
			b.Entry = append(b.Entry, BundleEntry{
				FullURL:  "urn:uuid:" + uuid.New(),
				Resource: r,
			})
		}
	}
	b.Total = len(b.Entry)
	return b
}

// Resources converts one patient into its Patient resource followed by
// Condition, Encounter, MedicationRequest and Observation resources.
func (e *Exporter) Resources(p *patient.Patient) []interface{} {
	subject := Reference{Reference: "Patient/" + p.PatientID}
	out := []interface{}{e.Patient(p)}

	for i, dx := range p.Diagnoses {
		out = append(out, Condition{
			ResourceType: "Condition",
			ID:           fmt.Sprintf("%s-cond-%d", p.PatientID, i+1),
			Subject:      subject,
			Code: CodeableConcept{
				Coding: []Coding{{System: SystemICD10, Code: dx.Code, Display: dx.Description}},
				Text:   dx.Description,
			},
		})
	}

	for _, enc := range p.Encounters {
		res := Encounter{
			ResourceType: "Encounter",
			ID:           enc.EncounterID,
			Status:       "finished",
			Class:        Coding{System: "http://terminology.hl7.org/CodeSystem/v3-ActCode", Code: "AMB"},
			Type:         []CodeableConcept{{Text: enc.Type}},
			Subject:      subject,
			Period:       Period{Start: enc.AdmitDate.Format(dateLayout)},
		}
		if enc.Type == "inpatient" {
			res.Class.Code = "IMP"
		}
		if enc.DischargeDate != nil {
			res.Period.End = enc.DischargeDate.Format(dateLayout)
		}
		out = append(out, res)
	}

	for i, med := range p.Medications {
		out = append(out, MedicationRequest{
			ResourceType: "MedicationRequest",
			ID:           fmt.Sprintf("%s-med-%d", p.PatientID, i+1),
			Status:       "active",
			Intent:       "order",
			MedicationCodeableConcept: CodeableConcept{
				Coding: []Coding{{System: SystemNDC, Code: med.NDC, Display: med.Name}},
				Text:   fmt.Sprintf("%s %s", med.Name, med.Dose),
			},
			Subject: subject,
		})
	}

	for i, obs := range p.Observations {
		out = append(out, Observation{
			ResourceType: "Observation",
			ID:           fmt.Sprintf("%s-obs-%d", p.PatientID, i+1),
			Status:       "final",
			Code: CodeableConcept{
				Coding: []Coding{{System: SystemLOINC, Code: obs.LOINC, Display: obs.Name}},
			},
			Subject:       subject,
			ValueQuantity: &Quantity{Value: obs.Value, Unit: obs.Unit},
		})
	}
	return out
}

// Patient converts patient demographics into a Patient resource.
func (e *Exporter) Patient(p *patient.Patient) Patient {
	gender := "male"
	if p.Gender == "F" {
		gender = "female"
	}
	return Patient{
		ResourceType: "Patient",
		ID:           p.PatientID,
		Identifier:   []Identifier{{System: SystemMRN, Value: p.MRN}},
		Name:         []HumanName{{Family: p.LastName, Given: []string{p.FirstName}}},
		Gender:       gender,
		BirthDate:    p.BirthDate.Format(dateLayout),
		Address: []Address{{
			Line:       []string{p.Address.Line},
			City:       p.Address.City,
			State:      p.Address.State,
			PostalCode: p.Address.Zip,
		}},
		Telecom: []ContactPoint{{System: "phone", Value: p.Phone}},
	}
}

// Coverage converts a member's enrollment into a Coverage resource.
func (e *Exporter) Coverage(m *member.Member) Coverage {
	status := "active"
	if m.Status == member.StatusTermed {
		status = "cancelled"
	}
	c := Coverage{
		ResourceType: "Coverage",
		ID:           m.MemberID,
		Status:       status,
		SubscriberID: m.SubscriberID,
		Beneficiary:  Reference{Reference: "Patient/" + m.MemberID},
		Period:       Period{Start: m.CoverageStart.Format(dateLayout)},
		Class: []CoverageClass{
			{Type: CodeableConcept{Text: "group"}, Value: m.GroupID},
			{Type: CodeableConcept{Text: "plan"}, Value: m.PlanCode},
		},
	}
	if m.CoverageEnd != nil {
		c.Period.End = m.CoverageEnd.Format(dateLayout)
	}
	return c
}

// WriteNDJSON writes one resource per line, the bulk export format
// consumed from the job payload directory.
func WriteNDJSON(w io.Writer, resources []interface{}) error {
	enc := json.NewEncoder(w)
	for _, r := range resources {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
