// Package hl7v2 renders HL7 version 2 messages with the standard
// pipe-and-hat encoding.
package hl7v2

import (
	"fmt"
	"strings"
	"time"

	"github.com/mark64oswald/healthsim-core/healthsim/patient"
)

// Encoding characters.
const (
	FieldSeparator     = "|"
	EncodingCharacters = `^~\&`
	ComponentSeparator = "^"
	SegmentTerminator  = "\r"

	version = "2.5.1"
)

const tsLayout = "20060102150405"

// Builder renders HL7v2 messages. The zero value uses HEALTHSIM as the
// sending application and the current time.
type Builder struct {
	SendingApp  string
	SendingFac  string
	ReceivingApp string
	ReceivingFac string
	// Now fixes MSH-7 and the control ID timestamp when non-zero.
	Now time.Time

	controlSeq int
}

func (b *Builder) sendingApp() string {
	if b.SendingApp == "" {
		return "HEALTHSIM"
	}
	return b.SendingApp
}

func (b *Builder) now() time.Time {
	if b.Now.IsZero() {
		return time.Now()
	}
	return b.Now
}

func (b *Builder) nextControlID() string {
	b.controlSeq++
	return fmt.Sprintf("%s%04d", b.now().Format(tsLayout), b.controlSeq)
}

// message accumulates segments.
type message struct {
	segments []string
}

func (m *message) add(fields ...string) {
	last := len(fields)
	for last > 1 && fields[last-1] == "" {
		last--
	}
	m.segments = append(m.segments, strings.Join(fields[:last], FieldSeparator))
}

func (m *message) String() string {
	return strings.Join(m.segments, SegmentTerminator) + SegmentTerminator
}

func (b *Builder) msh(m *message, messageType, triggerEvent string) {
	m.segments = append(m.segments, strings.Join([]string{
		"MSH", EncodingCharacters, b.sendingApp(), b.SendingFac,
		b.ReceivingApp, b.ReceivingFac, b.now().Format(tsLayout), "",
		messageType + ComponentSeparator + triggerEvent,
		b.nextControlID(), "P", version,
	}, FieldSeparator))
}

func pid(p *patient.Patient) string {
	name := p.LastName + ComponentSeparator + p.FirstName
	addr := strings.Join([]string{p.Address.Line, "", p.Address.City, p.Address.State, p.Address.Zip}, ComponentSeparator)
	return strings.Join([]string{
		"PID", "1", "", p.MRN, "", name, "",
		p.BirthDate.Format("20060102"), p.Gender, "", "", addr, "", p.Phone,
	}, FieldSeparator)
}

// AdmitA01 renders an ADT^A01 admit message for one encounter.
func (b *Builder) AdmitA01(p *patient.Patient, enc patient.Encounter) string {
	m := &message{}
	b.msh(m, "ADT", "A01")
	m.add("EVN", "A01", enc.AdmitDate.Format(tsLayout))
	m.segments = append(m.segments, pid(p))

	patientClass := "O"
	if enc.Type == "inpatient" {
		patientClass = "I"
	}
	m.add("PV1", "1", patientClass, "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
		enc.EncounterID)
	return m.String()
}

// DischargeA03 renders an ADT^A03 discharge message for one encounter.
func (b *Builder) DischargeA03(p *patient.Patient, enc patient.Encounter) string {
	m := &message{}
	b.msh(m, "ADT", "A03")

	discharge := enc.AdmitDate
	if enc.DischargeDate != nil {
		discharge = *enc.DischargeDate
	}
	m.add("EVN", "A03", discharge.Format(tsLayout))
	m.segments = append(m.segments, pid(p))
	m.add("PV1", "1", "I", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
		enc.EncounterID, "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "",
		discharge.Format(tsLayout))
	return m.String()
}

// OrderO01 renders an ORM^O01 order message for a medication.
func (b *Builder) OrderO01(p *patient.Patient, med patient.Medication) string {
	m := &message{}
	b.msh(m, "ORM", "O01")
	m.segments = append(m.segments, pid(p))
	m.add("ORC", "NW", "ORD"+p.MRN, "", "", "", "", "", "", b.now().Format(tsLayout))
	m.add("RXO", med.NDC+ComponentSeparator+med.Name+ComponentSeparator+"NDC", med.Dose)
	return m.String()
}

// ResultR01 renders an ORU^R01 result message carrying the patient's
// observations as OBX segments.
func (b *Builder) ResultR01(p *patient.Patient) string {
	m := &message{}
	b.msh(m, "ORU", "R01")
	m.segments = append(m.segments, pid(p))
	m.add("OBR", "1", "", "", "PANEL"+ComponentSeparator+"Vitals and Labs"+ComponentSeparator+"L",
		"", b.now().Format(tsLayout))
	for i, obs := range p.Observations {
		code := obs.LOINC + ComponentSeparator + obs.Name + ComponentSeparator + "LN"
		m.add("OBX", fmt.Sprintf("%d", i+1), "NM", code, "",
			fmt.Sprintf("%g", obs.Value), obs.Unit, "", "", "", "", "F")
	}
	return m.String()
}
