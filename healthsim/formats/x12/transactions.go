package x12

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/member"
)

const dateFmt = "20060102"

// insCodes maps a member relationship to the INS01 (subscriber flag)
// and INS02 (relationship) values.
var insCodes = map[string][2]string{
	member.RelationshipSubscriber: {"Y", "18"},
	member.RelationshipSpouse:     {"N", "01"},
	member.RelationshipChild:      {"N", "19"},
}

// Generate834 renders a benefit enrollment transaction for the
// members.
func (b *Builder) Generate834(members []*member.Member) string {
	now := b.now()
	txn := NewTransaction("834")
	txn.Add("BGN", "00", fmt.Sprintf("%d", b.controlNumber()), now.Format(dateFmt), now.Format("1504"), "", "", "", "2")
	txn.Add("N1", "P5", "HEALTHSIM PLAN SPONSOR", "FI", "999999999")
	txn.Add("N1", "IN", "HEALTHSIM PAYER", "FI", "888888888")

	for _, m := range members {
		codes, ok := insCodes[m.Relationship]
		if !ok {
			codes = insCodes[member.RelationshipSubscriber]
		}
		maintenance := "030" // audit or compare
		benefitStatus := "A"
		if m.Status == member.StatusTermed {
			maintenance = "024" // termination
			benefitStatus = "T"
		}
		txn.Add("INS", codes[0], codes[1], maintenance, "XN", benefitStatus, "", "", "FT")
		txn.Add("REF", "0F", m.SubscriberID)
		txn.Add("REF", "1L", m.GroupID)
		txn.Add("NM1", "IL", "1", m.Demographics.LastName, m.Demographics.FirstName, "", "", "", "ZZ", m.MemberID)
		txn.Add("DMG", "D8", m.Demographics.BirthDate.Format(dateFmt), m.Demographics.Gender)
		txn.Add("HD", maintenance, "", "HLT", m.PlanCode)
		txn.Add("DTP", "348", "D8", m.CoverageStart.Format(dateFmt))
		if m.CoverageEnd != nil {
			txn.Add("DTP", "349", "D8", m.CoverageEnd.Format(dateFmt))
		}
	}
	return b.Envelope("BE", "005010X220A1", txn)
}

// Generate837P renders professional claims for the members that carry
// them.
func (b *Builder) Generate837P(members []*member.Member) string {
	now := b.now()
	txn := NewTransaction("837")
	txn.Add("BHT", "0019", "00", fmt.Sprintf("%d", b.controlNumber()), now.Format(dateFmt), now.Format("1504"), "CH")
	txn.Add("NM1", "41", "2", "HEALTHSIM SUBMITTER", "", "", "", "", "46", "SUBM01")
	txn.Add("NM1", "40", "2", "HEALTHSIM PAYER", "", "", "", "", "46", "PAYER01")

	hl := 0
	for _, m := range members {
		if len(m.Claims) == 0 {
			continue
		}
		hl++
		txn.Add("HL", fmt.Sprintf("%d", hl), "", "20", "1")
		txn.Add("NM1", "IL", "1", m.Demographics.LastName, m.Demographics.FirstName, "", "", "", "MI", m.MemberID)
		txn.Add("DMG", "D8", m.Demographics.BirthDate.Format(dateFmt), m.Demographics.Gender)

		for _, c := range m.Claims {
			txn.Add("NM1", "82", "1", c.ProviderName, "", "", "", "", "XX", c.ProviderNPI)
			txn.Add("CLM", c.ClaimID, c.TotalCharge.StringFixed(2), "", "", Composite("11", "B", "1"), "Y", "A", "Y", "Y")
			if len(c.Lines) > 0 {
				txn.Add("HI", Composite("ABK", c.Lines[0].DiagnosisCode))
			}
			for i, line := range c.Lines {
				txn.Add("LX", fmt.Sprintf("%d", i+1))
				txn.Add("SV1", Composite("HC", line.CPT), line.Charge.StringFixed(2), "UN", "1")
				txn.Add("DTP", "472", "D8", c.ServiceDate.Format(dateFmt))
			}
		}
	}
	return b.Envelope("HC", "005010X222A1", txn)
}

// Generate835 renders a remittance advice covering the paid claims of
// the members.
func (b *Builder) Generate835(members []*member.Member) string {
	now := b.now()

	total := decimal.Zero
	type paidClaim struct {
		m *member.Member
		c member.Claim
	}
	var paid []paidClaim
	for _, m := range members {
		for _, c := range m.Claims {
			if c.Status == member.ClaimStatusPaid {
				paid = append(paid, paidClaim{m, c})
				total = total.Add(c.TotalPaid)
			}
		}
	}

	txn := NewTransaction("835")
	txn.Add("BPR", "I", total.StringFixed(2), "C", "ACH", "CCP", "", "", "", "", "", "", "", "", "", now.Format(dateFmt))
	txn.Add("TRN", "1", fmt.Sprintf("%09d", b.controlNumber()), "1888888888")
	txn.Add("N1", "PR", "HEALTHSIM PAYER")
	txn.Add("N1", "PE", "PROVIDER", "XX", "1999999984")

	for _, pc := range paid {
		patientResp := pc.c.TotalAllowed.Sub(pc.c.TotalPaid)
		txn.Add("CLP", pc.c.ClaimID, "1", pc.c.TotalCharge.StringFixed(2), pc.c.TotalPaid.StringFixed(2),
			patientResp.StringFixed(2), "12", fmt.Sprintf("%d", b.controlNumber()))
		txn.Add("NM1", "QC", "1", pc.m.Demographics.LastName, pc.m.Demographics.FirstName, "", "", "", "MI", pc.m.MemberID)
		for _, line := range pc.c.Lines {
			txn.Add("SVC", Composite("HC", line.CPT), line.Charge.StringFixed(2), line.Paid.StringFixed(2))
			txn.Add("DTM", "472", pc.c.ServiceDate.Format(dateFmt))
		}
	}
	return b.Envelope("HP", "005010X221A1", txn)
}

// Generate270 renders an eligibility inquiry for one member.
func (b *Builder) Generate270(m *member.Member) string {
	now := b.now()
	txn := NewTransaction("270")
	txn.Add("BHT", "0022", "13", fmt.Sprintf("%d", b.controlNumber()), now.Format(dateFmt), now.Format("1504"))
	txn.Add("HL", "1", "", "20", "1")
	txn.Add("NM1", "PR", "2", "HEALTHSIM PAYER", "", "", "", "", "PI", "88888")
	txn.Add("HL", "2", "1", "21", "1")
	txn.Add("NM1", "1P", "2", "PROVIDER", "", "", "", "", "XX", "1999999984")
	txn.Add("HL", "3", "2", "22", "0")
	txn.Add("NM1", "IL", "1", m.Demographics.LastName, m.Demographics.FirstName, "", "", "", "MI", m.MemberID)
	txn.Add("DMG", "D8", m.Demographics.BirthDate.Format(dateFmt), m.Demographics.Gender)
	txn.Add("DTP", "291", "D8", now.Format(dateFmt))
	txn.Add("EQ", "30")
	return b.Envelope("HS", "005010X279A1", txn)
}

// Generate271 renders the eligibility response for one member with
// benefit EB segments from the plan design.
func (b *Builder) Generate271(m *member.Member) (string, error) {
	plan, err := member.GetPlan(m.PlanCode)
	if err != nil {
		return "", err
	}

	now := b.now()
	txn := NewTransaction("271")
	txn.Add("BHT", "0022", "11", fmt.Sprintf("%d", b.controlNumber()), now.Format(dateFmt), now.Format("1504"))
	txn.Add("HL", "1", "", "20", "1")
	txn.Add("NM1", "PR", "2", "HEALTHSIM PAYER", "", "", "", "", "PI", "88888")
	txn.Add("HL", "2", "1", "21", "1")
	txn.Add("NM1", "1P", "2", "PROVIDER", "", "", "", "", "XX", "1999999984")
	txn.Add("HL", "3", "2", "22", "0")
	txn.Add("NM1", "IL", "1", m.Demographics.LastName, m.Demographics.FirstName, "", "", "", "MI", m.MemberID)
	txn.Add("DMG", "D8", m.Demographics.BirthDate.Format(dateFmt), m.Demographics.Gender)

	if m.Status == member.StatusActive {
		txn.Add("EB", "1", "", "30", "", plan.Name)
	} else {
		txn.Add("EB", "6", "", "30", "", plan.Name)
	}
	txn.Add("EB", "C", "IND", "30", "", "", "23", plan.DeductibleIndividual.StringFixed(2))
	txn.Add("EB", "G", "IND", "30", "", "", "23", plan.OOPMaxIndividual.StringFixed(2))
	if ded, ok := m.Accumulators["deductible"]; ok {
		txn.Add("EB", "C", "IND", "30", "", "", "29", ded.Remaining().StringFixed(2))
	}
	txn.Add("EB", "B", "IND", "98", "", "", "27", plan.CopayPCP.StringFixed(2))
	return b.Envelope("HB", "005010X279A1", txn), nil
}

// Generate278 renders a services review (prior authorization) request
// for one member.
func (b *Builder) Generate278(m *member.Member, serviceCode, diagnosisCode string) string {
	now := b.now()
	txn := NewTransaction("278")
	txn.Add("BHT", "0007", "13", fmt.Sprintf("%d", b.controlNumber()), now.Format(dateFmt), now.Format("1504"))
	txn.Add("HL", "1", "", "20", "1")
	txn.Add("NM1", "X3", "2", "HEALTHSIM PAYER", "", "", "", "", "PI", "88888")
	txn.Add("HL", "2", "1", "21", "1")
	txn.Add("NM1", "1P", "2", "PROVIDER", "", "", "", "", "XX", "1999999984")
	txn.Add("HL", "3", "2", "22", "1")
	txn.Add("NM1", "IL", "1", m.Demographics.LastName, m.Demographics.FirstName, "", "", "", "MI", m.MemberID)
	txn.Add("DMG", "D8", m.Demographics.BirthDate.Format(dateFmt), m.Demographics.Gender)
	txn.Add("HL", "4", "3", "EV", "0")
	txn.Add("UM", "HS", "I", "3")
	txn.Add("HI", Composite("ABK", diagnosisCode))
	txn.Add("SV1", Composite("HC", serviceCode), "", "UN", "1")
	txn.Add("DTP", "472", "D8", now.Format(dateFmt))
	return b.Envelope("HI", "005010X217", txn)
}
