// Package adjudication prices pharmacy claims against a formulary and
// a member's benefit, producing NCPDP style paid or rejected responses.
package adjudication

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/dur"
)

// Adjudication statuses.
const (
	StatusPaid     = "P"
	StatusRejected = "R"
)

// NCPDP reject codes returned by the engine.
const (
	RejectMissingDaysSupply   = "19"
	RejectPatientNotCovered   = "65"
	RejectProductNotCovered   = "70"
	RejectPriorAuthRequired   = "75"
	RejectPlanLimitsExceeded  = "76"
	RejectRefillTooSoon       = "79"
	RejectDURConflict         = "88"
)

var rejectMessages = map[string]string{
	RejectMissingDaysSupply:  "M/I Days Supply",
	RejectPatientNotCovered:  "Patient Is Not Covered",
	RejectProductNotCovered:  "Product/Service Not Covered",
	RejectPriorAuthRequired:  "Prior Authorization Required",
	RejectPlanLimitsExceeded: "Plan Limitations Exceeded",
	RejectRefillTooSoon:      "Refill Too Soon",
	RejectDURConflict:        "DUR Reject Error",
}

// RejectMessage returns the NCPDP text for a reject code.
func RejectMessage(code string) string { return rejectMessages[code] }

// Claim is a pharmacy claim submitted for adjudication.
type Claim struct {
	ClaimID  string `json:"claim_id"`
	MemberID string `json:"member_id"`

	NDC      string `json:"ndc"`
	GPI      string `json:"gpi"`
	DrugName string `json:"drug_name"`

	Quantity   int `json:"quantity"`
	DaysSupply int `json:"days_supply"`

	// IngredientCost is the submitted ingredient cost for the full
	// quantity.
	IngredientCost decimal.Decimal `json:"ingredient_cost"`

	ServiceDate     time.Time `json:"service_date"`
	PriorAuthNumber string    `json:"prior_auth_number,omitempty"`
	PharmacyNPI     string    `json:"pharmacy_npi,omitempty"`

	CurrentMedications []dur.Medication `json:"current_medications,omitempty"`
}

// AccumulatorUpdate is the change to apply to the member's
// year-to-date accumulators for a paid claim.
type AccumulatorUpdate struct {
	Deductible decimal.Decimal `json:"deductible"`
	OOP        decimal.Decimal `json:"oop"`
}

// Response is the adjudication outcome.
type Response struct {
	ClaimID             string `json:"claim_id"`
	Status              string `json:"status"`
	AuthorizationNumber string `json:"authorization_number,omitempty"`

	IngredientCost decimal.Decimal `json:"ingredient_cost"`
	DispensingFee  decimal.Decimal `json:"dispensing_fee"`
	TotalCost      decimal.Decimal `json:"total_cost"`

	PlanPaid          decimal.Decimal `json:"plan_paid"`
	PatientPay        decimal.Decimal `json:"patient_pay"`
	Copay             decimal.Decimal `json:"copay"`
	DeductibleApplied decimal.Decimal `json:"deductible_applied"`

	Accumulators AccumulatorUpdate `json:"accumulators"`

	RejectCode    string `json:"reject_code,omitempty"`
	RejectMessage string `json:"reject_message,omitempty"`

	DURAlerts []dur.Alert `json:"dur_alerts,omitempty"`
}

// Paid reports whether the claim was paid.
func (r *Response) Paid() bool { return r.Status == StatusPaid }
