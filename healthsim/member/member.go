package member

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Coverage statuses.
const (
	StatusActive = "active"
	StatusTermed = "termed"
)

// Relationship codes for a member within a family.
const (
	RelationshipSubscriber = "subscriber"
	RelationshipSpouse     = "spouse"
	RelationshipChild      = "child"
)

// Member is a synthetic insurance member enrolled in a medical plan.
type Member struct {
	MemberID     string `json:"member_id"`
	SubscriberID string `json:"subscriber_id"`

	Demographics Demographics `json:"demographics"`

	PlanCode     string     `json:"plan_code"`
	GroupID      string     `json:"group_id"`
	Relationship string     `json:"relationship"`
	Status       string     `json:"status"`
	CoverageStart time.Time  `json:"coverage_start"`
	CoverageEnd   *time.Time `json:"coverage_end,omitempty"`

	// Accumulators tracks year-to-date amounts keyed by accumulator
	// name ("deductible", "oop").
	Accumulators map[string]*Accumulator `json:"accumulators"`

	Claims []Claim `json:"claims,omitempty"`
}

// Demographics carries the person-level attributes of a member.
type Demographics struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
	Line      string    `json:"address_line"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
}

func (d *Demographics) FullName() string {
	return fmt.Sprintf("%s %s", d.FirstName, d.LastName)
}

// Age is the member's age in whole years as of now.
func (d *Demographics) Age() int {
	now := time.Now()
	years := now.Year() - d.BirthDate.Year()
	if now.YearDay() < d.BirthDate.YearDay() {
		years--
	}
	return years
}

// Accumulator tracks progress against a plan limit.
type Accumulator struct {
	Used  decimal.Decimal `json:"used"`
	Limit decimal.Decimal `json:"limit"`
}

// Remaining is the amount left before the limit is met.
func (a *Accumulator) Remaining() decimal.Decimal {
	r := a.Limit.Sub(a.Used)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Claim statuses.
const (
	ClaimStatusPaid    = "paid"
	ClaimStatusDenied  = "denied"
	ClaimStatusPending = "pending"
)

// Claim is a professional medical claim with one or more service lines.
type Claim struct {
	ClaimID      string      `json:"claim_id"`
	ServiceDate  time.Time   `json:"service_date"`
	ProviderName string      `json:"provider_name"`
	ProviderNPI  string      `json:"provider_npi"`
	Lines        []ClaimLine `json:"lines"`

	TotalCharge  decimal.Decimal `json:"total_charge"`
	TotalAllowed decimal.Decimal `json:"total_allowed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Status       string          `json:"status"`
}

// ClaimLine is a single CPT-coded service on a claim.
type ClaimLine struct {
	CPT           string          `json:"cpt"`
	Description   string          `json:"description"`
	DiagnosisCode string          `json:"diagnosis_code"`
	Charge        decimal.Decimal `json:"charge"`
	Allowed       decimal.Decimal `json:"allowed"`
	Paid          decimal.Decimal `json:"paid"`
}
