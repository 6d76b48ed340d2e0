package adjudication

import (
	"context"
	"strings"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
	"github.com/mark64oswald/healthsim-core/log"
)

// defaultDispensingFee is added to the ingredient cost on every claim.
var defaultDispensingFee = decimal.NewFromFloat(2.00)

// Engine adjudicates pharmacy claims.
type Engine struct {
	Formulary *formulary.Formulary
	DUR       *dur.Validator

	// DispensingFee overrides the default fee when non-zero.
	DispensingFee decimal.Decimal
}

func NewEngine(f *formulary.Formulary) *Engine {
	return &Engine{Formulary: f, DUR: dur.NewValidator()}
}

// Adjudicate runs eligibility, formulary, DUR and pricing for one
// claim. Rejections carry an NCPDP reject code; paid claims carry
// pricing and accumulator deltas.
func (e *Engine) Adjudicate(ctx context.Context, claim Claim, member *rxmember.RxMember) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &Response{
		ClaimID:        claim.ClaimID,
		IngredientCost: claim.IngredientCost,
		DispensingFee:  e.dispensingFee(),
	}
	resp.TotalCost = resp.IngredientCost.Add(resp.DispensingFee)

	if member == nil || !member.Active {
		return e.reject(resp, RejectPatientNotCovered), nil
	}
	if claim.DaysSupply <= 0 {
		return e.reject(resp, RejectMissingDaysSupply), nil
	}

	coverage := e.Formulary.CheckCoverage(claim.NDC)
	if !coverage.Covered {
		return e.reject(resp, RejectProductNotCovered), nil
	}
	if coverage.RequiresPA && claim.PriorAuthNumber == "" {
		return e.reject(resp, RejectPriorAuthRequired), nil
	}
	if coverage.QuantityLimit > 0 {
		allowed := coverage.QuantityLimit * claim.DaysSupply / 30
		if allowed < coverage.QuantityLimit {
			allowed = coverage.QuantityLimit
		}
		if claim.Quantity > allowed {
			return e.reject(resp, RejectPlanLimitsExceeded), nil
		}
	}

	durResult := e.DUR.Validate(dur.Request{
		Drug:               dur.Drug{NDC: claim.NDC, GPI: claim.GPI, Name: claim.DrugName},
		Quantity:           claim.Quantity,
		DaysSupply:         claim.DaysSupply,
		ServiceDate:        claim.ServiceDate,
		CurrentMedications: claim.CurrentMedications,
		PatientAge:         member.Age(),
		PatientGender:      member.Gender,
	})
	resp.DURAlerts = durResult.Alerts
	for _, a := range durResult.Alerts {
		if a.Type == dur.AlertEarlyRefill {
			return e.reject(resp, RejectRefillTooSoon), nil
		}
	}
	if durResult.MaxSeverity() == dur.SeverityMajor {
		return e.reject(resp, RejectDURConflict), nil
	}

	e.price(resp, coverage, member)

	resp.Status = StatusPaid
	resp.AuthorizationNumber = "AUTH" + strings.ToUpper(strings.ReplaceAll(uuid.New(), "-", "")[:12])

	log.Adjudication.WithField("claim_id", claim.ClaimID).
		WithField("member_id", member.MemberID).
		WithField("ndc", claim.NDC).
		WithField("patient_pay", resp.PatientPay.String()).
		Info("claim paid")
	return resp, nil
}

// price applies deductible, copay or coinsurance, and the OOP cap.
// Generic tiers bypass the deductible.
func (e *Engine) price(resp *Response, coverage formulary.CoverageStatus, member *rxmember.RxMember) {
	remaining := resp.TotalCost

	if coverage.Tier >= formulary.TierPreferredBrand {
		dedRemaining := member.DeductibleLimit.Sub(member.DeductibleMet)
		if dedRemaining.IsPositive() {
			applied := decimal.Min(dedRemaining, remaining)
			resp.DeductibleApplied = applied
			remaining = remaining.Sub(applied)
		}
	}

	var costShare decimal.Decimal
	switch {
	case coverage.CoinsurancePct != nil:
		costShare = remaining.Mul(*coverage.CoinsurancePct).Div(decimal.NewFromInt(100)).Round(2)
	case coverage.Copay != nil:
		costShare = decimal.Min(*coverage.Copay, remaining)
	}
	resp.Copay = costShare

	patientPay := resp.DeductibleApplied.Add(costShare)
	oopRemaining := member.OOPLimit.Sub(member.OOPMet)
	if oopRemaining.IsNegative() {
		oopRemaining = decimal.Zero
	}
	patientPay = decimal.Min(patientPay, oopRemaining)
	patientPay = decimal.Min(patientPay, resp.TotalCost)

	resp.PatientPay = patientPay
	resp.PlanPaid = resp.TotalCost.Sub(patientPay)
	resp.Accumulators = AccumulatorUpdate{
		Deductible: decimal.Min(resp.DeductibleApplied, patientPay),
		OOP:        patientPay,
	}
}

func (e *Engine) reject(resp *Response, code string) *Response {
	resp.Status = StatusRejected
	resp.RejectCode = code
	resp.RejectMessage = RejectMessage(code)
	resp.PlanPaid = decimal.Zero
	resp.PatientPay = decimal.Zero

	log.Adjudication.WithField("claim_id", resp.ClaimID).
		WithField("reject_code", code).
		Info("claim rejected")
	return resp
}

func (e *Engine) dispensingFee() decimal.Decimal {
	if !e.DispensingFee.IsZero() {
		return e.DispensingFee
	}
	return defaultDispensingFee
}
