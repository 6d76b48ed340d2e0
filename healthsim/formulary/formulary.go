// Package formulary models a tiered drug formulary with coverage
// checks used by claim adjudication.
package formulary

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier numbers for the standard commercial design.
const (
	TierPreferredGeneric    = 1
	TierNonPreferredGeneric = 2
	TierPreferredBrand      = 3
	TierNonPreferredBrand   = 4
	TierSpecialty           = 5
)

// Drug is one formulary entry keyed by NDC.
type Drug struct {
	NDC  string `json:"ndc" toml:"ndc"`
	GPI  string `json:"gpi" toml:"gpi"`
	Name string `json:"name" toml:"name"`
	Tier int    `json:"tier" toml:"tier"`

	RequiresPA  bool `json:"requires_pa" toml:"requires_pa"`
	StepTherapy bool `json:"step_therapy" toml:"step_therapy"`
	// QuantityLimit is the max units per 30 days; zero means no limit.
	QuantityLimit int `json:"quantity_limit" toml:"quantity_limit"`
}

// CoverageStatus is the result of a formulary lookup.
type CoverageStatus struct {
	Covered bool   `json:"covered"`
	NDC     string `json:"ndc"`
	Name    string `json:"name,omitempty"`
	Tier    int    `json:"tier,omitempty"`

	// Copay is set for tiers 1 through 4.
	Copay *decimal.Decimal `json:"copay,omitempty"`
	// CoinsurancePct is set for the specialty tier, e.g. 25 for 25%.
	CoinsurancePct *decimal.Decimal `json:"coinsurance_pct,omitempty"`

	RequiresPA    bool   `json:"requires_pa"`
	StepTherapy   bool   `json:"step_therapy"`
	QuantityLimit int    `json:"quantity_limit,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Formulary is a set of covered drugs with per-tier cost sharing.
type Formulary struct {
	Name  string
	drugs map[string]Drug

	tierCopays           map[int]decimal.Decimal
	specialtyCoinsurance decimal.Decimal
}

// CheckCoverage looks up an NDC. Unknown NDCs come back not covered
// with an explanatory message.
func (f *Formulary) CheckCoverage(ndc string) CoverageStatus {
	d, ok := f.drugs[ndc]
	if !ok {
		return CoverageStatus{
			Covered: false,
			NDC:     ndc,
			Message: fmt.Sprintf("NDC %s is not on the %s formulary", ndc, f.Name),
		}
	}

	status := CoverageStatus{
		Covered:       true,
		NDC:           d.NDC,
		Name:          d.Name,
		Tier:          d.Tier,
		RequiresPA:    d.RequiresPA,
		StepTherapy:   d.StepTherapy,
		QuantityLimit: d.QuantityLimit,
	}
	if d.Tier == TierSpecialty {
		pct := f.specialtyCoinsurance
		status.CoinsurancePct = &pct
	} else if copay, ok := f.tierCopays[d.Tier]; ok {
		c := copay
		status.Copay = &c
	}
	return status
}

// Drug returns the formulary entry for an NDC.
func (f *Formulary) Drug(ndc string) (Drug, bool) {
	d, ok := f.drugs[ndc]
	return d, ok
}

// Drugs returns every formulary entry. Order is not defined.
func (f *Formulary) Drugs() []Drug {
	out := make([]Drug, 0, len(f.drugs))
	for _, d := range f.drugs {
		out = append(out, d)
	}
	return out
}

// Add inserts or replaces a formulary entry.
func (f *Formulary) Add(d Drug) error {
	if d.NDC == "" {
		return fmt.Errorf("formulary drug requires an NDC")
	}
	if d.Tier < TierPreferredGeneric || d.Tier > TierSpecialty {
		return fmt.Errorf("invalid tier %d for NDC %s", d.Tier, d.NDC)
	}
	f.drugs[d.NDC] = d
	return nil
}

// Len reports the number of drugs on the formulary.
func (f *Formulary) Len() int { return len(f.drugs) }
