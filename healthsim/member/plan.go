package member

import (
	"embed"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

//go:embed plans.toml
var planFS embed.FS

// Plan is a medical benefit plan design.
type Plan struct {
	Code     string `toml:"code" json:"code"`
	Name     string `toml:"name" json:"name"`
	PlanType string `toml:"plan_type" json:"plan_type"`

	DeductibleIndividual decimal.Decimal `toml:"deductible_individual" json:"deductible_individual"`
	DeductibleFamily     decimal.Decimal `toml:"deductible_family" json:"deductible_family"`
	OOPMaxIndividual     decimal.Decimal `toml:"oop_max_individual" json:"oop_max_individual"`
	OOPMaxFamily         decimal.Decimal `toml:"oop_max_family" json:"oop_max_family"`

	CopayPCP        decimal.Decimal `toml:"copay_pcp" json:"copay_pcp"`
	CopaySpecialist decimal.Decimal `toml:"copay_specialist" json:"copay_specialist"`
	CopayER         decimal.Decimal `toml:"copay_er" json:"copay_er"`

	// Coinsurance is the member share after deductible, e.g. 0.2.
	Coinsurance decimal.Decimal `toml:"coinsurance" json:"coinsurance"`
}

type planFile struct {
	Plans []Plan `toml:"plans"`
}

var plans = loadPlans()

func loadPlans() map[string]Plan {
	b, err := planFS.ReadFile("plans.toml")
	if err != nil {
		panic(fmt.Sprintf("reading embedded plans: %s", err))
	}
	var pf planFile
	if err := toml.Unmarshal(b, &pf); err != nil {
		panic(fmt.Sprintf("parsing plans: %s", err))
	}
	loaded := make(map[string]Plan, len(pf.Plans))
	for _, p := range pf.Plans {
		loaded[p.Code] = p
	}
	return loaded
}

// GetPlan returns the plan with the given code.
func GetPlan(code string) (Plan, error) {
	p, ok := plans[code]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", code)
	}
	return p, nil
}

// ListPlans returns all plan designs sorted by code.
func ListPlans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
