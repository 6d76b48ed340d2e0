package formulary

import (
	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Generator builds formulary designs.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// standardCommercialDrugs is the default commercial drug list. Tiers
// follow the usual commercial design: 1 preferred generic, 2
// non-preferred generic, 3 preferred brand, 4 non-preferred brand,
// 5 specialty.
var standardCommercialDrugs = []Drug{
	{NDC: "00093017101", GPI: "27250050000320", Name: "Metformin HCl 500mg", Tier: 1},
	{NDC: "00071015523", GPI: "39400010000310", Name: "Atorvastatin 10mg", Tier: 1},
	{NDC: "68180051301", GPI: "36100040100320", Name: "Lisinopril 10mg", Tier: 1},
	{NDC: "00078057715", GPI: "39400020000310", Name: "Rosuvastatin 10mg", Tier: 1},
	{NDC: "00904515260", GPI: "66100010000310", Name: "Ibuprofen 200mg", Tier: 1},
	{NDC: "00056017270", GPI: "83300010000330", Name: "Warfarin Sodium 5mg", Tier: 1},

	{NDC: "00406048001", GPI: "65100050000310", Name: "Tramadol HCl 50mg", Tier: 2},
	{NDC: "00093103901", GPI: "72600030000310", Name: "Gabapentin 300mg", Tier: 2},
	{NDC: "00006011731", GPI: "24100070100310", Name: "Finasteride 5mg", Tier: 2},

	{NDC: "00003089421", GPI: "83372070000320", Name: "Eliquis 5mg", Tier: 3},
	{NDC: "00597015237", GPI: "27259072000330", Name: "Jardiance 10mg", Tier: 3},

	{NDC: "00071015623", GPI: "39400010000315", Name: "Lipitor 10mg", Tier: 4},
	{NDC: "00186504031", GPI: "49270046000320", Name: "Nexium 40mg", Tier: 4},

	{NDC: "00169413512", GPI: "27170055000420", Name: "Ozempic 1mg/0.75mL", Tier: 5, RequiresPA: true, StepTherapy: true, QuantityLimit: 2},
	{NDC: "00074433902", GPI: "66290050000420", Name: "Humira 40mg/0.8mL", Tier: 5, RequiresPA: true, QuantityLimit: 2},
	{NDC: "61958060101", GPI: "61400075000420", Name: "Wegovy 0.25mg", Tier: 5, RequiresPA: true, QuantityLimit: 4},
	{NDC: "00002141080", GPI: "27170045000420", Name: "Trulicity 1.5mg", Tier: 5, RequiresPA: true, QuantityLimit: 4},
}

// StandardCommercial builds the five tier commercial formulary with
// $10/$25/$40/$80 copays and 25% specialty coinsurance.
func (g *Generator) StandardCommercial() *Formulary {
	f := &Formulary{
		Name:  "standard commercial",
		drugs: make(map[string]Drug, len(standardCommercialDrugs)),
		tierCopays: map[int]decimal.Decimal{
			TierPreferredGeneric:    decimal.NewFromInt(10),
			TierNonPreferredGeneric: decimal.NewFromInt(25),
			TierPreferredBrand:      decimal.NewFromInt(40),
			TierNonPreferredBrand:   decimal.NewFromInt(80),
		},
		specialtyCoinsurance: decimal.NewFromInt(25),
	}
	for _, d := range standardCommercialDrugs {
		f.drugs[d.NDC] = d
	}
	return f
}

type formularyFile struct {
	Name  string `toml:"name"`
	Drugs []Drug `toml:"drugs"`
}

// FromTOML builds a formulary from a TOML drug list, using the
// standard commercial cost sharing for each tier.
func (g *Generator) FromTOML(data []byte) (*Formulary, error) {
	var ff formularyFile
	if err := toml.Unmarshal(data, &ff); err != nil {
		return nil, err
	}
	f := g.StandardCommercial()
	f.drugs = make(map[string]Drug, len(ff.Drugs))
	if ff.Name != "" {
		f.Name = ff.Name
	}
	for _, d := range ff.Drugs {
		if err := f.Add(d); err != nil {
			return nil, err
		}
	}
	return f, nil
}
