package formulary

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardCommercialCoverage(t *testing.T) {
	f := NewGenerator().StandardCommercial()

	tests := []struct {
		name        string
		ndc         string
		tier        int
		copay       int64
		coinsurance int64
		requiresPA  bool
	}{
		{"metformin tier 1", "00093017101", 1, 10, 0, false},
		{"atorvastatin tier 1", "00071015523", 1, 10, 0, false},
		{"finasteride tier 2", "00006011731", 2, 25, 0, false},
		{"eliquis tier 3", "00003089421", 3, 40, 0, false},
		{"nexium tier 4", "00186504031", 4, 80, 0, false},
		{"ozempic specialty", "00169413512", 5, 0, 25, true},
		{"humira specialty", "00074433902", 5, 0, 25, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := f.CheckCoverage(tt.ndc)
			require.True(t, status.Covered)
			assert.Equal(t, tt.tier, status.Tier)
			assert.Equal(t, tt.requiresPA, status.RequiresPA)
			if tt.copay > 0 {
				require.NotNil(t, status.Copay)
				assert.True(t, status.Copay.Equal(decimal.NewFromInt(tt.copay)))
				assert.Nil(t, status.CoinsurancePct)
			}
			if tt.coinsurance > 0 {
				require.NotNil(t, status.CoinsurancePct)
				assert.True(t, status.CoinsurancePct.Equal(decimal.NewFromInt(tt.coinsurance)))
				assert.Nil(t, status.Copay)
			}
		})
	}
}

func TestCheckCoverageUnknownNDC(t *testing.T) {
	f := NewGenerator().StandardCommercial()

	status := f.CheckCoverage("99999999999")
	assert.False(t, status.Covered)
	assert.Contains(t, status.Message, "99999999999")
	assert.Nil(t, status.Copay)
	assert.Zero(t, status.Tier)
}

func TestOzempicStepTherapyAndQuantity(t *testing.T) {
	f := NewGenerator().StandardCommercial()

	status := f.CheckCoverage("00169413512")
	require.True(t, status.Covered)
	assert.True(t, status.RequiresPA)
	assert.True(t, status.StepTherapy)
	assert.Equal(t, 2, status.QuantityLimit)
}

func TestAddValidation(t *testing.T) {
	f := NewGenerator().StandardCommercial()

	assert.Error(t, f.Add(Drug{Tier: 1}))
	assert.Error(t, f.Add(Drug{NDC: "12345678901", Tier: 9}))

	require.NoError(t, f.Add(Drug{NDC: "12345678901", Name: "Testdrug 5mg", Tier: 2}))
	status := f.CheckCoverage("12345678901")
	assert.True(t, status.Covered)
	assert.Equal(t, 2, status.Tier)
}

func TestFromTOML(t *testing.T) {
	data := []byte(`
name = "custom plan"

[[drugs]]
ndc = "00093017101"
gpi = "27250050000320"
name = "Metformin HCl 500mg"
tier = 1

[[drugs]]
ndc = "00074433902"
gpi = "66290050000420"
name = "Humira 40mg/0.8mL"
tier = 5
requires_pa = true
quantity_limit = 2
`)

	f, err := NewGenerator().FromTOML(data)
	require.NoError(t, err)
	assert.Equal(t, "custom plan", f.Name)
	assert.Equal(t, 2, f.Len())

	status := f.CheckCoverage("00074433902")
	require.True(t, status.Covered)
	assert.True(t, status.RequiresPA)
	require.NotNil(t, status.CoinsurancePct)

	// Drugs not in the custom list are no longer covered.
	assert.False(t, f.CheckCoverage("00071015523").Covered)

	_, err = NewGenerator().FromTOML([]byte("drugs = 3"))
	assert.Error(t, err)
}
