package ncpdp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

func testMember() *rxmember.RxMember {
	return &rxmember.RxMember{
		MemberID:        "CH12345678901",
		CardholderID:    "CH123456789",
		PersonCode:      "01",
		BIN:             "610014",
		PCN:             "RXTEST",
		GroupNumber:     "GRP001",
		Active:          true,
		FirstName:       "Pat",
		LastName:        "Example",
		DateOfBirth:     time.Date(1970, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:          "F",
		DeductibleLimit: decimal.NewFromInt(100),
		OOPLimit:        decimal.NewFromInt(2000),
	}
}

func testClaim() adjudication.Claim {
	return adjudication.Claim{
		ClaimID:        "RX0000000001",
		MemberID:       "CH12345678901",
		NDC:            "00071015523",
		GPI:            "39400010000310",
		DrugName:       "Atorvastatin 10mg",
		Quantity:       30,
		DaysSupply:     30,
		IngredientCost: decimal.NewFromInt(48),
		ServiceDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		PharmacyNPI:    "1999999984",
	}
}

func TestEncodeRequest(t *testing.T) {
	req := NewRequest(testMember(), testClaim())
	encoded := req.Encode()

	// Header: BIN, version/release, transaction code, padded PCN.
	assert.True(t, strings.HasPrefix(encoded, "610014D0B1RXTEST    1"))
	assert.Contains(t, encoded, "20240315")

	assert.Contains(t, encoded, SegmentSeparator+FieldSeparator+"AM04")
	assert.Contains(t, encoded, FieldSeparator+"C2CH123456789")
	assert.Contains(t, encoded, FieldSeparator+"C1GRP001")
	assert.Contains(t, encoded, FieldSeparator+"C301")

	assert.Contains(t, encoded, FieldSeparator+"C419700615")
	assert.Contains(t, encoded, FieldSeparator+"C52") // female
	assert.Contains(t, encoded, FieldSeparator+"CBExample")

	assert.Contains(t, encoded, FieldSeparator+"D2RX0000000001")
	assert.Contains(t, encoded, FieldSeparator+"D700071015523")
	assert.Contains(t, encoded, FieldSeparator+"E730")
	assert.Contains(t, encoded, FieldSeparator+"D530")
}

func TestEncodeRequestWithPA(t *testing.T) {
	claim := testClaim()
	claim.PriorAuthNumber = "PA123456"
	encoded := NewRequest(testMember(), claim).Encode()
	assert.Contains(t, encoded, FieldSeparator+"EVPA123456")
}

func TestReversal(t *testing.T) {
	req := NewRequest(testMember(), testClaim())
	rev := req.Reversal()

	assert.Equal(t, TransactionReversal, rev.TransactionCode)
	encoded := rev.Encode()
	assert.True(t, strings.HasPrefix(encoded, "610014D0B2"))
	assert.Contains(t, encoded, FieldSeparator+"D2RX0000000001")
	assert.Contains(t, encoded, FieldSeparator+"D700071015523")
	// Reversals do not resubmit quantity or days supply.
	assert.NotContains(t, encoded, FieldSeparator+"E730")
}

func TestEncodeResponsePaid(t *testing.T) {
	engine := adjudication.NewEngine(formulary.NewGenerator().StandardCommercial())
	member := testMember()
	claim := testClaim()

	resp, err := engine.Adjudicate(context.Background(), claim, member)
	require.NoError(t, err)
	require.Equal(t, adjudication.StatusPaid, resp.Status)

	encoded := EncodeResponse(NewRequest(member, claim), resp)

	assert.True(t, strings.HasPrefix(encoded, "D0B11A"))
	assert.Contains(t, encoded, FieldSeparator+"ANP")
	assert.Contains(t, encoded, FieldSeparator+"F3"+resp.AuthorizationNumber)
	// $10 copay and $50 total rendered as cents.
	assert.Contains(t, encoded, FieldSeparator+"F51000")
	assert.Contains(t, encoded, FieldSeparator+"F95000")
	assert.NotContains(t, encoded, FieldSeparator+"FB")
}

func TestEncodeResponseRejectedWithDUR(t *testing.T) {
	engine := adjudication.NewEngine(formulary.NewGenerator().StandardCommercial())
	member := testMember()

	claim := testClaim()
	claim.NDC = "00056017270"
	claim.GPI = "83300010000330"
	claim.DrugName = "Warfarin Sodium 5mg"
	claim.CurrentMedications = []dur.Medication{
		{Drug: dur.Drug{NDC: "00904515260", GPI: "66100010000310", Name: "Ibuprofen 200mg"}},
	}

	resp, err := engine.Adjudicate(context.Background(), claim, member)
	require.NoError(t, err)
	require.Equal(t, adjudication.StatusRejected, resp.Status)

	encoded := EncodeResponse(NewRequest(member, claim), resp)

	assert.Contains(t, encoded, FieldSeparator+"ANR")
	assert.Contains(t, encoded, FieldSeparator+"FB88")
	assert.Contains(t, encoded, FieldSeparator+"E4DD")
	assert.Contains(t, encoded, FieldSeparator+"AM24")
	// No pricing segment on rejects.
	assert.NotContains(t, encoded, FieldSeparator+"AM23")
}
