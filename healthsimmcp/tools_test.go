package healthsimmcp

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

func testTools() *tools {
	f := formulary.NewGenerator().StandardCommercial()
	return &tools{
		formulary: f,
		engine:    adjudication.NewEngine(f),
		validator: dur.NewValidator(),
	}
}

func TestGeneratePatientTool(t *testing.T) {
	tl := testTools()

	_, out, err := tl.generatePatient(context.Background(), nil, generatePatientInput{Count: 3, Seed: 42, Scenario: "diabetes"})
	require.NoError(t, err)
	require.Len(t, out.Patients, 3)
	assert.NotEmpty(t, out.Patients[0].PatientID)

	// The same seed reproduces the same cohort.
	_, again, err := tl.generatePatient(context.Background(), nil, generatePatientInput{Count: 3, Seed: 42, Scenario: "diabetes"})
	require.NoError(t, err)
	assert.Equal(t, out.Patients[0].PatientID, again.Patients[0].PatientID)
}

func TestGeneratePatientToolDefaultsCount(t *testing.T) {
	tl := testTools()
	_, out, err := tl.generatePatient(context.Background(), nil, generatePatientInput{})
	require.NoError(t, err)
	assert.Len(t, out.Patients, 1)
}

func TestGenerateMemberTool(t *testing.T) {
	tl := testTools()
	_, out, err := tl.generateMember(context.Background(), nil, generateMemberInput{Count: 2, Seed: 7, Claims: 3})
	require.NoError(t, err)
	require.Len(t, out.Members, 2)
	assert.Len(t, out.Members[0].Claims, 3)
}

func TestGenerateRxMemberToolDefaultsRouting(t *testing.T) {
	tl := testTools()
	_, out, err := tl.generateRxMember(context.Background(), nil, generateRxMemberInput{Seed: 7})
	require.NoError(t, err)
	require.Len(t, out.Members, 1)
	assert.Equal(t, constants.TestBIN, out.Members[0].BIN)
	assert.Equal(t, constants.TestPCN, out.Members[0].PCN)
	assert.Equal(t, constants.TestGroup, out.Members[0].GroupNumber)
}

func TestCheckFormularyTool(t *testing.T) {
	tl := testTools()

	_, out, err := tl.checkFormulary(context.Background(), nil, checkFormularyInput{NDC: "00093017101"})
	require.NoError(t, err)
	assert.True(t, out.Covered)
	assert.Equal(t, formulary.TierPreferredGeneric, out.Tier)

	_, _, err = tl.checkFormulary(context.Background(), nil, checkFormularyInput{})
	assert.Error(t, err)
}

func TestScreenDURTool(t *testing.T) {
	tl := testTools()

	req := dur.Request{
		Drug: dur.Drug{NDC: "00904515260", GPI: "66100010000310", Name: "Ibuprofen 800mg"},
		CurrentMedications: []dur.Medication{
			{Drug: dur.Drug{NDC: "00056017270", GPI: "83300010000330", Name: "Warfarin 5mg"}},
		},
		Quantity:    30,
		DaysSupply:  30,
		ServiceDate: time.Now(),
		PatientAge:  66,
	}

	_, out, err := tl.screenDUR(context.Background(), nil, req)
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.NotEmpty(t, out.Alerts)
}

func TestAdjudicateClaimTool(t *testing.T) {
	tl := testTools()

	m := rxmember.RxMember{
		MemberID:        "M1001",
		CardholderID:    "C1001",
		PersonCode:      "01",
		BIN:             constants.TestBIN,
		PCN:             constants.TestPCN,
		GroupNumber:     constants.TestGroup,
		Active:          true,
		DateOfBirth:     time.Date(1970, 3, 15, 0, 0, 0, 0, time.UTC),
		DeductibleLimit: decimal.NewFromInt(100),
		OOPLimit:        decimal.NewFromInt(2000),
	}
	claim := adjudication.Claim{
		ClaimID:        "RX1",
		MemberID:       m.MemberID,
		NDC:            "00093017101",
		Quantity:       30,
		DaysSupply:     30,
		IngredientCost: decimal.NewFromInt(12),
		ServiceDate:    time.Now(),
	}

	_, out, err := tl.adjudicateClaim(context.Background(), nil, adjudicateClaimInput{Claim: claim, Member: m})
	require.NoError(t, err)
	assert.Equal(t, adjudication.StatusPaid, out.Status)
	assert.True(t, out.PlanPaid.Add(out.PatientPay).Equal(out.TotalCost))
}

func TestListScenariosTool(t *testing.T) {
	tl := testTools()
	_, out, err := tl.listScenarios(context.Background(), nil, listScenariosInput{})
	require.NoError(t, err)
	assert.Contains(t, out.Scenarios, "diabetes")
}

func TestNewServerRegistersTools(t *testing.T) {
	assert.NotNil(t, NewServer())
}
