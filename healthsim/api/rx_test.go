package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

func activeMember() rxmember.RxMember {
	return rxmember.RxMember{
		MemberID:        "CH12345678901",
		CardholderID:    "CH123456789",
		PersonCode:      "01",
		BIN:             constants.TestBIN,
		PCN:             constants.TestPCN,
		GroupNumber:     constants.TestGroup,
		Active:          true,
		FirstName:       "Ana",
		LastName:        "Reyes",
		DateOfBirth:     time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:          "F",
		DeductibleLimit: decimal.NewFromInt(100),
		OOPLimit:        decimal.NewFromInt(2000),
	}
}

func TestAdjudicateEndpoint(t *testing.T) {
	h := NewRxHandler()

	body, err := json.Marshal(adjudicateRequest{
		Claim: adjudication.Claim{
			ClaimID:        "RX0001",
			NDC:            "00093017101",
			Quantity:       60,
			DaysSupply:     30,
			IngredientCost: decimal.NewFromInt(48),
			ServiceDate:    time.Now(),
		},
		Member: activeMember(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/rx/adjudicate", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Adjudicate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp adjudication.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, adjudication.StatusPaid, resp.Status)
	assert.NotEmpty(t, resp.AuthorizationNumber)
	assert.True(t, resp.PlanPaid.Add(resp.PatientPay).Equal(resp.TotalCost))
}

func TestAdjudicateEndpointRejected(t *testing.T) {
	h := NewRxHandler()

	body, _ := json.Marshal(adjudicateRequest{
		Claim: adjudication.Claim{
			ClaimID:        "RX0002",
			NDC:            "99999999999",
			Quantity:       30,
			DaysSupply:     30,
			IngredientCost: decimal.NewFromInt(10),
			ServiceDate:    time.Now(),
		},
		Member: activeMember(),
	})

	req := httptest.NewRequest("POST", "/api/v1/rx/adjudicate", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Adjudicate(rr, req)

	var resp adjudication.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, adjudication.StatusRejected, resp.Status)
	assert.Equal(t, adjudication.RejectProductNotCovered, resp.RejectCode)
}

func TestAdjudicateEndpointBadBody(t *testing.T) {
	h := NewRxHandler()

	req := httptest.NewRequest("POST", "/api/v1/rx/adjudicate", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()

	h.Adjudicate(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScreenDUREndpoint(t *testing.T) {
	h := NewRxHandler()

	body, _ := json.Marshal(dur.Request{
		Drug:        dur.Drug{NDC: "00904515260", GPI: "66100010000310", Name: "Ibuprofen 800mg"},
		Quantity:    90,
		DaysSupply:  30,
		ServiceDate: time.Now(),
		CurrentMedications: []dur.Medication{
			{Drug: dur.Drug{NDC: "00056017270", GPI: "83300010000330", Name: "Warfarin 5mg"},
				LastFillDate: time.Now().Add(-10 * 24 * time.Hour), DaysSupply: 30},
		},
		PatientAge:    55,
		PatientGender: "M",
	})

	req := httptest.NewRequest("POST", "/api/v1/rx/dur", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.ScreenDUR(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result dur.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Passed)
	assert.Equal(t, dur.SeverityMajor, result.MaxSeverity())
}

func TestCheckFormularyEndpoint(t *testing.T) {
	h := NewRxHandler()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("ndc", "00093017101")
	req := httptest.NewRequest("GET", "/api/v1/formulary/00093017101", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	h.CheckFormulary(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var status formulary.CoverageStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.True(t, status.Covered)
	assert.Equal(t, formulary.TierPreferredGeneric, status.Tier)
}

func TestListScenariosEndpoint(t *testing.T) {
	h := NewRxHandler()

	req := httptest.NewRequest("GET", "/api/v1/scenarios", nil)
	rr := httptest.NewRecorder()

	h.ListScenarios(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var scenarios []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scenarios))
	assert.Contains(t, scenarios, "diabetes")
	assert.Contains(t, scenarios, "wellness")
}
