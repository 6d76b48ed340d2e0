package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
	"github.com/mark64oswald/healthsim-core/healthsim/responseutils"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

// RxHandler serves the interactive pharmacy endpoints. These operate on
// an in-memory formulary and adjudication engine rather than the job
// pipeline.
type RxHandler struct {
	Engine    *adjudication.Engine
	Formulary *formulary.Formulary
	Validator *dur.Validator

	rw responseutils.ResponseWriter
}

func NewRxHandler() *RxHandler {
	f := formulary.NewGenerator().StandardCommercial()
	return &RxHandler{
		Engine:    adjudication.NewEngine(f),
		Formulary: f,
		Validator: dur.NewValidator(),
		rw:        responseutils.NewResponseWriter(),
	}
}

type adjudicateRequest struct {
	Claim  adjudication.Claim `json:"claim"`
	Member rxmember.RxMember  `json:"member"`
}

// Adjudicate runs a pharmacy claim through the adjudication engine.
func (h *RxHandler) Adjudicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adjudicateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, "could not parse request body")
		return
	}

	resp, err := h.Engine.Adjudicate(ctx, req.Claim, &req.Member)
	if err != nil {
		h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
		return
	}

	render.JSON(w, r, resp)
}

// ScreenDUR runs drug utilization review screening without adjudicating.
func (h *RxHandler) ScreenDUR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dur.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, "could not parse request body")
		return
	}

	result := h.Validator.Validate(req)
	render.JSON(w, r, result)
}

// CheckFormulary looks up coverage for a single NDC.
func (h *RxHandler) CheckFormulary(w http.ResponseWriter, r *http.Request) {
	ndc := chi.URLParam(r, "ndc")
	status := h.Formulary.CheckCoverage(ndc)
	render.JSON(w, r, status)
}

// ListScenarios returns the clinical scenarios available to the patient
// generator.
func (h *RxHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, patient.ListScenarios())
}
