// Package responseutils serializes API error and metadata responses as
// FHIR resources.
package responseutils

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/fhir"
	"github.com/mark64oswald/healthsim-core/log"
)

type ResponseWriter struct{}

func NewResponseWriter() ResponseWriter {
	return ResponseWriter{}
}

func (r ResponseWriter) Exception(ctx context.Context, w http.ResponseWriter, statusCode int, errType, errMsg string) {
	oo := CreateOpOutcome(Error, errType, errMsg)
	r.WriteError(ctx, oo, w, statusCode)
}

func (r ResponseWriter) NotFound(ctx context.Context, w http.ResponseWriter, statusCode int, errMsg string) {
	oo := CreateOpOutcome(Error, Not_found, errMsg)
	r.WriteError(ctx, oo, w, statusCode)
}

func CreateOpOutcome(severity, code, diagnostics string) *fhir.OperationOutcome {
	return &fhir.OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []fhir.OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func (r ResponseWriter) WriteError(ctx context.Context, outcome *fhir.OperationOutcome, w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", constants.FHIRJSONContentType)
	if code == http.StatusServiceUnavailable {
		includeRetryAfterHeader(w)
	}
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		log.API.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func includeRetryAfterHeader(w http.ResponseWriter) {
	retrySeconds := strconv.FormatInt(int64(1), 10)
	w.Header().Set("Retry-After", retrySeconds)
}

// CreateCapabilityStatement describes the server for the metadata
// endpoint.
func CreateCapabilityStatement(reldate time.Time, relversion, baseurl string) *fhir.CapabilityStatement {
	return &fhir.CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         reldate.Format("2006-01-02"),
		Publisher:    "HealthSim",
		Kind:         "instance",
		Software: fhir.CapabilityStatementSoftware{
			Name:    "HealthSim Synthetic Data API",
			Version: relversion,
		},
		Implementation: fhir.CapabilityStatementImpl{
			Description: "Synthetic healthcare cohort generation and export",
			URL:         baseurl,
		},
		FHIRVersion: "4.0.1",
		Format:      []string{"application/json", constants.FHIRJSONContentType},
	}
}
