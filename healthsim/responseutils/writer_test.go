package responseutils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/fhir"
)

func TestException(t *testing.T) {
	rw := NewResponseWriter()
	rr := httptest.NewRecorder()

	rw.Exception(context.Background(), rr, http.StatusBadRequest, Invalid, "count must be between 1 and 10000")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, constants.FHIRJSONContentType, rr.Header().Get("Content-Type"))

	var oo fhir.OperationOutcome
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &oo))
	assert.Equal(t, "OperationOutcome", oo.ResourceType)
	assert.Len(t, oo.Issue, 1)
	assert.Equal(t, Error, oo.Issue[0].Severity)
	assert.Equal(t, Invalid, oo.Issue[0].Code)
	assert.Equal(t, "count must be between 1 and 10000", oo.Issue[0].Diagnostics)
}

func TestNotFound(t *testing.T) {
	rw := NewResponseWriter()
	rr := httptest.NewRecorder()

	rw.NotFound(context.Background(), rr, http.StatusNotFound, "no job found for given id")

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var oo fhir.OperationOutcome
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &oo))
	assert.Equal(t, Not_found, oo.Issue[0].Code)
}

func TestRetryAfterHeader(t *testing.T) {
	rw := NewResponseWriter()
	rr := httptest.NewRecorder()

	rw.Exception(context.Background(), rr, http.StatusServiceUnavailable, Timeout, "try again")

	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestCreateCapabilityStatement(t *testing.T) {
	cs := CreateCapabilityStatement(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "r1", "http://localhost:3000")

	assert.Equal(t, "CapabilityStatement", cs.ResourceType)
	assert.Equal(t, "2024-03-15", cs.Date)
	assert.Equal(t, "r1", cs.Software.Version)
	assert.Equal(t, "http://localhost:3000", cs.Implementation.URL)
	assert.Equal(t, "4.0.1", cs.FHIRVersion)
}
