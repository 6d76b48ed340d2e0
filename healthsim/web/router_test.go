package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/mark64oswald/healthsim-core/healthsim/api"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/health"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/service"
	"github.com/mark64oswald/healthsim-core/healthsim/testutils"
)

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(args *models.JobEnqueueArgs) error { return nil }

func testRouter(repository models.Repository) http.Handler {
	svc := service.NewService(repository, service.Config{MaxExportCount: 10000, JobExpiryHours: 24})
	h := api.NewHandler(svc, noopEnqueuer{}, health.HealthChecker{})
	return NewAPIRouter(h, api.NewRxHandler())
}

func TestRouterRequiresAPIKey(t *testing.T) {
	router := testRouter(&models.MockRepository{})

	req := httptest.NewRequest("GET", "/api/v1/scenarios", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/api/v1/scenarios", nil)
	req.Header.Set("X-Api-Key", constants.TestAPIKey)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterOpenEndpoints(t *testing.T) {
	router := testRouter(&models.MockRepository{})

	for _, path := range []string{"/api/v1/metadata", "/_version"} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouterJobStatus(t *testing.T) {
	repository := &models.MockRepository{}
	repository.On("GetJobByID", testutils.CtxMatcher, uint(12)).
		Return(&models.Job{ID: 12, Status: models.JobStatusPending}, nil)
	router := testRouter(repository)

	req := httptest.NewRequest("GET", "/api/v1/jobs/12", nil)
	req.Header.Set("X-Api-Key", constants.TestAPIKey)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "Pending", rr.Header().Get(constants.ExpectedJobsHeader))
}

func TestCommonMiddlewareRecoversPanic(t *testing.T) {
	r := chi.NewRouter()
	useCommonMiddleware(r, time.Second)
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { r.ServeHTTP(rr, req) })
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCommonMiddlewareRequestTimeout(t *testing.T) {
	r := chi.NewRouter()
	useCommonMiddleware(r, 5*time.Millisecond)
	r.Get("/slow", func(w http.ResponseWriter, req *http.Request) {
		// Wait out the deadline without writing so the middleware responds.
		<-req.Context().Done()
	})

	req := httptest.NewRequest("GET", "/slow", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}

func TestDataRouterRequiresAPIKey(t *testing.T) {
	router := NewDataRouter()

	req := httptest.NewRequest("GET", "/data/1/patient.ndjson", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHTTPRouterRedirects(t *testing.T) {
	router := NewHTTPRouter()

	req := httptest.NewRequest("GET", "http://example.com/api/v1/metadata", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "https://example.com/api/v1/metadata", rr.Header().Get("Location"))
}
