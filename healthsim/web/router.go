package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mark64oswald/healthsim-core/healthsim/api"
	"github.com/mark64oswald/healthsim-core/healthsim/logging"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
)

// useCommonMiddleware mounts the chain every listener shares: request
// IDs, structured request logs, panic recovery, security headers and a
// per request deadline.
func useCommonMiddleware(r chi.Router, requestTimeout time.Duration) {
	r.Use(middleware.RequestID, logging.NewStructuredLogger(), middleware.Recoverer, SecurityHeader, ConnectionClose)
	r.Use(middleware.Timeout(requestTimeout))
}

// NewAPIRouter serves the export job lifecycle and the interactive
// pharmacy endpoints.
func NewAPIRouter(h *api.Handler, rx *api.RxHandler) http.Handler {
	r := chi.NewRouter()
	useCommonMiddleware(r, time.Duration(utils.GetEnvInt("API_REQUEST_TIMEOUT", 20))*time.Second)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(RequireAPIKey).Post("/exports", h.CreateExport)
		r.With(RequireAPIKey).Get("/jobs/{jobID}", h.JobStatus)
		r.With(RequireAPIKey).Delete("/jobs/{jobID}", h.DeleteJob)

		r.With(RequireAPIKey).Post("/rx/adjudicate", rx.Adjudicate)
		r.With(RequireAPIKey).Post("/rx/dur", rx.ScreenDUR)
		r.With(RequireAPIKey).Get("/formulary/{ndc}", rx.CheckFormulary)
		r.With(RequireAPIKey).Get("/scenarios", rx.ListScenarios)

		r.Get("/metadata", h.Metadata)
	})
	r.Get("/_version", api.GetVersion)
	r.Get("/_health", h.HealthCheck)
	return r
}

// NewDataRouter serves completed export files. The request timeout
// stays inside the file server's write timeout so large payload
// downloads are not cut off by the shorter API deadline.
func NewDataRouter() http.Handler {
	r := chi.NewRouter()
	useCommonMiddleware(r, time.Duration(utils.GetEnvInt("FILESERVER_REQUEST_TIMEOUT", 350))*time.Second)
	r.With(RequireAPIKey).Get("/data/{jobID}/{fileName}", api.ServeData)
	return r
}

// NewHTTPRouter redirects plaintext requests to the HTTPS listener.
func NewHTTPRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(ConnectionClose)
	r.With(logging.NewStructuredLogger()).Get("/*", func(w http.ResponseWriter, req *http.Request) {
		url := "https://" + req.Host + req.URL.String()
		http.Redirect(w, req, url, http.StatusMovedPermanently)
	})
	return r
}
