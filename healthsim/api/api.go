// Package api contains the HTTP handlers for the export job lifecycle
// and the interactive pharmacy endpoints.
package api

import (
	"compress/gzip"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bgentry/que-go"
	"github.com/go-chi/chi/v5"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	healthsimerrors "github.com/mark64oswald/healthsim-core/healthsim/errors"
	"github.com/mark64oswald/healthsim-core/healthsim/health"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/responseutils"
	"github.com/mark64oswald/healthsim-core/healthsim/service"
	"github.com/mark64oswald/healthsim-core/healthsim/servicemux"
	"github.com/mark64oswald/healthsim-core/log"
)

// Enqueuer pushes export queue jobs onto the worker queue.
type Enqueuer interface {
	Enqueue(args *models.JobEnqueueArgs) error
}

type queEnqueuer struct {
	qc *que.Client
}

func NewQueEnqueuer(qc *que.Client) Enqueuer {
	return queEnqueuer{qc: qc}
}

func (q queEnqueuer) Enqueue(args *models.JobEnqueueArgs) error {
	j, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return q.qc.Enqueue(&que.Job{Type: models.QueProcessJob, Args: j})
}

type Handler struct {
	Svc service.Service
	Enq Enqueuer
	HC  health.HealthChecker

	rw responseutils.ResponseWriter
}

func NewHandler(svc service.Service, enq Enqueuer, hc health.HealthChecker) *Handler {
	return &Handler{Svc: svc, Enq: enq, HC: hc, rw: responseutils.NewResponseWriter()}
}

// CreateExport accepts a cohort request and starts an export job.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, "could not parse request body")
		return
	}

	scheme := "http"
	if servicemux.IsHTTPS(r) {
		scheme = "https"
	}
	req.RequestURL = fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL)

	job, queJobs, err := h.Svc.CreateExportJob(ctx, req)
	var ve *healthsimerrors.ValidationError
	if goerrors.As(err, &ve) {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, ve.Error())
		return
	} else if err != nil {
		log.API.Error(err)
		h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
		return
	}

	for _, qj := range queJobs {
		if err := h.Enq.Enqueue(qj); err != nil {
			log.API.Error(err)
			h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
			return
		}
	}

	w.Header().Set(constants.ContentLocation, fmt.Sprintf("%s://%s/api/v1/jobs/%d", scheme, r.Host, job.ID))
	w.WriteHeader(http.StatusAccepted)
}

// JobStatus reports the state of an export job; completed jobs get the
// file manifest.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := parseJobID(r)
	if err != nil {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, "invalid job id")
		return
	}

	job, keys, err := h.Svc.GetJobAndKeys(ctx, jobID)
	var nfe *healthsimerrors.JobNotFoundError
	if goerrors.As(err, &nfe) {
		log.API.Print(nfe)
		h.rw.NotFound(ctx, w, http.StatusNotFound, "")
		return
	} else if err != nil {
		log.API.Error(err)
		h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
		return
	}

	switch job.Status {
	case models.JobStatusFailed:
		h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "job failed")
	case models.JobStatusPending, models.JobStatusInProgress:
		w.Header().Set(constants.ExpectedJobsHeader, job.StatusMessage())
		w.WriteHeader(http.StatusAccepted)
	case models.JobStatusCompleted:
		// The cleanup job may not have archived an aged-out job yet;
		// still respond with 410.
		if h.Svc.JobExpired(job) {
			h.rw.Exception(ctx, w, http.StatusGone, responseutils.Deleted, (&healthsimerrors.ExpiredError{JobID: job.ID}).Error())
			return
		}

		scheme := "http"
		if servicemux.IsHTTPS(r) {
			scheme = "https"
		}

		rb := exportResponseBody{
			TransactionTime:     job.TransactionTime,
			RequestURL:          job.RequestURL,
			RequiresAccessToken: true,
			Files:               []fileItem{},
			Errors:              []fileItem{},
			JobID:               job.ID,
		}
		for _, key := range keys {
			rb.Files = append(rb.Files, fileItem{
				Type: key.Format,
				URL:  fmt.Sprintf("%s://%s/data/%d/%s", scheme, r.Host, job.ID, strings.TrimSpace(key.FileName)),
			})
		}

		w.Header().Set("Content-Type", constants.JSONContentType)
		if err := json.NewEncoder(w).Encode(rb); err != nil {
			h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
		}
	case models.JobStatusArchived, models.JobStatusExpired:
		h.rw.Exception(ctx, w, http.StatusGone, responseutils.Deleted, (&healthsimerrors.ExpiredError{JobID: job.ID}).Error())
	case models.JobStatusCancelled:
		h.rw.Exception(ctx, w, http.StatusGone, responseutils.Deleted, "")
	}
}

// DeleteJob cancels an in-flight export job.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := parseJobID(r)
	if err != nil {
		h.rw.Exception(ctx, w, http.StatusBadRequest, responseutils.Invalid, "invalid job id")
		return
	}

	_, err = h.Svc.CancelJob(ctx, jobID)
	var nfe *healthsimerrors.JobNotFoundError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case goerrors.Is(err, service.ErrJobNotCancellable):
		h.rw.Exception(ctx, w, http.StatusGone, responseutils.Deleted, err.Error())
	case goerrors.As(err, &nfe):
		log.API.Print(nfe)
		h.rw.NotFound(ctx, w, http.StatusNotFound, "")
	default:
		log.API.Error(err)
		h.rw.Exception(ctx, w, http.StatusInternalServerError, responseutils.Processing, "")
	}
}

type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// ServeData streams a completed export file, gzipped when the client
// accepts it.
func ServeData(w http.ResponseWriter, r *http.Request) {
	dataDir := conf.GetEnv("HEALTHSIM_PAYLOAD_DIR")
	fileName := chi.URLParam(r, "fileName")
	jobID := chi.URLParam(r, "jobID")
	w.Header().Set("Content-Type", "application/fhir+ndjson")

	var useGZIP bool
	for _, header := range r.Header.Values("Accept-Encoding") {
		if header == "gzip" {
			useGZIP = true
			break
		}
	}

	if useGZIP {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()

		gzw := gzipResponseWriter{Writer: gz, ResponseWriter: w}
		http.ServeFile(gzw, r, fmt.Sprintf("%s/%s/%s", dataDir, jobID, fileName))
	} else {
		http.ServeFile(w, r, fmt.Sprintf("%s/%s/%s", dataDir, jobID, fileName))
	}
}

// Metadata returns the server capability statement.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if servicemux.IsHTTPS(r) {
		scheme = "https"
	}
	host := fmt.Sprintf("%s://%s", scheme, r.Host)
	statement := responseutils.CreateCapabilityStatement(time.Now(), constants.Version, host)

	w.Header().Set("Content-Type", constants.FHIRJSONContentType)
	if err := json.NewEncoder(w).Encode(statement); err != nil {
		log.API.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func GetVersion(w http.ResponseWriter, r *http.Request) {
	respMap := make(map[string]string)
	respMap["version"] = constants.Version
	respBytes, err := json.Marshal(respMap)
	if err != nil {
		log.API.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", constants.JSONContentType)
	if _, err := w.Write(respBytes); err != nil {
		log.API.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	m := make(map[string]string)

	result, ok := h.HC.IsDatabaseOK()
	m["database"] = result
	w.Header().Set("Content-Type", constants.JSONContentType)
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusBadGateway)
	}

	respJSON, err := json.Marshal(m)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, err := w.Write(respJSON); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseJobID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "jobID"), 10, 64)
	return uint(id), err
}

type fileItem struct {
	// Output format of file contents
	Type string `json:"type"`
	// URL of the file
	URL string `json:"url"`
}

type exportResponseBody struct {
	// Server time when the cohort was generated
	TransactionTime time.Time `json:"transactionTime"`
	// URL of the export request
	RequestURL string `json:"request"`
	// Whether downloads require the API key
	RequiresAccessToken bool `json:"requiresAccessToken"`
	// Download descriptors for the generated files
	Files []fileItem `json:"output"`
	// Download descriptors for error files
	Errors []fileItem `json:"error"`
	JobID  uint       `json:"jobID"`
}
