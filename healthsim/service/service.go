// Package service holds the business logic for creating, inspecting
// and cancelling cohort export jobs.
package service

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	healthsimerrors "github.com/mark64oswald/healthsim-core/healthsim/errors"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
	"github.com/mark64oswald/healthsim-core/log"
)

var (
	ErrJobNotCancelled   = goerrors.New("Job was not cancelled due to internal server error")
	ErrJobNotCancellable = goerrors.New("Job was not cancelled because it is not Pending or In Progress")
)

// validFormats lists the output formats each population supports.
var validFormats = map[string][]string{
	constants.PopulationPatient:  {constants.FormatFHIR, constants.FormatHL7, constants.FormatCSV},
	constants.PopulationMember:   {constants.FormatX12, constants.FormatFHIR, constants.FormatCSV},
	constants.PopulationRxMember: {constants.FormatNCPDP, constants.FormatCSV},
}

// ExportRequest describes the cohort a caller wants generated.
type ExportRequest struct {
	Population string   `json:"population"`
	Count      int      `json:"count"`
	Seed       int64    `json:"seed"`
	Formats    []string `json:"formats"`

	Scenario    string `json:"scenario,omitempty"`
	PlanCode    string `json:"plan_code,omitempty"`
	BIN         string `json:"bin,omitempty"`
	PCN         string `json:"pcn,omitempty"`
	GroupNumber string `json:"group_number,omitempty"`

	RequestURL string `json:"-"`
}

type Service interface {
	// CreateExportJob persists a new job and returns it along with the
	// queue payloads, one per requested format.
	CreateExportJob(ctx context.Context, req ExportRequest) (*models.Job, []*models.JobEnqueueArgs, error)

	GetJobAndKeys(ctx context.Context, jobID uint) (*models.Job, []*models.JobKey, error)

	CancelJob(ctx context.Context, jobID uint) (uint, error)

	GetJobs(ctx context.Context, statuses ...models.JobStatus) ([]*models.Job, error)

	// JobExpired reports whether a completed job's files have aged out
	// of the download window.
	JobExpired(job *models.Job) bool

	// ArchiveExpiredJobs marks completed jobs past the expiry window
	// and returns how many rows changed.
	ArchiveExpiredJobs(ctx context.Context) (int64, error)
}

// Config carries the service tunables hydrated from the environment.
type Config struct {
	MaxExportCount int `conf:"HEALTHSIM_MAX_EXPORT_COUNT" conf_default:"10000"`
	JobExpiryHours int `conf:"HEALTHSIM_JOB_EXPIRY_HOURS" conf_default:"24"`
}

// LoadConfig hydrates Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		return cfg, fmt.Errorf("could not load service config: %w", err)
	}
	return cfg, nil
}

func NewService(r models.Repository, cfg Config) Service {
	return &service{repository: r, cfg: cfg, logger: log.API}
}

type service struct {
	repository models.Repository
	cfg        Config
	logger     logrus.FieldLogger
}

func (s *service) CreateExportJob(ctx context.Context, req ExportRequest) (*models.Job, []*models.JobEnqueueArgs, error) {
	if err := s.validate(&req); err != nil {
		return nil, nil, err
	}

	job := models.Job{
		RequestURL:      req.RequestURL,
		Status:          models.JobStatusPending,
		TransactionTime: time.Now(),
		Population:      req.Population,
		Count:           req.Count,
		Seed:            req.Seed,
		JobCount:        len(req.Formats),
	}

	id, err := s.repository.CreateJob(ctx, job)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create job: %w", err)
	}
	job.ID = id

	args := make([]*models.JobEnqueueArgs, 0, len(req.Formats))
	for _, format := range req.Formats {
		args = append(args, &models.JobEnqueueArgs{
			ID:              int(id),
			Format:          format,
			Population:      req.Population,
			Count:           req.Count,
			Seed:            req.Seed,
			Scenario:        req.Scenario,
			PlanCode:        req.PlanCode,
			BIN:             req.BIN,
			PCN:             req.PCN,
			GroupNumber:     req.GroupNumber,
			TransactionTime: job.TransactionTime,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":     id,
		"population": req.Population,
		"count":      req.Count,
		"formats":    strings.Join(req.Formats, ","),
	}).Info("export job created")
	return &job, args, nil
}

func (s *service) validate(req *ExportRequest) error {
	allowed, ok := validFormats[req.Population]
	if !ok {
		return &healthsimerrors.ValidationError{Msg: fmt.Sprintf("invalid population %q", req.Population)}
	}
	if req.Count < 1 || req.Count > s.cfg.MaxExportCount {
		return &healthsimerrors.ValidationError{Msg: fmt.Sprintf("count must be between 1 and %d", s.cfg.MaxExportCount)}
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	if len(req.Formats) == 0 {
		req.Formats = allowed[:1]
	}
	for _, f := range req.Formats {
		if !utils.ContainsString(allowed, f) {
			return &healthsimerrors.ValidationError{Msg: fmt.Sprintf("format %q is not valid for population %q", f, req.Population)}
		}
	}
	if req.Population == constants.PopulationRxMember {
		if req.BIN == "" {
			req.BIN = constants.TestBIN
		}
		if req.PCN == "" {
			req.PCN = constants.TestPCN
		}
		if req.GroupNumber == "" {
			req.GroupNumber = constants.TestGroup
		}
	}
	return nil
}

func (s *service) GetJobAndKeys(ctx context.Context, jobID uint) (*models.Job, []*models.JobKey, error) {
	j, err := s.repository.GetJobByID(ctx, jobID)
	if goerrors.Is(err, models.ErrJobNotFound) {
		return nil, nil, &healthsimerrors.JobNotFoundError{JobID: jobID, Err: err}
	} else if err != nil {
		return nil, nil, err
	}

	// No need to look up job keys unless the job is complete.
	if j.Status != models.JobStatusCompleted {
		return j, nil, nil
	}

	keys, err := s.repository.GetJobKeys(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	nonEmptyKeys := make([]*models.JobKey, 0, len(keys))
	for i, key := range keys {
		if strings.TrimSpace(key.FileName) == models.BlankFileName {
			continue
		}
		nonEmptyKeys = append(nonEmptyKeys, keys[i])
	}

	return j, nonEmptyKeys, nil
}

func (s *service) CancelJob(ctx context.Context, jobID uint) (uint, error) {
	job, err := s.repository.GetJobByID(ctx, jobID)
	if goerrors.Is(err, models.ErrJobNotFound) {
		return 0, &healthsimerrors.JobNotFoundError{JobID: jobID, Err: err}
	} else if err != nil {
		return 0, err
	}

	if job.Status == models.JobStatusPending || job.Status == models.JobStatusInProgress {
		if err := s.repository.UpdateJobStatus(ctx, job.ID, models.JobStatusCancelled); err != nil {
			return 0, ErrJobNotCancelled
		}
		return jobID, nil
	}

	return 0, ErrJobNotCancellable
}

func (s *service) GetJobs(ctx context.Context, statuses ...models.JobStatus) ([]*models.Job, error) {
	return s.repository.GetJobs(ctx, statuses...)
}

func (s *service) JobExpired(job *models.Job) bool {
	if job.Status != models.JobStatusCompleted {
		return job.Status == models.JobStatusArchived || job.Status == models.JobStatusExpired
	}
	window := time.Duration(s.cfg.JobExpiryHours) * time.Hour
	return job.UpdatedAt.Add(window).Before(time.Now())
}

func (s *service) ArchiveExpiredJobs(ctx context.Context) (int64, error) {
	return s.repository.ArchiveExpiredJobs(ctx, time.Duration(s.cfg.JobExpiryHours)*time.Hour)
}
