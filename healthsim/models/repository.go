package models

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound   = errors.New("no job found for given id")
	ErrJobNotUpdated = errors.New("job was not updated, no match found")
)

// Repository contains all of the methods needed to interact with the data
// represented in the models package.
type Repository interface {
	jobRepository
	jobKeyRepository
	formularyRepository
}

type jobRepository interface {
	CreateJob(ctx context.Context, j Job) (jobID uint, err error)

	GetJobByID(ctx context.Context, jobID uint) (*Job, error)

	// GetJobs returns jobs matching any of the provided statuses,
	// most recent first.
	GetJobs(ctx context.Context, statuses ...JobStatus) ([]*Job, error)

	UpdateJobStatus(ctx context.Context, jobID uint, new JobStatus) error

	// UpdateJobStatusCheckStatus updates the job indicated by jobID
	// iff the job's status field matches current.
	UpdateJobStatusCheckStatus(ctx context.Context, jobID uint, current, new JobStatus) error

	IncrementCompletedJobCount(ctx context.Context, jobID uint) error

	// ArchiveExpiredJobs marks completed jobs older than maxAge as Archived
	// and returns the number of jobs updated.
	ArchiveExpiredJobs(ctx context.Context, maxAge time.Duration) (int64, error)
}

type jobKeyRepository interface {
	CreateJobKey(ctx context.Context, jobKey JobKey) error

	GetJobKeys(ctx context.Context, jobID uint) ([]*JobKey, error)

	GetJobKeyCount(ctx context.Context, jobID uint) (int, error)
}

type formularyRepository interface {
	CreateFormularyDrugs(ctx context.Context, drugs []FormularyDrug) error

	GetFormularyDrug(ctx context.Context, ndc string) (*FormularyDrug, error)

	GetFormularyDrugs(ctx context.Context) ([]FormularyDrug, error)
}
