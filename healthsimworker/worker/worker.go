// Package worker processes queued export jobs: it generates the cohort
// described by the job args and writes the formatted output file.
package worker

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/delivery"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/models/postgres"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
	"github.com/mark64oswald/healthsim-core/log"
)

type Worker interface {
	ValidateJob(ctx context.Context, jobArgs models.JobEnqueueArgs) (*models.Job, error)
	ProcessJob(ctx context.Context, job models.Job, jobArgs models.JobEnqueueArgs) error
}

type worker struct {
	r models.Repository
}

func NewWorker(db *sql.DB) Worker {
	return &worker{postgres.NewRepository(db)}
}

func (w *worker) ValidateJob(ctx context.Context, jobArgs models.JobEnqueueArgs) (*models.Job, error) {
	if len(jobArgs.Population) == 0 {
		return nil, ErrNoPopulationSet
	}

	exportJob, err := w.r.GetJobByID(ctx, uint(jobArgs.ID))
	if goerrors.Is(err, models.ErrJobNotFound) {
		return nil, ErrParentJobNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "could not retrieve job from database")
	}

	if exportJob.Status == models.JobStatusCancelled {
		return nil, ErrParentJobCancelled
	}
	if exportJob.Status == models.JobStatusFailed {
		return nil, ErrParentJobFailed
	}

	return exportJob, nil
}

func (w *worker) ProcessJob(ctx context.Context, job models.Job, jobArgs models.JobEnqueueArgs) error {
	err := w.r.UpdateJobStatusCheckStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusInProgress)
	if goerrors.Is(err, models.ErrJobNotUpdated) {
		log.Worker.Warnf("Failed to update job. Assume job already updated. Continuing. %s", err.Error())
	} else if err != nil {
		return errors.Wrap(err, "could not update job status in database")
	}

	jobID := strconv.Itoa(jobArgs.ID)
	stagingPath := fmt.Sprintf("%s/%s", conf.GetEnv("HEALTHSIM_STAGING_DIR"), jobID)
	payloadPath := fmt.Sprintf("%s/%s", conf.GetEnv("HEALTHSIM_PAYLOAD_DIR"), jobID)

	if err = utils.CreateDir(stagingPath); err != nil {
		log.Worker.Error(err)
		return err
	}

	// Completed files move from staging to the payload dir at cleanup.
	if err = utils.CreateDir(payloadPath); err != nil {
		log.Worker.Error(err)
		return err
	}

	fileName := uuid.New() + fileExtension(jobArgs.Format)
	size, err := writeExportFile(ctx, stagingPath, fileName, jobArgs)

	if err != nil {
		log.Worker.Error(err)
		if err := w.r.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed); err != nil {
			return err
		}
	} else {
		if size == 0 {
			log.Worker.Warn("Empty file found in request: ", fileName)
			fileName = models.BlankFileName
		}

		jk := models.JobKey{JobID: job.ID, FileName: fileName, Format: jobArgs.Format}
		if err := w.r.CreateJobKey(ctx, jk); err != nil {
			log.Worker.Error(err)
			return err
		}
	}

	if _, err := CheckJobCompleteAndCleanup(ctx, w.r, job.ID); err != nil {
		log.Worker.Error(err)
		return err
	}

	// job_keys is the authoritative completion count; CompletedJobCount
	// is informational and may drift.
	if err := w.r.IncrementCompletedJobCount(ctx, job.ID); err != nil {
		log.Worker.Warnf("Failed to update completed job count for job %d. Will continue. %s", job.ID, err.Error())
	}

	return nil
}

// CheckJobCompleteAndCleanup checks whether every queue job of the
// parent has produced its file. Once the last one lands, the staged
// files are published to the payload target and the job is marked
// Completed.
func CheckJobCompleteAndCleanup(ctx context.Context, r models.Repository, jobID uint) (jobCompleted bool, err error) {
	j, err := r.GetJobByID(ctx, jobID)
	if err != nil {
		return false, err
	}

	if j.Status == models.JobStatusCompleted {
		return true, nil
	}

	completedCount, err := r.GetJobKeyCount(ctx, jobID)
	if err != nil {
		return false, err
	}

	if completedCount >= j.JobCount {
		staging := fmt.Sprintf("%s/%d", conf.GetEnv("HEALTHSIM_STAGING_DIR"), j.ID)

		files, err := os.ReadDir(staging)
		if err != nil {
			return false, err
		}

		saver := delivery.NewSaver(publishTarget(j.ID), log.Worker)
		for _, f := range files {
			src := fmt.Sprintf("%s/%s", staging, f.Name())
			fd, err := os.Open(src) // #nosec G304 -- path is built from the staging dir config
			if err != nil {
				return false, err
			}
			if _, err := saver.Save(f.Name(), fd); err != nil {
				fd.Close()
				return false, err
			}
			fd.Close()
			if err := os.Remove(src); err != nil {
				return false, err
			}
		}

		if err = os.Remove(staging); err != nil {
			return false, err
		}

		if err := r.UpdateJobStatus(ctx, j.ID, models.JobStatusCompleted); err != nil {
			return false, err
		}

		return true, nil
	}

	// Queue jobs remain outstanding.
	return false, nil
}

// publishTarget returns where a job's completed files land, either the
// local payload dir or an S3 prefix.
func publishTarget(jobID uint) string {
	if target := conf.GetEnv("HEALTHSIM_EXPORT_TARGET"); target != "" {
		return fmt.Sprintf("%s/%d", target, jobID)
	}
	return fmt.Sprintf("%s/%d", conf.GetEnv("HEALTHSIM_PAYLOAD_DIR"), jobID)
}

func fileExtension(format string) string {
	switch format {
	case constants.FormatFHIR:
		return ".ndjson"
	case constants.FormatX12:
		return ".x12"
	case constants.FormatHL7:
		return ".hl7"
	case constants.FormatNCPDP:
		return ".ncpdp"
	default:
		return ".csv"
	}
}

type JobError struct {
	ErrorString string
}

func (je JobError) Error() string {
	return je.ErrorString
}

var (
	ErrNoPopulationSet    = JobError{"empty Population: Must be set"}
	ErrParentJobNotFound  = JobError{"parent job not found"}
	ErrParentJobCancelled = JobError{"parent job cancelled"}
	ErrParentJobFailed    = JobError{"parent job failed"}
)
