// Package queueing retrieves export jobs with the que client and
// delegates the work to the underlying worker.
package queueing

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/bgentry/que-go"
	"github.com/jackc/pgx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/database"
	"github.com/mark64oswald/healthsim-core/healthsim/metrics"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/models/postgres"
	"github.com/mark64oswald/healthsim-core/healthsimworker/worker"
)

type queue struct {
	worker worker.Worker

	quePool *que.WorkerPool
	queDB   *pgx.ConnPool

	repository models.Repository
	log        logrus.FieldLogger
	timer      metrics.Timer
}

type MasterQueue struct {
	*queue

	StagingDir string `conf:"HEALTHSIM_STAGING_DIR"`
	PayloadDir string `conf:"HEALTHSIM_PAYLOAD_DIR"`
	MaxRetry   int32  `conf:"HEALTHSIM_WORKER_MAX_JOB_NOT_FOUND_RETRIES" conf_default:"3"`
}

func newMasterQueue(q *queue) *MasterQueue {
	mq := &MasterQueue{queue: q}
	if err := conf.Checkout(mq); err != nil {
		q.log.Fatal("Could not read worker queue configuration. ", err)
	}
	return mq
}

// StartQue connects to the queue database and starts the worker pool.
// The pool runs in its own goroutines, so this returns immediately.
func StartQue(logger logrus.FieldLogger, numWorkers int) *MasterQueue {
	mainDB, err := database.Connect()
	if err != nil {
		logger.Fatal(err)
	}
	queDB, err := database.QueuePool()
	if err != nil {
		logger.Fatal(err)
	}

	q := &queue{
		worker:     worker.NewWorker(mainDB),
		repository: postgres.NewRepository(mainDB),
		queDB:      queDB,
		log:        logger,
		timer:      metrics.GetTimer(),
	}
	master := newMasterQueue(q)

	qc := que.NewClient(queDB)
	wm := que.WorkMap{
		models.QueProcessJob: master.processJob,
	}

	q.quePool = que.NewWorkerPool(qc, wm, numWorkers)
	q.quePool.Start()

	return master
}

// StopQue drains the worker pool, flushes the timer and closes the
// queue connections.
func (q *MasterQueue) StopQue() {
	q.quePool.Shutdown()
	q.timer.Close()
	q.queDB.Close()
}

func (q *MasterQueue) processJob(queJob *que.Job) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jobArgs models.JobEnqueueArgs
	if err := json.Unmarshal(queJob.Args, &jobArgs); err != nil {
		// Undecodable args will never decode on a retry. ACK to drop the job.
		q.log.Warnf("Failed to deserialize job.Args '%s': %s. Removing queue job from que.", queJob.Args, err)
		return nil
	}

	logger := q.log.WithFields(logrus.Fields{
		"job_id":     jobArgs.ID,
		"population": jobArgs.Population,
		"format":     jobArgs.Format,
	})

	ctx = metrics.NewContext(ctx, q.timer)
	ctx, closeTxn := metricsParent(ctx, jobArgs)
	defer closeTxn()

	exportJob, err := q.worker.ValidateJob(ctx, jobArgs)
	if goerrors.Is(err, worker.ErrParentJobCancelled) {
		// Nothing to do for a cancelled parent. ACK to drop the job.
		logger.Warnf("queJob %d associated with a cancelled parent Job %d. Removing queue job from que.", queJob.ID, jobArgs.ID)
		return nil
	} else if goerrors.Is(err, worker.ErrParentJobFailed) {
		// Nothing to do for a failed parent either.
		logger.Warnf("queJob %d associated with a failed parent Job %d. Removing queue job from que.", queJob.ID, jobArgs.ID)
		return nil
	} else if goerrors.Is(err, worker.ErrNoPopulationSet) {
		// Args without a population can never produce a file.
		logger.Warnf("Job %d does not contain a population. Removing queue job from que.", jobArgs.ID)
		return nil
	} else if goerrors.Is(err, worker.ErrParentJobNotFound) {
		// que-go backs off between retries (ErrorCount^4 + 3 seconds), so
		// after MaxRetry attempts the parent row is not coming.
		if queJob.ErrorCount >= q.MaxRetry {
			logger.Errorf("No job found for ID: %d. Retries exhausted. Removing job from queue.", jobArgs.ID)
			return nil
		}

		logger.Warnf("No job found for ID: %d. Will retry.", jobArgs.ID)
		return errors.Wrap(models.ErrJobNotFound, "could not retrieve job from database")
	} else if err != nil {
		err := errors.Wrap(err, "failed to validate job")
		logger.Error(err)
		return err
	}

	go checkIfCancelled(ctx, q.repository, cancel, uint(jobArgs.ID), 15)

	if err := q.worker.ProcessJob(ctx, *exportJob, jobArgs); err != nil {
		err := errors.Wrap(err, "failed to process job")
		logger.Error(err)
		return err
	}

	return nil
}

// metricsParent opens a timing transaction covering the whole queue job.
// Child segments are opened inside the worker.
func metricsParent(ctx context.Context, jobArgs models.JobEnqueueArgs) (context.Context, func()) {
	return metrics.NewParent(ctx, fmt.Sprintf("ProcessJob-%s", jobArgs.Population))
}

// checkIfCancelled cancels the work context once the parent job is
// marked Cancelled so in-flight generation stops.
func checkIfCancelled(ctx context.Context, r models.Repository, cancel context.CancelFunc, jobID uint, pollSeconds int) {
	for {
		select {
		case <-time.After(time.Duration(pollSeconds) * time.Second):
			j, err := r.GetJobByID(ctx, jobID)
			if err != nil {
				continue
			}
			if j.Status == models.JobStatusCancelled {
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
