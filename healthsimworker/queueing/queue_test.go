package queueing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bgentry/que-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/metrics"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/testutils"
	"github.com/mark64oswald/healthsim-core/healthsimworker/worker"
)

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) ValidateJob(ctx context.Context, jobArgs models.JobEnqueueArgs) (*models.Job, error) {
	args := m.Called(ctx, jobArgs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockWorker) ProcessJob(ctx context.Context, job models.Job, jobArgs models.JobEnqueueArgs) error {
	args := m.Called(ctx, job, jobArgs)
	return args.Error(0)
}

func testMasterQueue(w worker.Worker) *MasterQueue {
	return &MasterQueue{
		queue: &queue{
			worker:     w,
			repository: &models.MockRepository{},
			log:        logrus.New(),
			timer:      metrics.GetTimer(),
		},
		MaxRetry: 3,
	}
}

func queJob(t *testing.T, jobArgs models.JobEnqueueArgs, errorCount int32) *que.Job {
	args, err := json.Marshal(jobArgs)
	require.NoError(t, err)
	return &que.Job{ID: 100, Type: models.QueProcessJob, Args: args, ErrorCount: errorCount}
}

func testJobArgs() models.JobEnqueueArgs {
	return models.JobEnqueueArgs{
		ID:         1,
		Population: constants.PopulationPatient,
		Format:     constants.FormatFHIR,
		Count:      10,
		Seed:       42,
	}
}

func TestProcessJob(t *testing.T) {
	w := &mockWorker{}
	jobArgs := testJobArgs()
	exportJob := &models.Job{ID: 1, Status: models.JobStatusPending, JobCount: 1}

	w.On("ValidateJob", testutils.CtxMatcher, jobArgs).Return(exportJob, nil)
	w.On("ProcessJob", testutils.CtxMatcher, *exportJob, jobArgs).Return(nil)

	q := testMasterQueue(w)
	assert.NoError(t, q.processJob(queJob(t, jobArgs, 0)))
	w.AssertExpectations(t)
}

func TestProcessJobBadArgs(t *testing.T) {
	w := &mockWorker{}
	q := testMasterQueue(w)

	// Undecodable args are acked so the queue job is removed rather than retried.
	assert.NoError(t, q.processJob(&que.Job{ID: 100, Type: models.QueProcessJob, Args: []byte("not json")}))
	w.AssertNotCalled(t, "ValidateJob", mock.Anything, mock.Anything)
}

func TestProcessJobAckedValidationResults(t *testing.T) {
	for _, jobErr := range []error{
		worker.ErrParentJobCancelled,
		worker.ErrParentJobFailed,
		worker.ErrNoPopulationSet,
	} {
		t.Run(jobErr.Error(), func(t *testing.T) {
			w := &mockWorker{}
			jobArgs := testJobArgs()
			w.On("ValidateJob", testutils.CtxMatcher, jobArgs).Return(nil, jobErr)

			q := testMasterQueue(w)
			assert.NoError(t, q.processJob(queJob(t, jobArgs, 0)))
			w.AssertNotCalled(t, "ProcessJob", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcessJobParentNotFound(t *testing.T) {
	jobArgs := testJobArgs()

	t.Run("retries remain", func(t *testing.T) {
		w := &mockWorker{}
		w.On("ValidateJob", testutils.CtxMatcher, jobArgs).Return(nil, worker.ErrParentJobNotFound)

		q := testMasterQueue(w)
		err := q.processJob(queJob(t, jobArgs, 0))
		assert.ErrorIs(t, err, models.ErrJobNotFound)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		w := &mockWorker{}
		w.On("ValidateJob", testutils.CtxMatcher, jobArgs).Return(nil, worker.ErrParentJobNotFound)

		q := testMasterQueue(w)
		assert.NoError(t, q.processJob(queJob(t, jobArgs, 3)))
	})
}

func TestProcessJobWorkerError(t *testing.T) {
	w := &mockWorker{}
	jobArgs := testJobArgs()
	exportJob := &models.Job{ID: 1, Status: models.JobStatusPending, JobCount: 1}

	w.On("ValidateJob", testutils.CtxMatcher, jobArgs).Return(exportJob, nil)
	w.On("ProcessJob", testutils.CtxMatcher, *exportJob, jobArgs).Return(assert.AnError)

	q := testMasterQueue(w)
	assert.Error(t, q.processJob(queJob(t, jobArgs, 0)))
}

func TestCheckIfCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &models.MockRepository{}
	r.On("GetJobByID", testutils.CtxMatcher, uint(1)).
		Return(&models.Job{ID: 1, Status: models.JobStatusCancelled}, nil)

	done := make(chan struct{})
	go func() {
		checkIfCancelled(ctx, r, cancel, 1, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
