package models

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock satisfying Repository, shared by the
// service, api and worker tests.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateJob(ctx context.Context, j Job) (uint, error) {
	args := m.Called(ctx, j)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRepository) GetJobByID(ctx context.Context, jobID uint) (*Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Job), args.Error(1)
}

func (m *MockRepository) GetJobs(ctx context.Context, statuses ...JobStatus) ([]*Job, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Job), args.Error(1)
}

func (m *MockRepository) UpdateJobStatus(ctx context.Context, jobID uint, new JobStatus) error {
	args := m.Called(ctx, jobID, new)
	return args.Error(0)
}

func (m *MockRepository) UpdateJobStatusCheckStatus(ctx context.Context, jobID uint, current, new JobStatus) error {
	args := m.Called(ctx, jobID, current, new)
	return args.Error(0)
}

func (m *MockRepository) IncrementCompletedJobCount(ctx context.Context, jobID uint) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockRepository) ArchiveExpiredJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateJobKey(ctx context.Context, jobKey JobKey) error {
	args := m.Called(ctx, jobKey)
	return args.Error(0)
}

func (m *MockRepository) GetJobKeys(ctx context.Context, jobID uint) ([]*JobKey, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*JobKey), args.Error(1)
}

func (m *MockRepository) GetJobKeyCount(ctx context.Context, jobID uint) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreateFormularyDrugs(ctx context.Context, drugs []FormularyDrug) error {
	args := m.Called(ctx, drugs)
	return args.Error(0)
}

func (m *MockRepository) GetFormularyDrug(ctx context.Context, ndc string) (*FormularyDrug, error) {
	args := m.Called(ctx, ndc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FormularyDrug), args.Error(1)
}

func (m *MockRepository) GetFormularyDrugs(ctx context.Context) ([]FormularyDrug, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]FormularyDrug), args.Error(1)
}
