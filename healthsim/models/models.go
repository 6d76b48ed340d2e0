package models

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusInProgress JobStatus = "In Progress"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusArchived   JobStatus = "Archived"
	JobStatusExpired    JobStatus = "Expired"
	JobStatusFailed     JobStatus = "Failed"
	JobStatusCancelled  JobStatus = "Cancelled"
)

// AllJobStatuses exists for validation and reporting.
var AllJobStatuses = []JobStatus{JobStatusPending, JobStatusInProgress,
	JobStatusCompleted, JobStatusArchived, JobStatusExpired, JobStatusFailed,
	JobStatusCancelled}

// Job represents a cohort export request. One Job fans out into one queue
// job per requested output format; JobCount/CompletedJobCount track the
// fan-out.
type Job struct {
	ID                uint
	RequestURL        string
	Status            JobStatus
	TransactionTime   time.Time
	Population        string
	Count             int
	Seed              int64
	JobCount          int
	CompletedJobCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StatusMessage returns the status with percent completed appended when
// the job is in progress.
func (j *Job) StatusMessage() string {
	if j.Status == JobStatusInProgress && j.JobCount > 0 {
		pct := float64(j.CompletedJobCount) / float64(j.JobCount) * 100
		return fmt.Sprintf("%s (%d%%)", j.Status, int(pct))
	}
	return string(j.Status)
}

// JobKey records one output file produced for a Job.
type JobKey struct {
	ID       uint
	JobID    uint
	FileName string
	Format   string
}

const BlankFileName = "blank.ndjson"

// JobEnqueueArgs is the payload serialized onto the queue; one per output
// format of a parent Job.
type JobEnqueueArgs struct {
	ID              int       `json:"id"`
	Format          string    `json:"format"`
	Population      string    `json:"population"`
	Count           int       `json:"count"`
	Seed            int64     `json:"seed"`
	Scenario        string    `json:"scenario,omitempty"`
	PlanCode        string    `json:"plan_code,omitempty"`
	BIN             string    `json:"bin,omitempty"`
	PCN             string    `json:"pcn,omitempty"`
	GroupNumber     string    `json:"group_number,omitempty"`
	TransactionTime time.Time `json:"transaction_time"`
}

// QueProcessJob is the que-go job type consumed by the worker.
const QueProcessJob = "ProcessJob"

// FormularyDrug is one imported formulary row. The formulary package owns
// coverage semantics; this struct only mirrors the persisted shape.
type FormularyDrug struct {
	ID            uint
	NDC           string
	GPI           string
	Name          string
	Tier          int
	RequiresPA    bool
	StepTherapy   bool
	QuantityLimit int
}
