package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/mark64oswald/healthsim-core/healthsim/database"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
)

const sqlFlavor = sqlbuilder.PostgreSQL

// Compile-time interface check
var _ models.Repository = &Repository{}

type Repository struct {
	database.Queryable
	database.Executable
}

func NewRepository(db *sql.DB) *Repository {
	d := &database.DB{DB: db}
	return &Repository{d, d}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	t := &database.Tx{Tx: tx}
	return &Repository{t, t}
}

func (r *Repository) CreateJob(ctx context.Context, j models.Job) (uint, error) {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("jobs")
	ib.Cols("request_url", "status", "transaction_time", "population", "count", "seed", "job_count", "completed_job_count").
		Values(j.RequestURL, j.Status, j.TransactionTime, j.Population, j.Count, j.Seed, j.JobCount, j.CompletedJobCount)

	query, args := ib.Build()
	query = query + " RETURNING id"

	var jobID uint
	if err := r.QueryRowContext(ctx, query, args...).Scan(&jobID); err != nil {
		return 0, err
	}
	return jobID, nil
}

func (r *Repository) GetJobByID(ctx context.Context, jobID uint) (*models.Job, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "request_url", "status", "transaction_time", "population", "count", "seed",
		"job_count", "completed_job_count", "created_at", "updated_at")
	sb.From("jobs").Where(sb.Equal("id", jobID))

	query, args := sb.Build()
	j, err := scanJob(r.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

func (r *Repository) GetJobs(ctx context.Context, statuses ...models.JobStatus) ([]*models.Job, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "request_url", "status", "transaction_time", "population", "count", "seed",
		"job_count", "completed_job_count", "created_at", "updated_at")
	sb.From("jobs")
	if len(statuses) > 0 {
		vals := make([]interface{}, len(statuses))
		for i, s := range statuses {
			vals[i] = s
		}
		sb.Where(sb.In("status", vals...))
	}
	sb.OrderBy("created_at").Desc()

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row database.Row) (*models.Job, error) {
	var (
		j                                     models.Job
		transactionTime, createdAt, updatedAt sql.NullTime
	)
	err := row.Scan(&j.ID, &j.RequestURL, &j.Status, &transactionTime, &j.Population, &j.Count,
		&j.Seed, &j.JobCount, &j.CompletedJobCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	j.TransactionTime, j.CreatedAt, j.UpdatedAt = transactionTime.Time, createdAt.Time, updatedAt.Time
	return &j, nil
}

func (r *Repository) UpdateJobStatus(ctx context.Context, jobID uint, new models.JobStatus) error {
	return r.updateJob(ctx,
		map[string]interface{}{"id": jobID},
		map[string]interface{}{"status": new, "updated_at": time.Now()})
}

func (r *Repository) UpdateJobStatusCheckStatus(ctx context.Context, jobID uint, current, new models.JobStatus) error {
	return r.updateJob(ctx,
		map[string]interface{}{"id": jobID, "status": current},
		map[string]interface{}{"status": new, "updated_at": time.Now()})
}

func (r *Repository) IncrementCompletedJobCount(ctx context.Context, jobID uint) error {
	ub := sqlFlavor.NewUpdateBuilder().Update("jobs")
	ub.SetMore("completed_job_count = completed_job_count + 1")
	ub.SetMore(ub.Assign("updated_at", time.Now()))
	ub.Where(ub.Equal("id", jobID))

	query, args := ub.Build()
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *Repository) ArchiveExpiredJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	ub := sqlFlavor.NewUpdateBuilder().Update("jobs")
	ub.SetMore(ub.Assign("status", models.JobStatusArchived))
	ub.SetMore(ub.Assign("updated_at", time.Now()))
	ub.Where(ub.Equal("status", models.JobStatusCompleted))
	ub.Where(ub.LessThan("updated_at", time.Now().Add(-maxAge)))

	query, args := ub.Build()
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Repository) updateJob(ctx context.Context, clauses, fieldAndValues map[string]interface{}) error {
	ub := sqlFlavor.NewUpdateBuilder().Update("jobs")
	for field, value := range fieldAndValues {
		ub.SetMore(ub.Assign(field, value))
	}
	for field, value := range clauses {
		ub.Where(ub.Equal(field, value))
	}

	query, args := ub.Build()
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func checkAffected(result database.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrJobNotUpdated
	}
	return nil
}

func (r *Repository) CreateJobKey(ctx context.Context, jobKey models.JobKey) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("job_keys")
	ib.Cols("job_id", "file_name", "format").
		Values(jobKey.JobID, jobKey.FileName, jobKey.Format)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetJobKeys(ctx context.Context, jobID uint) ([]*models.JobKey, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "job_id", "file_name", "format").From("job_keys")
	sb.Where(sb.Equal("job_id", jobID))
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.JobKey
	for rows.Next() {
		var k models.JobKey
		if err := rows.Scan(&k.ID, &k.JobID, &k.FileName, &k.Format); err != nil {
			return nil, err
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (r *Repository) GetJobKeyCount(ctx context.Context, jobID uint) (int, error) {
	sb := sqlFlavor.NewSelectBuilder().Select("COUNT(1)").From("job_keys")
	sb.Where(sb.Equal("job_id", jobID))

	query, args := sb.Build()
	var count int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repository) CreateFormularyDrugs(ctx context.Context, drugs []models.FormularyDrug) error {
	if len(drugs) == 0 {
		return nil
	}
	ib := sqlFlavor.NewInsertBuilder().InsertInto("formulary_drugs")
	ib.Cols("ndc", "gpi", "name", "tier", "requires_pa", "step_therapy", "quantity_limit")
	for _, d := range drugs {
		ib.Values(d.NDC, d.GPI, d.Name, d.Tier, d.RequiresPA, d.StepTherapy, d.QuantityLimit)
	}

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetFormularyDrug(ctx context.Context, ndc string) (*models.FormularyDrug, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "ndc", "gpi", "name", "tier", "requires_pa", "step_therapy", "quantity_limit")
	sb.From("formulary_drugs").Where(sb.Equal("ndc", ndc))

	query, args := sb.Build()
	var d models.FormularyDrug
	err := r.QueryRowContext(ctx, query, args...).
		Scan(&d.ID, &d.NDC, &d.GPI, &d.Name, &d.Tier, &d.RequiresPA, &d.StepTherapy, &d.QuantityLimit)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) GetFormularyDrugs(ctx context.Context) ([]models.FormularyDrug, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "ndc", "gpi", "name", "tier", "requires_pa", "step_therapy", "quantity_limit")
	sb.From("formulary_drugs").OrderBy("ndc").Asc()

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drugs []models.FormularyDrug
	for rows.Next() {
		var d models.FormularyDrug
		if err := rows.Scan(&d.ID, &d.NDC, &d.GPI, &d.Name, &d.Tier, &d.RequiresPA, &d.StepTherapy, &d.QuantityLimit); err != nil {
			return nil, err
		}
		drugs = append(drugs, d)
	}
	return drugs, rows.Err()
}
