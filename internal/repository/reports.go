package repository

import (
	"context"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

type reportRepo struct{ repos }

const reportColumns = `id, name, description, location, contact, date_reported, type, status,
	submitter_email, submitter_id, created_at, resolved_at`

func scanReport(row Row) (models.Report, error) {
	var r models.Report
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&r.Location,
		&r.Contact,
		&r.DateReported,
		&r.Type,
		&r.Status,
		&r.SubmitterEmail,
		&r.SubmitterID,
		&r.CreatedAt,
		&r.ResolvedAt,
	)
	return r, err
}

func collectReports(rows Rows, err error) ([]models.Report, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (r reportRepo) Create(ctx context.Context, in models.NewReport, at time.Time) (models.Report, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		INSERT INTO reports (name, description, location, contact, date_reported, type, status,
			submitter_email, submitter_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query,
		in.Name,
		in.Description,
		in.Location,
		in.Contact,
		in.DateReported,
		string(in.Type),
		string(models.ReportStatusPending),
		in.SubmitterEmail,
		in.SubmitterID,
		at.UTC(),
	).Scan(&id)
	if err != nil {
		return models.Report{}, err
	}
	return r.Get(ctx, id)
}

func (r reportRepo) Get(ctx context.Context, id int64) (models.Report, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanReport(r.q.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
}

func (r reportRepo) List(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if status == "" {
		return collectReports(r.q.Query(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY id DESC`))
	}
	return collectReports(r.q.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE status = ? ORDER BY id DESC`, string(status)))
}

func (r reportRepo) ListBySubmitter(ctx context.Context, submitterID int64) ([]models.Report, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return collectReports(r.q.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE submitter_id = ? ORDER BY date_reported DESC, id DESC`,
		submitterID))
}

func (r reportRepo) Resolve(ctx context.Context, id int64, status models.ReportStatus, at time.Time) (models.Report, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	n, err := r.q.Exec(ctx,
		`UPDATE reports SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		string(status), at.UTC(), id, string(models.ReportStatusPending))
	if err != nil {
		return models.Report{}, err
	}

	report, err := r.Get(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	// Nothing matched but the row exists: someone resolved it first.
	if n == 0 {
		return report, ErrStatusConflict
	}
	return report, nil
}
