package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

type itemRepo struct{ repos }

const (
	foundColumns = `id, name, description, location, contact, date_found, status, source_report_id, created_at, updated_at`
	lostColumns  = `id, name, description, location, contact, owner, date_lost, status, source_report_id, created_at, updated_at`
)

func scanFound(row Row) (models.FoundItem, error) {
	var f models.FoundItem
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Description,
		&f.Location,
		&f.Contact,
		&f.DateFound,
		&f.Status,
		&f.SourceReportID,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func scanLost(row Row) (models.LostItem, error) {
	var l models.LostItem
	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Description,
		&l.Location,
		&l.Contact,
		&l.Owner,
		&l.DateLost,
		&l.Status,
		&l.SourceReportID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

func tableFor(kind models.ItemKind) (string, error) {
	switch kind {
	case models.ItemKindFound:
		return "found_items", nil
	case models.ItemKindLost:
		return "lost_items", nil
	}
	return "", fmt.Errorf("unknown item kind %q", kind)
}

func statusArgs(statuses []models.ItemStatus) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}

func (r itemRepo) CreateFound(ctx context.Context, in models.NewItem, at time.Time) (models.FoundItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		INSERT INTO found_items (name, description, location, contact, date_found, status,
			source_report_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query,
		in.Name,
		in.Description,
		in.Location,
		in.Contact,
		in.Date,
		string(models.StatusAvailable),
		in.SourceReportID,
		at.UTC(),
		at.UTC(),
	).Scan(&id)
	if err != nil {
		return models.FoundItem{}, err
	}
	return r.GetFound(ctx, id)
}

func (r itemRepo) CreateLost(ctx context.Context, in models.NewItem, at time.Time) (models.LostItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `
		INSERT INTO lost_items (name, description, location, contact, owner, date_lost, status,
			source_report_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query,
		in.Name,
		in.Description,
		in.Location,
		in.Contact,
		in.Owner,
		in.Date,
		string(models.StatusMissing),
		in.SourceReportID,
		at.UTC(),
		at.UTC(),
	).Scan(&id)
	if err != nil {
		return models.LostItem{}, err
	}
	return r.GetLost(ctx, id)
}

func (r itemRepo) GetFound(ctx context.Context, id int64) (models.FoundItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanFound(r.q.QueryRow(ctx, `SELECT `+foundColumns+` FROM found_items WHERE id = ?`, id))
}

func (r itemRepo) GetLost(ctx context.Context, id int64) (models.LostItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return scanLost(r.q.QueryRow(ctx, `SELECT `+lostColumns+` FROM lost_items WHERE id = ?`, id))
}

func (r itemRepo) ListFound(ctx context.Context, statuses ...models.ItemStatus) ([]models.FoundItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if len(statuses) == 0 {
		return nil, errors.New("list found items: no statuses given")
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+foundColumns+` FROM found_items WHERE status IN `+inClause(len(statuses))+` ORDER BY id DESC`,
		statusArgs(statuses)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.FoundItem{}
	for rows.Next() {
		item, err := scanFound(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r itemRepo) ListLost(ctx context.Context, statuses ...models.ItemStatus) ([]models.LostItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if len(statuses) == 0 {
		return nil, errors.New("list lost items: no statuses given")
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+lostColumns+` FROM lost_items WHERE status IN `+inClause(len(statuses))+` ORDER BY id DESC`,
		statusArgs(statuses)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.LostItem{}
	for rows.Next() {
		item, err := scanLost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r itemRepo) Transition(ctx context.Context, ref models.ItemRef, from, to models.ItemStatus, at time.Time) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	n, err := r.q.Exec(ctx,
		`UPDATE `+table+` SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UTC(), ref.ID, string(from))
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOrConflict(ctx, table, ref.ID)
	}
	return nil
}

func (r itemRepo) Delete(ctx context.Context, ref models.ItemRef, statuses ...models.ItemStatus) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		return fmt.Errorf("delete %s: no statuses given", ref)
	}
	args := append([]any{ref.ID}, statusArgs(statuses)...)
	n, err := r.q.Exec(ctx,
		`DELETE FROM `+table+` WHERE id = ? AND status IN `+inClause(len(statuses)), args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOrConflict(ctx, table, ref.ID)
	}
	return nil
}

// missOrConflict explains a conditional write that touched no rows.
func (r itemRepo) missOrConflict(ctx context.Context, table string, id int64) error {
	var exists int
	err := r.q.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	return ErrStatusConflict
}
