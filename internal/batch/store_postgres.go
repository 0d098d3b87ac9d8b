package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// PostgresStore persists upload batches.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, b UploadBatch) error {
	query := `
		INSERT INTO upload_batches (
			id, source_name, template_id, status, total_rows, processed,
			skipped, new_records, matched, failed, error, created_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total_rows = EXCLUDED.total_rows,
			processed = EXCLUDED.processed,
			skipped = EXCLUDED.skipped,
			new_records = EXCLUDED.new_records,
			matched = EXCLUDED.matched,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`
	var templateID sql.NullString
	if b.TemplateID != "" {
		templateID = sql.NullString{String: b.TemplateID, Valid: true}
	}
	var finished sql.NullTime
	if !b.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: b.FinishedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.SourceName, templateID, string(b.Status),
		b.Counters.TotalRows, b.Counters.Processed, b.Counters.Skipped,
		b.Counters.NewRecords, b.Counters.Matched, b.Counters.Failed,
		b.Error, b.CreatedAt, finished,
	)
	if err != nil {
		return fmt.Errorf("save upload batch: %w", err)
	}
	return nil
}

const batchSelect = `SELECT id, source_name, template_id, status, total_rows,
	processed, skipped, new_records, matched, failed, error, created_at,
	finished_at FROM upload_batches`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (UploadBatch, error) {
	b, err := scanBatch(s.db.QueryRowContext(ctx, batchSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UploadBatch{}, sentinel.ErrNotFound
		}
		return UploadBatch{}, fmt.Errorf("find upload batch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]UploadBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, batchSelect+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list upload batches: %w", err)
	}
	defer rows.Close()

	var out []UploadBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (UploadBatch, error) {
	var (
		b          UploadBatch
		templateID sql.NullString
		status     string
		errMsg     sql.NullString
		finished   sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.SourceName, &templateID, &status,
		&b.Counters.TotalRows, &b.Counters.Processed, &b.Counters.Skipped,
		&b.Counters.NewRecords, &b.Counters.Matched, &b.Counters.Failed,
		&errMsg, &b.CreatedAt, &finished,
	)
	if err != nil {
		return UploadBatch{}, err
	}
	b.TemplateID = templateID.String
	b.Status = Status(status)
	b.Error = errMsg.String
	if finished.Valid {
		b.FinishedAt = finished.Time
	}
	return b, nil
}
