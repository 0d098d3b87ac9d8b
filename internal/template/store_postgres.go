package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// PostgresStore persists templates with mappings and custom fields as JSONB,
// keeping the ordered-mapping semantics intact across round-trips.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, tmpl ColumnMappingTemplate) error {
	mappings, err := json.Marshal(tmpl.Mappings)
	if err != nil {
		return fmt.Errorf("marshal template mappings: %w", err)
	}
	fields, err := json.Marshal(tmpl.Fields)
	if err != nil {
		return fmt.Errorf("marshal template fields: %w", err)
	}

	var taken bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM column_mapping_templates WHERE lower(name) = lower($1) AND id <> $2)`,
		tmpl.Name, tmpl.ID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check template name: %w", err)
	}
	if taken {
		return sentinel.ErrConflict
	}

	query := `
		INSERT INTO column_mapping_templates (id, name, mappings, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			mappings = EXCLUDED.mappings,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		tmpl.ID, tmpl.Name, mappings, fields, tmpl.CreatedAt, tmpl.UpdatedAt); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

const templateSelect = `SELECT id, name, mappings, fields, created_at, updated_at FROM column_mapping_templates`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (ColumnMappingTemplate, error) {
	tmpl, err := scanTemplate(s.db.QueryRowContext(ctx, templateSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ColumnMappingTemplate{}, sentinel.ErrNotFound
		}
		return ColumnMappingTemplate{}, fmt.Errorf("find template: %w", err)
	}
	return tmpl, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]ColumnMappingTemplate, error) {
	rows, err := s.db.QueryContext(ctx, templateSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []ColumnMappingTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM column_mapping_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (ColumnMappingTemplate, error) {
	var (
		tmpl     ColumnMappingTemplate
		mappings []byte
		fields   []byte
	)
	if err := row.Scan(&tmpl.ID, &tmpl.Name, &mappings, &fields, &tmpl.CreatedAt, &tmpl.UpdatedAt); err != nil {
		return ColumnMappingTemplate{}, err
	}
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &tmpl.Mappings); err != nil {
			return ColumnMappingTemplate{}, fmt.Errorf("decode mappings: %w", err)
		}
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &tmpl.Fields); err != nil {
			return ColumnMappingTemplate{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return tmpl, nil
}
