package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// PostgresPersonStore persists registry records in PostgreSQL. Dynamic
// attributes are stored as JSONB so they round-trip losslessly while staying
// queryable.
type PostgresPersonStore struct {
	db *sql.DB
}

func NewPostgresPersonStore(db *sql.DB) *PostgresPersonStore {
	return &PostgresPersonStore{db: db}
}

const personColumns = `uid, last_name, first_name, middle_name,
	last_name_normalized, first_name_normalized, middle_name_normalized,
	suffix, birthday, gender, civil_status, street_no, street, city, province,
	barangay, dynamic_attributes, origin_batch_id, origin_match_result_id, created_at`

func (s *PostgresPersonStore) Insert(ctx context.Context, record domain.PersonRecord) error {
	dynamic, err := json.Marshal(record.DynamicAttributes)
	if err != nil {
		return fmt.Errorf("marshal dynamic attributes: %w", err)
	}
	query := `
		INSERT INTO main_system (` + personColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (uid) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		record.UID,
		nullable(record.LastName), nullable(record.FirstName), nullable(record.MiddleName),
		nullable(record.LastNameNormalized), nullable(record.FirstNameNormalized), nullable(record.MiddleNameNormalized),
		nullable(record.Suffix), record.Birthday, nullable(record.Gender),
		nullable(record.CivilStatus), nullable(record.StreetNo), nullable(record.Street),
		nullable(record.City), nullable(record.Province), nullable(record.Barangay),
		dynamic, nullable(record.OriginBatchID), nullable(record.OriginMatchResultID),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert person record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert person record: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateUID
	}
	return nil
}

func (s *PostgresPersonStore) FindByUID(ctx context.Context, uid string) (domain.PersonRecord, error) {
	query := `SELECT ` + personColumns + ` FROM main_system WHERE uid = $1`
	record, err := scanPerson(s.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PersonRecord{}, ErrNotFound
		}
		return domain.PersonRecord{}, fmt.Errorf("find person by uid: %w", err)
	}
	return record, nil
}

func (s *PostgresPersonStore) ExistsUID(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM main_system WHERE uid = $1)`, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check uid exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresPersonStore) FindByNormalizedNames(ctx context.Context, lastNames, firstNames []string) ([]domain.PersonRecord, error) {
	if len(lastNames) == 0 && len(firstNames) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	if len(lastNames) > 0 {
		clauses = append(clauses, fmt.Sprintf("last_name_normalized IN (%s)", placeholders(len(lastNames), len(args)+1)))
		for _, name := range lastNames {
			args = append(args, name)
		}
	}
	if len(firstNames) > 0 {
		clauses = append(clauses, fmt.Sprintf("first_name_normalized IN (%s)", placeholders(len(firstNames), len(args)+1)))
		for _, name := range firstNames {
			args = append(args, name)
		}
	}

	query := `SELECT ` + personColumns + ` FROM main_system WHERE ` +
		strings.Join(clauses, " OR ") + ` ORDER BY created_at, uid`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.PersonRecord
	for rows.Next() {
		record, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresPersonStore) Search(ctx context.Context, nameFragment string, limit int) ([]domain.PersonRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	fragment := "%" + domain.NormalizeName(nameFragment) + "%"
	query := `SELECT ` + personColumns + ` FROM main_system
		WHERE last_name_normalized LIKE $1 OR first_name_normalized LIKE $1
		ORDER BY created_at, uid LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	defer rows.Close()

	var out []domain.PersonRecord
	for rows.Next() {
		record, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (domain.PersonRecord, error) {
	var (
		record  domain.PersonRecord
		dynamic []byte
		strs    [16]sql.NullString
		bday    sql.NullTime
	)
	err := row.Scan(
		&record.UID, &strs[0], &strs[1], &strs[2],
		&strs[3], &strs[4], &strs[5],
		&strs[6], &bday, &strs[7], &strs[8], &strs[9], &strs[10],
		&strs[11], &strs[12], &strs[13], &dynamic, &strs[14], &strs[15],
		&record.CreatedAt,
	)
	if err != nil {
		return domain.PersonRecord{}, err
	}
	record.LastName = strs[0].String
	record.FirstName = strs[1].String
	record.MiddleName = strs[2].String
	record.LastNameNormalized = strs[3].String
	record.FirstNameNormalized = strs[4].String
	record.MiddleNameNormalized = strs[5].String
	record.Suffix = strs[6].String
	record.Gender = strs[7].String
	record.CivilStatus = strs[8].String
	record.StreetNo = strs[9].String
	record.Street = strs[10].String
	record.City = strs[11].String
	record.Province = strs[12].String
	record.Barangay = strs[13].String
	record.OriginBatchID = strs[14].String
	record.OriginMatchResultID = strs[15].String
	if bday.Valid {
		t := bday.Time
		record.Birthday = &t
	}
	if len(dynamic) > 0 {
		if err := json.Unmarshal(dynamic, &record.DynamicAttributes); err != nil {
			return domain.PersonRecord{}, fmt.Errorf("decode dynamic attributes: %w", err)
		}
	}
	return record, nil
}

// PostgresMatchResultStore persists per-row match audit records.
type PostgresMatchResultStore struct {
	db *sql.DB
}

func NewPostgresMatchResultStore(db *sql.DB) *PostgresMatchResultStore {
	return &PostgresMatchResultStore{db: db}
}

func (s *PostgresMatchResultStore) Insert(ctx context.Context, result domain.MatchResult) error {
	var breakdown []byte
	if result.Breakdown != nil {
		var err error
		breakdown, err = json.Marshal(result.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal field breakdown: %w", err)
		}
	}
	query := `
		INSERT INTO match_results (
			id, batch_id, uploaded_record_id, uploaded_last_name,
			uploaded_first_name, uploaded_middle_name, match_status,
			confidence_score, matched_system_id, rule_name, field_breakdown,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`
	_, err := s.db.ExecContext(ctx, query,
		result.ID, result.BatchID, result.UploadedRecordID, result.UploadedLastName,
		result.UploadedFirstName, nullable(result.UploadedMiddleName), string(result.Status),
		result.Confidence, nullable(result.MatchedUID), nullable(result.RuleName), breakdown,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}

func (s *PostgresMatchResultStore) ListByBatch(ctx context.Context, batchID string) ([]domain.MatchResult, error) {
	query := matchResultSelect + ` WHERE batch_id = $1 ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchResult
	for rows.Next() {
		result, err := scanMatchResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

func (s *PostgresMatchResultStore) FindByID(ctx context.Context, id string) (domain.MatchResult, error) {
	result, err := scanMatchResult(s.db.QueryRowContext(ctx, matchResultSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MatchResult{}, ErrNotFound
		}
		return domain.MatchResult{}, fmt.Errorf("find match result: %w", err)
	}
	return result, nil
}

const matchResultSelect = `SELECT id, batch_id, uploaded_record_id,
	uploaded_last_name, uploaded_first_name, uploaded_middle_name,
	match_status, confidence_score, matched_system_id, rule_name,
	field_breakdown, created_at FROM match_results`

func scanMatchResult(row rowScanner) (domain.MatchResult, error) {
	var (
		result    domain.MatchResult
		middle    sql.NullString
		matched   sql.NullString
		rule      sql.NullString
		breakdown []byte
		status    string
		created   time.Time
	)
	err := row.Scan(
		&result.ID, &result.BatchID, &result.UploadedRecordID,
		&result.UploadedLastName, &result.UploadedFirstName, &middle,
		&status, &result.Confidence, &matched, &rule, &breakdown, &created,
	)
	if err != nil {
		return domain.MatchResult{}, err
	}
	result.UploadedMiddleName = middle.String
	result.MatchedUID = matched.String
	result.RuleName = rule.String
	result.Status = domain.MatchStatus(status)
	result.CreatedAt = created
	if len(breakdown) > 0 {
		result.Breakdown = &domain.FieldBreakdown{}
		if err := json.Unmarshal(breakdown, result.Breakdown); err != nil {
			return domain.MatchResult{}, fmt.Errorf("decode field breakdown: %w", err)
		}
	}
	return result, nil
}

// placeholders renders "$start,$start+1,..." for IN clauses.
func placeholders(count, start int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ",")
}

// nullable maps "" onto SQL NULL so empty core fields stay absent in storage.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
