package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"enrolld/internal/upload"
)

// PostgresStore persists upload records in the uploads table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *upload.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, original_file_name, assembled_file_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		record.ID, record.OriginalFileName, record.AssembledFileName, record.Status, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create upload record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*upload.Record, error) {
	record := &upload.Record{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, original_file_name, assembled_file_name, status, created_at, updated_at
		FROM uploads WHERE id = $1`, id,
	).Scan(&record.ID, &record.OriginalFileName, &record.AssembledFileName, &record.Status, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get upload record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) SetAssembled(ctx context.Context, id uuid.UUID, assembledFileName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads SET assembled_file_name = $2, updated_at = now() WHERE id = $1`,
		id, assembledFileName,
	)
	if err != nil {
		return fmt.Errorf("set assembled file name: %w", err)
	}
	return rowAffected(res)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status upload.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("set upload status: %w", err)
	}
	return rowAffected(res)
}

func rowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
