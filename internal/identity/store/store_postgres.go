package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"enrolld/internal/identity"
	"enrolld/internal/platform/postgres"
	"enrolld/pkg/platform/tx"
)

// PostgresStore persists identity records in the identities table.
// Constraints: unique (upload_id, row_number); partial unique index on
// email where status = 'sync'. See db/schema.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner honors a transaction carried in ctx so multi-step service
// operations can stay atomic.
func (s *PostgresStore) runner(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// RunInTx runs fn inside one SQL transaction, carried in ctx so the
// nested store calls join it through runner.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin identity tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback identity tx: %w (after %w)", rbErr, err)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit identity tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record *identity.Identity) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO identities
			(id, upload_id, row_number, email, full_name, role, status, ledger_status, ledger_tx_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		record.ID, record.UploadID, record.RowNumber, record.Email, record.FullName,
		record.Role, record.Status, record.LedgerStatus, record.LedgerTxID, record.Active, record.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return s.scanOne(s.runner(ctx).QueryRowContext(ctx, selectIdentity+` WHERE id = $1`, id))
}

func (s *PostgresStore) FindByUploadRow(ctx context.Context, uploadID uuid.UUID, rowNumber int) (*identity.Identity, error) {
	return s.scanOne(s.runner(ctx).QueryRowContext(ctx,
		selectIdentity+` WHERE upload_id = $1 AND row_number = $2`, uploadID, rowNumber))
}

func (s *PostgresStore) ListEligibleForLedger(ctx context.Context, uploadID uuid.UUID) ([]*identity.Identity, error) {
	rows, err := s.runner(ctx).QueryContext(ctx,
		selectIdentity+` WHERE upload_id = $1 AND status = $2 AND ledger_status = $3 ORDER BY row_number`,
		uploadID, identity.StatusSync, identity.LedgerUnregistered,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible identities: %w", err)
	}
	defer rows.Close()

	var eligible []*identity.Identity
	for rows.Next() {
		record := &identity.Identity{}
		if err := scanInto(rows, record); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		eligible = append(eligible, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return eligible, nil
}

func (s *PostgresStore) UpdateLedger(ctx context.Context, id uuid.UUID, status identity.LedgerStatus, txID string) error {
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE identities SET ledger_status = $2, ledger_tx_id = $3, updated_at = now() WHERE id = $1`,
		id, status, txID,
	)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	return rowAffected(res)
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE identities SET role = $2, updated_at = now() WHERE id = $1`,
		id, role,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return rowAffected(res)
}

func (s *PostgresStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE identities SET active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return rowAffected(res)
}

const selectIdentity = `
	SELECT id, upload_id, row_number, email, full_name, role, status, ledger_status, ledger_tx_id, active, created_at, updated_at
	FROM identities`

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner, record *identity.Identity) error {
	return sc.Scan(
		&record.ID, &record.UploadID, &record.RowNumber, &record.Email, &record.FullName,
		&record.Role, &record.Status, &record.LedgerStatus, &record.LedgerTxID, &record.Active,
		&record.CreatedAt, &record.UpdatedAt,
	)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*identity.Identity, error) {
	record := &identity.Identity{}
	if err := scanInto(row, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return record, nil
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
