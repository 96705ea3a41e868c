package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"enrolld/pkg/platform/sentinel"
)

// PostgresStore persists encrypted signing keys in the signing_keys table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetEncryptedKey(ctx context.Context, ownerID string) ([]byte, error) {
	var ciphertext []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT ciphertext FROM signing_keys WHERE owner_id = $1`, ownerID,
	).Scan(&ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get signing key: %w", err)
	}
	return ciphertext, nil
}

func (s *PostgresStore) PutEncryptedKey(ctx context.Context, ownerID string, ciphertext []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signing_keys (owner_id, ciphertext, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id) DO UPDATE SET ciphertext = EXCLUDED.ciphertext, updated_at = now()`,
		ownerID, ciphertext,
	)
	if err != nil {
		return fmt.Errorf("put signing key: %w", err)
	}
	return nil
}
