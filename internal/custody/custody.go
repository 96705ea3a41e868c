// Package custody holds per-owner signing keys encrypted at rest. The
// pipeline treats it as opaque: decrypt, hand the secret to the ledger
// client, forget it. Secrets are never logged or persisted in plaintext.
package custody

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"enrolld/pkg/platform/sentinel"
)

// Store persists encrypted key material by owner.
type Store interface {
	GetEncryptedKey(ctx context.Context, ownerID string) ([]byte, error)
	PutEncryptedKey(ctx context.Context, ownerID string, ciphertext []byte) error
}

// Service encrypts and decrypts signing keys with AES-GCM under a key
// derived from the master passphrase.
type Service struct {
	aead  cipher.AEAD
	store Store
}

// scrypt parameters; the salt is fixed per deployment, rotated with the
// master passphrase.
var kdfSalt = []byte("enrolld.custody.v1")

func New(masterPassphrase string, store Store) (*Service, error) {
	if masterPassphrase == "" {
		return nil, errors.New("custody master passphrase is required")
	}
	key, err := scrypt.Key([]byte(masterPassphrase), kdfSalt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive custody key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("custody cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("custody aead: %w", err)
	}
	return &Service{aead: aead, store: store}, nil
}

// EncryptSigningKey stores a signing key for ownerID.
func (s *Service) EncryptSigningKey(ctx context.Context, ownerID string, signingKey []byte) error {
	if len(signingKey) == 0 {
		return errors.New("signing key is empty")
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("custody nonce: %w", err)
	}
	ciphertext := s.aead.Seal(nonce, nonce, signingKey, []byte(ownerID))
	if err := s.store.PutEncryptedKey(ctx, ownerID, ciphertext); err != nil {
		return fmt.Errorf("store signing key for %s: %w", ownerID, err)
	}
	return nil
}

// DecryptSigningKey returns the plaintext signing key for ownerID.
func (s *Service) DecryptSigningKey(ctx context.Context, ownerID string) ([]byte, error) {
	ciphertext, err := s.store.GetEncryptedKey(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("signing key for %s: %w", ownerID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load signing key for %s: %w", ownerID, err)
	}
	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("signing key for %s: %w", ownerID, sentinel.ErrInvalidState)
	}
	plaintext, err := s.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], []byte(ownerID))
	if err != nil {
		return nil, fmt.Errorf("decrypt signing key for %s: %w", ownerID, sentinel.ErrInvalidState)
	}
	return plaintext, nil
}
