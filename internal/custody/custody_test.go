package custody

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"enrolld/pkg/platform/sentinel"
)

type CustodySuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	svc   *Service
}

func (s *CustodySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	svc, err := New("master-passphrase", s.store)
	s.Require().NoError(err)
	s.svc = svc
}

func TestCustodySuite(t *testing.T) {
	suite.Run(t, new(CustodySuite))
}

func (s *CustodySuite) TestRoundTrip() {
	key := []byte("ed25519-seed-material")
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", key))

	got, err := s.svc.DecryptSigningKey(s.ctx, "registrar-7")
	s.Require().NoError(err)
	s.Equal(key, got)
}

func (s *CustodySuite) TestCiphertextIsNotPlaintext() {
	key := []byte("ed25519-seed-material")
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", key))

	stored, err := s.store.GetEncryptedKey(s.ctx, "registrar-7")
	s.Require().NoError(err)
	s.NotContains(string(stored), string(key))
}

func (s *CustodySuite) TestOwnerIsBoundToCiphertext() {
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", []byte("secret")))

	// Replaying one owner's ciphertext under another owner must not decrypt.
	stored, err := s.store.GetEncryptedKey(s.ctx, "registrar-7")
	s.Require().NoError(err)
	s.Require().NoError(s.store.PutEncryptedKey(s.ctx, "registrar-8", stored))

	_, err = s.svc.DecryptSigningKey(s.ctx, "registrar-8")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *CustodySuite) TestWrongPassphraseFails() {
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", []byte("secret")))

	other, err := New("different-passphrase", s.store)
	s.Require().NoError(err)
	_, err = other.DecryptSigningKey(s.ctx, "registrar-7")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *CustodySuite) TestUnknownOwner() {
	_, err := s.svc.DecryptSigningKey(s.ctx, "nobody")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CustodySuite) TestTruncatedCiphertext() {
	s.Require().NoError(s.store.PutEncryptedKey(s.ctx, "registrar-7", []byte{0x01, 0x02}))
	_, err := s.svc.DecryptSigningKey(s.ctx, "registrar-7")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *CustodySuite) TestEmptyInputsRejected() {
	_, err := New("", s.store)
	s.Require().Error(err)

	s.Require().Error(s.svc.EncryptSigningKey(s.ctx, "registrar-7", nil))
}

func (s *CustodySuite) TestReEncryptReplaces() {
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", []byte("old")))
	s.Require().NoError(s.svc.EncryptSigningKey(s.ctx, "registrar-7", []byte("new")))

	got, err := s.svc.DecryptSigningKey(s.ctx, "registrar-7")
	s.Require().NoError(err)
	s.Equal([]byte("new"), got)
}
