// Package tokenstore keeps the single credential pair encrypted on disk.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
)

// Pair is the access/refresh token tuple issued by the provider.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// EncryptedPair is the on-disk record. Format is empty for records written before
// per-ciphertext nonces existed; those are read as FormatFixedIV.
type EncryptedPair struct {
	EncryptedAccessToken  string `json:"encryptedAccessToken"`
	EncryptedRefreshToken string `json:"encryptedRefreshToken"`
	Format                string `json:"format,omitempty"`
}

func (e EncryptedPair) present() bool {
	return e.EncryptedAccessToken != "" && e.EncryptedRefreshToken != ""
}

func (e EncryptedPair) format() string {
	if e.Format == "" {
		return FormatFixedIV
	}
	return e.Format
}

// FileStore persists one EncryptedPair as a JSON file.
type FileStore struct {
	path   string
	cipher *Cipher
}

func NewFileStore(path string, c *Cipher) *FileStore {
	return &FileStore{path: path, cipher: c}
}

func (s *FileStore) Path() string {
	return s.path
}

// Persist encrypts both tokens independently and replaces the record.
func (s *FileStore) Persist(pair Pair, passphrase string) error {
	access, err := s.cipher.Encrypt(pair.AccessToken, passphrase)
	if err != nil {
		return fmt.Errorf("[FileStore Persist] failed to encrypt access token: %w", err)
	}
	refresh, err := s.cipher.Encrypt(pair.RefreshToken, passphrase)
	if err != nil {
		return fmt.Errorf("[FileStore Persist] failed to encrypt refresh token: %w", err)
	}

	data, err := json.MarshalIndent(EncryptedPair{
		EncryptedAccessToken:  access,
		EncryptedRefreshToken: refresh,
		Format:                s.cipher.Format(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore Persist] failed to marshal record: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data, 0o600)
}

// Load returns ErrNotFound when the file or the record is absent.
func (s *FileStore) Load(passphrase string) (Pair, error) {
	rec, err := s.read()
	if err != nil {
		return Pair{}, err
	}
	if !rec.present() {
		return Pair{}, fmt.Errorf("[FileStore Load] %w: credential record is empty", apperrors.ErrNotFound)
	}

	access, err := s.cipher.DecryptFormat(rec.EncryptedAccessToken, passphrase, rec.format())
	if err != nil {
		return Pair{}, fmt.Errorf("[FileStore Load] access token: %w", err)
	}
	refresh, err := s.cipher.DecryptFormat(rec.EncryptedRefreshToken, passphrase, rec.format())
	if err != nil {
		return Pair{}, fmt.Errorf("[FileStore Load] refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Exists reports whether a record with both fields set is on disk.
func (s *FileStore) Exists() bool {
	rec, err := s.read()
	return err == nil && rec.present()
}

func (s *FileStore) read() (EncryptedPair, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return EncryptedPair{}, fmt.Errorf("[FileStore] %w: no credential record at %s", apperrors.ErrNotFound, s.path)
	}
	if err != nil {
		return EncryptedPair{}, fmt.Errorf("[FileStore] failed to read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return EncryptedPair{}, nil
	}

	var rec EncryptedPair
	if err := json.Unmarshal(data, &rec); err != nil {
		return EncryptedPair{}, fmt.Errorf("[FileStore] %w: malformed credential record: %v", apperrors.ErrDecryption, err)
	}
	return rec, nil
}
