package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type SecurityConfig interface {
	GetEncryptionKey() string
	GetEncryptionSalt() []byte
	GetFixedIV() []byte
	UseFixedIV() bool
	GetPasswordAuth() string
	GetSessionSigningKey() []byte
}

type Security struct {
	EncryptionKey  string `envconfig:"ENCRYPTION_KEY" required:"true"`
	EncryptionSalt string `envconfig:"ENCRYPTION_SALT" required:"true"`
	EncryptionIV   string `envconfig:"ENCRYPTION_IV"`
	FixedIV        bool   `envconfig:"ENCRYPTION_FIXED_IV" default:"false"`
	PasswordAuth   string `envconfig:"PASSWORD_AUTH" required:"true"`
}

var _ SecurityConfig = Security{}

func (s Security) GetEncryptionKey() string {
	return s.EncryptionKey
}

// GetEncryptionSalt returns the decoded salt. Validate rejects undecodable values.
func (s Security) GetEncryptionSalt() []byte {
	salt, _ := hex.DecodeString(s.EncryptionSalt)
	return salt
}

// GetFixedIV returns the decoded IV, or nil when no IV is configured.
func (s Security) GetFixedIV() []byte {
	if s.EncryptionIV == "" {
		return nil
	}
	iv, _ := hex.DecodeString(s.EncryptionIV)
	return iv
}

func (s Security) UseFixedIV() bool {
	return s.FixedIV
}

func (s Security) GetPasswordAuth() string {
	return s.PasswordAuth
}

// GetSessionSigningKey derives the HMAC key for PKCE session cookies from the encryption key,
// so the cookie key never equals the credential key.
func (s Security) GetSessionSigningKey() []byte {
	mac := hmac.New(sha256.New, []byte(s.EncryptionKey))
	mac.Write([]byte("pkce-session"))
	return mac.Sum(nil)
}
