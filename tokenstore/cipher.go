package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 round count. Changing it orphans every stored record.
	KeyIterations = 100000
	keyLength     = 32
	nonceLength   = 12
)

// Record formats.
const (
	FormatNoncePrefixed = "nonce-prefixed"
	FormatFixedIV       = "fixed-iv"
)

// Cipher encrypts small secrets with AES-256-GCM under a key derived from a passphrase.
type Cipher struct {
	salt     []byte
	fixedIV  []byte
	legacyIV []byte

	mu   sync.Mutex
	keys map[string][]byte
}

type CipherOption func(*Cipher)

// WithFixedIV makes every encryption reuse iv. This reproduces records written by
// deployments that predate per-ciphertext nonces and should not be used otherwise.
func WithFixedIV(iv []byte) CipherOption {
	return func(c *Cipher) {
		c.fixedIV = append([]byte(nil), iv...)
	}
}

// WithLegacyIV lets Decrypt read fixed-IV records while Encrypt keeps producing
// nonce-prefixed ones, so old records are rewritten on the next Persist.
func WithLegacyIV(iv []byte) CipherOption {
	return func(c *Cipher) {
		c.legacyIV = append([]byte(nil), iv...)
	}
}

func NewCipher(salt []byte, opts ...CipherOption) *Cipher {
	c := &Cipher{
		salt: append([]byte(nil), salt...),
		keys: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format reports the record format produced by Encrypt.
func (c *Cipher) Format() string {
	if len(c.fixedIV) > 0 {
		return FormatFixedIV
	}
	return FormatNoncePrefixed
}

// DeriveKey is deterministic for a given passphrase and salt.
func (c *Cipher) DeriveKey(passphrase string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if k, ok := c.keys[passphrase]; ok {
		return k
	}
	k := pbkdf2.Key([]byte(passphrase), c.salt, KeyIterations, keyLength, sha256.New)
	c.keys[passphrase] = k
	return k
}

func (c *Cipher) Encrypt(plaintext, passphrase string) (string, error) {
	if len(c.fixedIV) > 0 {
		gcm, err := c.aead(passphrase, len(c.fixedIV))
		if err != nil {
			return "", err
		}
		sealed := gcm.Seal(nil, c.fixedIV, []byte(plaintext), nil)
		return base64.StdEncoding.EncodeToString(sealed), nil
	}

	gcm, err := c.aead(passphrase, nonceLength)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("[Cipher Encrypt] failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt for the cipher's own format.
func (c *Cipher) Decrypt(ciphertextB64, passphrase string) (string, error) {
	return c.DecryptFormat(ciphertextB64, passphrase, c.Format())
}

// DecryptFormat decrypts a ciphertext written in the given record format.
func (c *Cipher) DecryptFormat(ciphertextB64, passphrase, format string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", apperrors.ErrDecryption, err)
	}

	var (
		nonce  []byte
		sealed []byte
	)
	switch format {
	case FormatFixedIV:
		iv := c.fixedIV
		if len(iv) == 0 {
			iv = c.legacyIV
		}
		if len(iv) == 0 {
			return "", fmt.Errorf("%w: record uses a fixed IV but none is configured", apperrors.ErrDecryption)
		}
		nonce, sealed = iv, raw
	case FormatNoncePrefixed:
		if len(raw) < nonceLength {
			return "", fmt.Errorf("%w: ciphertext too short", apperrors.ErrDecryption)
		}
		nonce, sealed = raw[:nonceLength], raw[nonceLength:]
	default:
		return "", fmt.Errorf("%w: unknown record format %q", apperrors.ErrDecryption, format)
	}

	gcm, err := c.aead(passphrase, len(nonce))
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", apperrors.ErrDecryption)
	}
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDecryption, err)
	}
	return string(plain), nil
}

func (c *Cipher) aead(passphrase string, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.DeriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("[Cipher] failed to create block cipher: %w", err)
	}
	if nonceSize == nonceLength {
		return cipher.NewGCM(block)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported IV length %d: %v", apperrors.ErrDecryption, nonceSize, err)
	}
	return gcm, nil
}
