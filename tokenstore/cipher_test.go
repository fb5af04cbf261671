package tokenstore_test

import (
	"encoding/base64"
	"testing"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/stretchr/testify/require"
)

var (
	testSalt = []byte{0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6, 0x07, 0x18}
	testIV   = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
)

const passphrase = "0123456789abcdef0123456789abcdef"

func TestCipher_RoundTrip(t *testing.T) {
	ciphers := map[string]*tokenstore.Cipher{
		"nonce prefixed": tokenstore.NewCipher(testSalt),
		"fixed iv":       tokenstore.NewCipher(testSalt, tokenstore.WithFixedIV(testIV)),
	}
	plaintexts := []string{
		"",
		"access-token-123",
		"with spaces and symbols !@#$%^&*()",
		"héllo wörld",
		"日本語のトークン",
		"emoji 🚀🔐",
	}

	for name, c := range ciphers {
		t.Run(name, func(t *testing.T) {
			for _, p := range plaintexts {
				ct, err := c.Encrypt(p, passphrase)
				require.NoError(t, err)

				got, err := c.Decrypt(ct, passphrase)
				require.NoError(t, err)
				require.Equal(t, p, got)
			}
		})
	}
}

func TestCipher_TamperDetection(t *testing.T) {
	c := tokenstore.NewCipher(testSalt)
	ct, err := c.Encrypt("refresh-token", passphrase)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01

		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(tampered), passphrase)
		require.ErrorIs(t, err, apperrors.ErrDecryption, "byte %d", i)
	}
}

func TestCipher_WrongPassphrase(t *testing.T) {
	c := tokenstore.NewCipher(testSalt)
	ct, err := c.Encrypt("secret", passphrase)
	require.NoError(t, err)

	_, err = c.Decrypt(ct, "another passphrase that is long enough")
	require.ErrorIs(t, err, apperrors.ErrDecryption)
}

func TestCipher_MalformedInput(t *testing.T) {
	c := tokenstore.NewCipher(testSalt)

	_, err := c.Decrypt("%%% not base64", passphrase)
	require.ErrorIs(t, err, apperrors.ErrDecryption)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")), passphrase)
	require.ErrorIs(t, err, apperrors.ErrDecryption)
}

func TestCipher_NonceIsFreshPerEncryption(t *testing.T) {
	c := tokenstore.NewCipher(testSalt)
	a, err := c.Encrypt("same", passphrase)
	require.NoError(t, err)
	b, err := c.Encrypt("same", passphrase)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	fixed := tokenstore.NewCipher(testSalt, tokenstore.WithFixedIV(testIV))
	a, err = fixed.Encrypt("same", passphrase)
	require.NoError(t, err)
	b, err = fixed.Encrypt("same", passphrase)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCipher_DeriveKeyDeterministic(t *testing.T) {
	k1 := tokenstore.NewCipher(testSalt).DeriveKey(passphrase)
	k2 := tokenstore.NewCipher(testSalt).DeriveKey(passphrase)
	require.Len(t, k1, 32)
	require.Equal(t, k1, k2)

	other := tokenstore.NewCipher([]byte{1, 2, 3}).DeriveKey(passphrase)
	require.NotEqual(t, k1, other)
}

func TestCipher_FixedIVFormatRequiresIV(t *testing.T) {
	legacy := tokenstore.NewCipher(testSalt, tokenstore.WithFixedIV(testIV))
	ct, err := legacy.Encrypt("secret", passphrase)
	require.NoError(t, err)

	_, err = tokenstore.NewCipher(testSalt).DecryptFormat(ct, passphrase, tokenstore.FormatFixedIV)
	require.ErrorIs(t, err, apperrors.ErrDecryption)
}

func TestCipher_LegacyIVIsDecryptOnly(t *testing.T) {
	c := tokenstore.NewCipher(testSalt, tokenstore.WithLegacyIV(testIV))
	require.Equal(t, tokenstore.FormatNoncePrefixed, c.Format())

	legacy := tokenstore.NewCipher(testSalt, tokenstore.WithFixedIV(testIV))
	ct, err := legacy.Encrypt("secret", passphrase)
	require.NoError(t, err)

	plain, err := c.DecryptFormat(ct, passphrase, tokenstore.FormatFixedIV)
	require.NoError(t, err)
	require.Equal(t, "secret", plain)

	a, err := c.Encrypt("secret", passphrase)
	require.NoError(t, err)
	b, err := c.Encrypt("secret", passphrase)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
