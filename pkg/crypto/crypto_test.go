package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	svc, err := New("test-key-material", "test-salt")
	require.NoError(t, err)
	return svc
}

func TestNewRequiresKeyAndSalt(t *testing.T) {
	_, err := New("", "salt")
	require.Error(t, err)

	_, err = New("key", "")
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc := newTestService(t)

	for _, plaintext := range []string{"", "1234567890", "national id with spaces", "üñíçødé"} {
		ciphertext, err := svc.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEqual(t, plaintext, ciphertext)

		decrypted, err := svc.Decrypt(ciphertext)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Encrypt("1234567890")
	require.NoError(t, err)
	second, err := svc.Encrypt("1234567890")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	decryptedFirst, err := svc.Decrypt(first)
	require.NoError(t, err)
	decryptedSecond, err := svc.Decrypt(second)
	require.NoError(t, err)
	require.Equal(t, decryptedFirst, decryptedSecond)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	svc := newTestService(t)

	ciphertext, err := svc.Encrypt("1234567890")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)

	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := svc.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		require.Error(t, err, "flipping byte %d must fail authentication", i)
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Decrypt("not-base64!!")
	require.Error(t, err)

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestDecryptRejectsForeignKeyMaterial(t *testing.T) {
	svc := newTestService(t)
	other, err := New("different-key", "different-salt")
	require.NoError(t, err)

	ciphertext, err := other.Encrypt("1234567890")
	require.NoError(t, err)

	_, err = svc.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestNullablePassThrough(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.EncryptNullable(nil)
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = svc.DecryptNullable(nil)
	require.NoError(t, err)
	require.Nil(t, out)

	value := "1234567890"
	encrypted, err := svc.EncryptNullable(&value)
	require.NoError(t, err)
	require.NotNil(t, encrypted)

	decrypted, err := svc.DecryptNullable(encrypted)
	require.NoError(t, err)
	require.NotNil(t, decrypted)
	require.Equal(t, value, *decrypted)
}
