package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

const (
	keyLength        = 32
	pbkdf2Iterations = 10000
)

// Service encrypts and decrypts individual sensitive fields at rest using
// AES-256-GCM. The cipher key is derived once from the configured key and salt;
// after construction the service holds no mutable state and is safe for
// concurrent use.
type Service struct {
	aead cipher.AEAD
}

// New derives the AEAD cipher from the configured key material. Key and salt
// must both be non-empty; the caller is expected to treat a failure here as
// fatal at startup.
func New(key, salt string) (*Service, error) {
	if key == "" || salt == "" {
		return nil, appErrors.Clone(appErrors.ErrCrypto, "encryption key and salt are required")
	}

	derived := pbkdf2.Key([]byte(key), []byte(salt), pbkdf2Iterations, keyLength, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, "failed to initialise cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, "failed to initialise GCM")
	}

	return &Service{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext). Equal plaintexts produce different ciphertexts,
// so callers must never compare ciphertexts for equality.
func (s *Service) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, "failed to generate nonce")
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed input or an authentication tag mismatch
// (wrong key, wrong salt, tampered ciphertext) yields a CRYPTO_ERROR; garbled
// plaintext is never returned.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, "malformed ciphertext")
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", appErrors.Clone(appErrors.ErrCrypto, "ciphertext too short")
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, "failed to decrypt")
	}

	return string(plaintext), nil
}

// EncryptNullable passes nil through untouched, mirroring the contract that an
// absent value stays absent.
func (s *Service) EncryptNullable(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	out, err := s.Encrypt(*plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptNullable passes nil through untouched.
func (s *Service) DecryptNullable(ciphertext *string) (*string, error) {
	if ciphertext == nil {
		return nil, nil
	}
	out, err := s.Decrypt(*ciphertext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
