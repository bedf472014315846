// Package cryptox implements the envelope cipher that protects vault secrets
// at rest and the argon2id hasher used for identity passwords.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/common"
)

const (
	// KeySize is the only accepted encryption key length (AES-256).
	KeySize = 32
	// NonceSize is the length of the random per-seal GCM nonce.
	NonceSize = 16
	// TagSize is the length of the GCM authentication tag.
	TagSize = 16

	blobSeparator = ":"
)

// randReader is a test seam for the nonce source.
var randReader io.Reader = rand.Reader

// EncryptedBlob is one self-describing sealed value: the nonce and tag needed
// to open it travel with the ciphertext.
type EncryptedBlob struct {
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// String renders the blob in its storage/wire form:
//
//	hex(nonce) ":" hex(tag) ":" hex(ciphertext)
func (b EncryptedBlob) String() string {
	return hex.EncodeToString(b.Nonce) + blobSeparator +
		hex.EncodeToString(b.Tag) + blobSeparator +
		hex.EncodeToString(b.Ciphertext)
}

// ParseBlob decodes the wire form produced by EncryptedBlob.String.
//
// Anything other than exactly three hex segments with a 16-byte nonce and a
// 16-byte tag fails with common.ErrInvalidBlobFormat. No cryptographic work is
// done here.
func ParseBlob(s string) (EncryptedBlob, error) {
	parts := strings.Split(s, blobSeparator)
	if len(parts) != 3 {
		return EncryptedBlob{}, fmt.Errorf("%w: expected 3 segments, got %d", common.ErrInvalidBlobFormat, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != NonceSize {
		return EncryptedBlob{}, fmt.Errorf("%w: bad nonce segment", common.ErrInvalidBlobFormat)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return EncryptedBlob{}, fmt.Errorf("%w: bad tag segment", common.ErrInvalidBlobFormat)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: bad ciphertext segment", common.ErrInvalidBlobFormat)
	}

	return EncryptedBlob{Nonce: nonce, Tag: tag, Ciphertext: ciphertext}, nil
}

// ParseKey decodes a hex-encoded encryption key as found in configuration.
// The key must decode to exactly KeySize bytes.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: key is not valid hex", common.ErrConfiguration, common.ErrInvalidKeyLength)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %w: got %d bytes, want %d", common.ErrConfiguration, common.ErrInvalidKeyLength, len(key), KeySize)
	}
	return key, nil
}

// EnvelopeCipher seals and opens byte strings with AES-256-GCM under one key
// fixed at construction. It holds no mutable state and is safe for concurrent
// use.
type EnvelopeCipher struct {
	aead cipher.AEAD
}

// NewEnvelopeCipher builds a cipher bound to key. A key that is not exactly
// KeySize bytes is a configuration error reported here, never per call.
func NewEnvelopeCipher(key []byte) (*EnvelopeCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %w: got %d bytes, want %d", common.ErrConfiguration, common.ErrInvalidKeyLength, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	return &EnvelopeCipher{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *EnvelopeCipher) Seal(plaintext []byte) (EncryptedBlob, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return EncryptedBlob{}, fmt.Errorf("nonce generation failed: %w", err)
	}

	// GCM appends the tag to the ciphertext.
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize

	return EncryptedBlob{
		Nonce:      nonce,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// Open authenticates and decrypts b. Any tampering with nonce, tag or
// ciphertext yields common.ErrDecryption.
func (c *EnvelopeCipher) Open(b EncryptedBlob) ([]byte, error) {
	if len(b.Nonce) != NonceSize || len(b.Tag) != TagSize {
		return nil, common.ErrInvalidBlobFormat
	}

	sealed := make([]byte, 0, len(b.Ciphertext)+TagSize)
	sealed = append(sealed, b.Ciphertext...)
	sealed = append(sealed, b.Tag...)

	plaintext, err := c.aead.Open(nil, b.Nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryption
	}
	return plaintext, nil
}

// SealString seals plaintext and returns the blob in wire form.
func (c *EnvelopeCipher) SealString(plaintext []byte) (string, error) {
	b, err := c.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// OpenString parses the wire form and opens it. Shape errors are reported
// before any cryptographic verification is attempted.
func (c *EnvelopeCipher) OpenString(s string) ([]byte, error) {
	b, err := ParseBlob(s)
	if err != nil {
		return nil, err
	}
	return c.Open(b)
}
