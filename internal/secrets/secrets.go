// Package secrets round-trips stored provider tokens. Ciphertexts are
// AES-256-GCM with a PBKDF2-derived key, a random nonce prefix, and base64
// framing, so a token encrypted by any engine instance sharing the keyphrase
// decrypts on every other.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing any of these invalidates every stored
// ciphertext.
const (
	keyIterations = 100_000
	keyLength     = 32
	nonceLength   = 12

	// keySalt is fixed per process fleet; uniqueness comes from the nonce.
	keySalt = "pulseboard-token-salt-v1"
)

// Sentinel errors.
var (
	ErrMissingKey          = errors.New("encryption keyphrase is empty")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Codec encrypts and decrypts tokens under one derived key.
type Codec struct {
	aead cipher.AEAD
}

// New derives the AES key from the keyphrase and prepares the AEAD.
func New(keyphrase string) (*Codec, error) {
	if keyphrase == "" {
		return nil, ErrMissingKey
	}

	key := pbkdf2.Key([]byte(keyphrase), []byte(keySalt), keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals a plaintext token. The nonce is generated fresh and prefixed
// to the ciphertext before base64 framing.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLength)

	_, err := io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64-framed ciphertext produced by Encrypt.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	if len(sealed) < nonceLength+c.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}

	nonce, payload := sealed[:nonceLength], sealed[nonceLength:]

	plaintext, err := c.aead.Open(nil, nonce, payload, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	return string(plaintext), nil
}
