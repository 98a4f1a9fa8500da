// Package securestore provides a KV wrapper that hashes keys with SHA-256
// and encrypts stored entries with AES-256-GCM, the key being derived from
// a passphrase via scrypt. Cached responses may contain credentials or
// user-specific bodies; this keeps them unreadable at rest.
package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/tomatotech/respcache"
)

const (
	// scryptN is the CPU/memory cost parameter for scrypt key derivation.
	scryptN = 32768
	// scryptR is the block size parameter for scrypt.
	scryptR = 8
	// scryptP is the parallelization parameter for scrypt.
	scryptP = 1
	// keyLength is the derived key length for AES-256.
	keyLength = 32
)

// KV wraps a respcache.KV with key hashing and authenticated encryption.
type KV struct {
	kv  respcache.KV
	gcm cipher.AEAD
}

var _ respcache.KV = (*KV)(nil)

// New wraps kv, deriving the AES-256 key from the passphrase.
func New(kv respcache.KV, passphrase string) (*KV, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv cannot be nil")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}

	salt := sha256.Sum256([]byte("respcache-securestore-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("securestore: deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securestore: creating GCM: %w", err)
	}

	return &KV{kv: kv, gcm: gcm}, nil
}

// hashKey converts a cache key to its SHA-256 hex digest, so the backend
// never sees request URIs in the clear.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// Get retrieves and decrypts the value for key.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ciphertext, ok, err := c.kv.Get(ctx, hashKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	plaintext, err := c.decrypt(ciphertext)
	if err != nil {
		// Undecryptable data (e.g. passphrase rotation) behaves as a miss;
		// the next admission overwrites it.
		respcache.GetLogger().Warn("discarding undecryptable cache entry", "error", err)
		return nil, false, nil
	}
	return plaintext, true, nil
}

// Set encrypts and stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	ciphertext, err := c.encrypt(value)
	if err != nil {
		return fmt.Errorf("securestore: encrypting value for key: %w", err)
	}
	return c.kv.Set(ctx, hashKey(key), ciphertext)
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, hashKey(key))
}

// Keys is unsupported: the backend holds hashed keys only.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	return nil, respcache.ErrKeysUnsupported
}

// encrypt seals data with a random nonce prepended to the ciphertext.
func (c *KV) encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, data, nil), nil
}

// decrypt opens data sealed by encrypt.
func (c *KV) decrypt(data []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
