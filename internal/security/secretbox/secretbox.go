// Package secretbox encrypts provider credentials before they reach
// durable storage. Format: base64(nonce)|base64(ciphertext), NaCl
// secretbox (XSalsa20-Poly1305) under a 32-byte master key.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	masterKeyEnvVar   = "CONNECT_MASTER_KEY"
	nonceSize         = 24
	requiredKeyLength = 32
	sep               = "|" // nonce|ciphertext, both base64
)

var (
	masterKey     *[requiredKeyLength]byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// Init loads the master key from an explicit base64 value (normally the
// security.master_key config entry), falling back to CONNECT_MASTER_KEY.
// Idempotent: only the first call has effect.
func Init(keyB64 string) error {
	masterKeyOnce.Do(func() {
		if strings.TrimSpace(keyB64) == "" {
			keyB64 = os.Getenv(masterKeyEnvVar)
		}
		keyB64 = strings.TrimSpace(keyB64)
		if keyB64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", masterKeyEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			loadErr = fmt.Errorf("decode master key: %w", err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("master key must decode to %d bytes, got %d", requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = new([requiredKeyLength]byte)
		copy(masterKey[:], k)
		mu.Unlock()
	})
	return loadErr
}

// Ready reports whether a key is loaded. Used by readiness checks.
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return masterKey != nil
}

func key() (*[requiredKeyLength]byte, error) {
	if err := Init(""); err != nil {
		return nil, err
	}
	mu.RLock()
	defer mu.RUnlock()
	if masterKey == nil {
		return nil, errors.New("secretbox: no master key")
	}
	return masterKey, nil
}

// Encrypt seals plainText and returns base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	k, err := key()
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, k)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens base64(nonce)|base64(ciphertext) back into plain text.
func Decrypt(cipherText string) (string, error) {
	k, err := key()
	if err != nil {
		return "", err
	}

	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", errors.New("invalid format: want base64(nonce)|base64(ciphertext)")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nb) != nonceSize {
		return "", fmt.Errorf("invalid nonce: want %d bytes, got %d", nonceSize, len(nb))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], nb)
	pt, ok := secretbox.Open(nil, ct, &nonce, k)
	if !ok {
		return "", errors.New("secretbox: authentication failed")
	}
	return string(pt), nil
}

// UnsafeResetForTests clears internal state. Tests only.
func UnsafeResetForTests() {
	mu.Lock()
	masterKey = nil
	mu.Unlock()
	masterKeyOnce = sync.Once{}
	loadErr = nil
}
