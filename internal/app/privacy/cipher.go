package privacy

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// EnvelopePrefix marks sealed content: "mc:v<version>:<base64(nonce+ciphertext)>".
const EnvelopePrefix = "mc:"

// Cipher seals record content with AES-256-GCM under versioned keys.
type Cipher struct {
	keys KeyProvider
}

func NewCipher(keys KeyProvider) *Cipher {
	return &Cipher{keys: keys}
}

// Encrypt seals plaintext with the current key.
func (c *Cipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	key, version, err := c.keys.CurrentKey(ctx)
	if err != nil {
		return "", fmt.Errorf("encrypt: key lookup: %v: %w", err, domain.ErrStorage)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("encrypt: nonce: %v: %w", err, domain.ErrStorage)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return fmt.Sprintf("%sv%d:%s", EnvelopePrefix, version, base64.StdEncoding.EncodeToString(sealed)), nil
}

// Decrypt opens an envelope produced by Encrypt with the key of its version.
func (c *Cipher) Decrypt(ctx context.Context, envelope string) (string, error) {
	version, encoded, err := parseEnvelope(envelope)
	if err != nil {
		return "", err
	}
	key, err := c.keys.KeyByVersion(ctx, version)
	if err != nil {
		return "", fmt.Errorf("decrypt: key v%d: %v: %w", version, err, domain.ErrStorage)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decrypt: base64: %v: %w", err, domain.ErrStorage)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("decrypt: ciphertext too short: %w", domain.ErrStorage)
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %v: %w", err, domain.ErrStorage)
	}
	return string(plain), nil
}

// IsEnvelope reports whether s looks like sealed content.
func IsEnvelope(s string) bool {
	_, _, err := parseEnvelope(s)
	return err == nil
}

func parseEnvelope(s string) (int, string, error) {
	rest, ok := strings.CutPrefix(s, EnvelopePrefix)
	if !ok || !strings.HasPrefix(rest, "v") {
		return 0, "", fmt.Errorf("decrypt: not a sealed value: %w", domain.ErrStorage)
	}
	v, encoded, ok := strings.Cut(rest[1:], ":")
	if !ok {
		return 0, "", fmt.Errorf("decrypt: malformed envelope: %w", domain.ErrStorage)
	}
	version, err := strconv.Atoi(v)
	if err != nil || version < 1 {
		return 0, "", fmt.Errorf("decrypt: bad key version %q: %w", v, domain.ErrStorage)
	}
	return version, encoded, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %v: %w", err, domain.ErrStorage)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %v: %w", err, domain.ErrStorage)
	}
	return aead, nil
}
