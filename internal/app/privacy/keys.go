package privacy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// MasterKeySize is the length of the master key and of every derived key.
const MasterKeySize = 32

// KeyProvider hands out content-encryption keys by version.
type KeyProvider interface {
	CurrentKey(ctx context.Context) (key []byte, version int, err error)
	KeyByVersion(ctx context.Context, version int) ([]byte, error)
}

// KeyRing derives versioned AES-256 keys from one master key with HKDF-SHA256.
type KeyRing struct {
	master []byte

	mu      sync.RWMutex
	current int
	keys    map[int][]byte
}

// NewKeyRing returns a ring at version 1.
func NewKeyRing(master []byte) (*KeyRing, error) {
	if len(master) != MasterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d: %w", MasterKeySize, len(master), domain.ErrConfiguration)
	}
	return &KeyRing{
		master:  append([]byte(nil), master...),
		current: 1,
		keys:    make(map[int][]byte),
	}, nil
}

// NewFileKeyProvider loads the master key at path, generating and persisting a
// new one with mode 0600 on first use. The key file lives outside the record store.
func NewFileKeyProvider(path string) (*KeyRing, error) {
	master, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		master, err = generateKeyFile(path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return NewKeyRing(master)
}

// writeKey is replaced in tests to simulate a failing disk.
var writeKey = func(w io.Writer, b []byte) (int, error) { return w.Write(b) }

func generateKeyFile(path string) ([]byte, error) {
	master := make([]byte, MasterKeySize)
	if _, err := io.ReadFull(rand.Reader, master); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key dir: %w", err)
		}
	}
	// O_EXCL: never overwrite a key another process just wrote.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}
	_, err = writeKey(f, master)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A short key file would be rejected on every later start.
		_ = os.Remove(path)
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return master, nil
}

// CurrentKey returns the key new envelopes are sealed with.
func (k *KeyRing) CurrentKey(ctx context.Context) ([]byte, int, error) {
	k.mu.RLock()
	version := k.current
	k.mu.RUnlock()

	key, err := k.KeyByVersion(ctx, version)
	if err != nil {
		return nil, 0, err
	}
	return key, version, nil
}

// KeyByVersion derives (and caches) the key of a version.
func (k *KeyRing) KeyByVersion(_ context.Context, version int) ([]byte, error) {
	if version < 1 {
		return nil, fmt.Errorf("invalid key version %d", version)
	}

	k.mu.RLock()
	key, ok := k.keys[version]
	k.mu.RUnlock()
	if ok {
		return key, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if key, ok := k.keys[version]; ok {
		return key, nil
	}
	key, err := k.derive(version)
	if err != nil {
		return nil, err
	}
	k.keys[version] = key
	return key, nil
}

// Rotate moves new encryptions to the next key version. Older envelopes
// still decrypt.
func (k *KeyRing) Rotate() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.current++
	return k.current
}

// AdvanceTo rotates until the current version is at least version and
// returns the resulting version. It never lowers the version.
func (k *KeyRing) AdvanceTo(version int) int {
	for {
		k.mu.RLock()
		cur := k.current
		k.mu.RUnlock()
		if cur >= version {
			return cur
		}
		k.Rotate()
	}
}

func (k *KeyRing) derive(version int) ([]byte, error) {
	info := fmt.Sprintf("mindcare:records:v%d", version)
	r := hkdf.New(sha256.New, k.master, nil, []byte(info))
	key := make([]byte, MasterKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key v%d: %w", version, err)
	}
	return key, nil
}
