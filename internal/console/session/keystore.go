package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Keystore is the durable storage behind a session store. The console
// persists only the token and the cached profile per domain.
type Keystore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// FileKeystore stores each key as a file under a config directory,
// ~/.classtrack by default.
type FileKeystore struct {
	dir string
}

// NewFileKeystore creates a keystore rooted at dir. An empty dir resolves
// to ~/.classtrack.
func NewFileKeystore(dir string) (*FileKeystore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".classtrack")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &FileKeystore{dir: dir}, nil
}

func (k *FileKeystore) path(key string) string {
	// Keys are internal constants, but sanitize anyway.
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(k.dir, key)
}

func (k *FileKeystore) Get(key string) (string, bool) {
	data, err := os.ReadFile(k.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (k *FileKeystore) Set(key, value string) error {
	return os.WriteFile(k.path(key), []byte(value), 0600)
}

func (k *FileKeystore) Delete(key string) error {
	err := os.Remove(k.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemKeystore is an in-memory keystore used in tests.
type MemKeystore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemKeystore() *MemKeystore {
	return &MemKeystore{data: make(map[string]string)}
}

func (k *MemKeystore) Get(key string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	return v, ok
}

func (k *MemKeystore) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *MemKeystore) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}
