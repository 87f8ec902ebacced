// Package storage keeps the per-question document packages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DocxContentType is the media type of stored question packages
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Provider stores opaque objects by key.
type Provider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a provider
type Config struct {
	Type      string // local, minio or memory
	LocalPath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// NewProvider builds the provider named by cfg.Type. Local storage is the default.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioProvider(ctx, cfg)
	case "memory":
		return NewMemoryProvider(), nil
	case "", "local":
		return NewLocalProvider(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// MemoryProvider keeps objects in process memory. Used in development and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{objects: make(map[string][]byte)}
}

func (m *MemoryProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *MemoryProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
