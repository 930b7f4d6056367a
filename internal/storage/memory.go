package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStorage is a FileStorage that hands out fake URLs and tracks which
// keys are considered present. It is used with the memory database driver
// and in tests.
type MemoryStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]struct{}
	deleted []string

	// FailDelete makes DeleteObject fail for the listed keys.
	FailDelete map[string]error
}

// NewMemoryStorage returns an empty MemoryStorage whose URLs start with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL:    baseURL,
		objects:    make(map[string]struct{}),
		FailDelete: make(map[string]error),
	}
}

// Put marks a key as uploaded.
func (m *MemoryStorage) Put(objectKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = struct{}{}
}

// Has reports whether a key is present.
func (m *MemoryStorage) Has(objectKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectKey]
	return ok
}

// Deleted returns the keys passed to successful DeleteObject calls, in order.
func (m *MemoryStorage) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func (m *MemoryStorage) GeneratePresignedUploadURL(_ context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	q := url.Values{}
	q.Set("contentType", contentType)
	q.Set("expires", fmt.Sprintf("%d", int64(expires.Seconds())))
	return fmt.Sprintf("%s/upload/%s?%s", m.baseURL, objectKey, q.Encode()), nil
}

func (m *MemoryStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, objectKey, int64(expires.Seconds())), nil
}

func (m *MemoryStorage) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailDelete[objectKey]; ok {
		return err
	}
	delete(m.objects, objectKey)
	m.deleted = append(m.deleted, objectKey)
	return nil
}
