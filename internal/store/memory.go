package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"glyph-wallet-go/internal/models"
)

// Compile-time checks for the in-memory backends.
var (
	_ SessionStore  = (*MemorySessionStore)(nil)
	_ TransferStore = (*MemoryTransferStore)(nil)
)

// MemorySessionStore keeps credentials for the lifetime of the process.
type MemorySessionStore struct {
	mu    sync.Mutex
	creds models.Credentials
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Load(_ context.Context) (models.Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.creds.Valid() {
		return models.Credentials{}, false, nil
	}
	return m.creds, true, nil
}

func (m *MemorySessionStore) Save(_ context.Context, creds models.Credentials) error {
	if !creds.Valid() {
		return ErrIncompletePair
	}
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.creds = models.Credentials{}
	m.mu.Unlock()
	return nil
}

// MemoryTransferStore is a map-backed TransferStore.
type MemoryTransferStore struct {
	mu        sync.RWMutex
	transfers map[string]models.TransferActivity
}

func NewMemoryTransferStore() *MemoryTransferStore {
	return &MemoryTransferStore{transfers: make(map[string]models.TransferActivity)}
}

func (m *MemoryTransferStore) RecordTransfer(_ context.Context, activity models.TransferActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(activity.Hash)
	if _, ok := m.transfers[key]; ok {
		return ErrDuplicateTransfer
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	m.transfers[key] = activity
	return nil
}

func (m *MemoryTransferStore) UpdateTransferStatus(_ context.Context, hash string, status models.TransferStatus, explorerUrl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(hash)
	activity, ok := m.transfers[key]
	if !ok {
		return ErrNotFound
	}
	activity.Status = status
	if explorerUrl != "" {
		activity.ExplorerUrl = explorerUrl
	}
	activity.UpdatedAt = time.Now().UTC()
	m.transfers[key] = activity
	return nil
}

func (m *MemoryTransferStore) GetTransfer(_ context.Context, hash string) (*models.TransferActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	activity, ok := m.transfers[strings.ToLower(hash)]
	if !ok {
		return nil, ErrNotFound
	}
	return &activity, nil
}

func (m *MemoryTransferStore) ListTransfers(_ context.Context, from string, limit, offset int) ([]models.TransferActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.TransferActivity, 0, len(m.transfers))
	for _, activity := range m.transfers {
		if from == "" || strings.EqualFold(activity.From, from) {
			result = append(result, activity)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if offset >= len(result) {
		return []models.TransferActivity{}, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
