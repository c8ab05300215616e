// Package kvstore provides the string key-value persistence used for
// prompt history.
package kvstore

import (
	"context"
	"errors"
	"sync"

	"github.com/Conceptual-Machines/prompt-architect/internal/database"
)

// KeyValueStore persists string values by key
type KeyValueStore interface {
	// Get returns ok=false when the key is absent
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Memory is an in-process store
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// SettingStore is the part of database.Store used by Settings
type SettingStore interface {
	GetSetting(ctx context.Context, id string) (*database.Setting, error)
	SetSetting(ctx context.Context, v *database.Setting) error
	DeleteSetting(ctx context.Context, id string) error
}

// Settings stores values as rows of the settings table
type Settings struct {
	store SettingStore
}

func NewSettings(store SettingStore) *Settings {
	return &Settings{store: store}
}

func (s *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.store.GetSetting(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.Value, true, nil
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	return s.store.SetSetting(ctx, &database.Setting{ID: key, Value: value})
}

func (s *Settings) Remove(ctx context.Context, key string) error {
	return s.store.DeleteSetting(ctx, key)
}

type prefixed struct {
	store  KeyValueStore
	prefix string
}

// WithPrefix namespaces every key with prefix + ":"
func WithPrefix(store KeyValueStore, prefix string) KeyValueStore {
	if prefix == "" {
		return store
	}
	return &prefixed{store: store, prefix: prefix + ":"}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.store.Remove(ctx, p.prefix+key)
}
