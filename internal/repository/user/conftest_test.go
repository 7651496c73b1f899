package user

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rx-radar/medsearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn       func(ctx context.Context, key string) ([]byte, error)
	setNXFn     func(ctx context.Context, key string, value []byte) (bool, error)
	jsonSetFn   func(ctx context.Context, key, path string, data []byte) error
	jsonSetNXFn func(ctx context.Context, key string, data []byte) (bool, error)
	jsonGetFn   func(ctx context.Context, key string, paths ...string) ([]byte, error)
	delFn       func(ctx context.Context, key string) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value)
	}
	return true, nil
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONSetNX(ctx context.Context, key string, data []byte) (bool, error) {
	if m.jsonSetNXFn != nil {
		return m.jsonSetNXFn(ctx, key, data)
	}
	return true, nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

// memStore is a minimal in-memory store: plain keys and whole JSON documents.
type memStore struct {
	kv   map[string]string
	docs map[string]string
}

func newMemStore() *memStore {
	return &memStore{kv: map[string]string{}, docs: map[string]string{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (s *memStore) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	if _, ok := s.kv[key]; ok {
		return false, nil
	}
	s.kv[key] = string(value)
	return true, nil
}

func (s *memStore) JSONSet(_ context.Context, key, path string, data []byte) error {
	if path != "$" {
		return fmt.Errorf("memStore supports only root path, got %s", path)
	}
	s.docs[key] = string(data)
	return nil
}

func (s *memStore) JSONSetNX(_ context.Context, key string, data []byte) (bool, error) {
	if _, ok := s.docs[key]; ok {
		return false, nil
	}
	s.docs[key] = string(data)
	return true, nil
}

func (s *memStore) JSONGet(_ context.Context, key string, paths ...string) ([]byte, error) {
	d, ok := s.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if len(paths) > 0 {
		return nil, fmt.Errorf("memStore does not evaluate paths")
	}
	return []byte(d), nil
}

func (s *memStore) Del(_ context.Context, key string) error {
	delete(s.kv, key)
	delete(s.docs, key)
	return nil
}

// countDocs returns the number of stored documents whose key starts with prefix.
func (s *memStore) countDocs(prefix string) int {
	n := 0
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func newTestRepo(t *testing.T, s store) *Repo {
	t.Helper()
	r := New(s, "medsearch:", "users")
	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("u-%d", seq)
	}
	return r
}
