package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

// StorageKey is the record the session is persisted under.
const StorageKey = "auth"

// Store persists the session snapshot.
type Store struct {
	storage Storage
}

// NewStore creates a Store on top of storage.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Read loads the persisted session. It returns nil when there is no record
// or when the record's refresh token has expired at now. Read never deletes
// anything; clearing an expired record is up to the caller.
func (s *Store) Read(now time.Time) (*domain.Session, error) {
	data, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("session.Store.Read: %w", err)
	}
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session.Store.Read: decode: %w", err)
	}
	if sess.RefreshExpired(now) {
		return nil, nil
	}
	return &sess, nil
}

// Write overwrites the persisted session.
func (s *Store) Write(sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session.Store.Write: encode: %w", err)
	}
	if err := s.storage.Set(StorageKey, data); err != nil {
		return fmt.Errorf("session.Store.Write: %w", err)
	}
	return nil
}

// Remove deletes the persisted session. It is idempotent.
func (s *Store) Remove() error {
	if err := s.storage.Remove(StorageKey); err != nil {
		return fmt.Errorf("session.Store.Remove: %w", err)
	}
	return nil
}
