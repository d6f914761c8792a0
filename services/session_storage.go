package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"agency_site_go/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStorage hands out the TokenStorage of a visitor session
type SessionStorage interface {
	ForSession(sessionID string) TokenStorage
}

// ExpiringSessionStorage is a SessionStorage that can drop values not
// written within a ttl
type ExpiringSessionStorage interface {
	SessionStorage
	CleanupExpiredValues(ttl time.Duration) error
}

// MemorySessionStorage keeps session values in process memory
type MemorySessionStorage struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
	// lastWrite is the time of the latest Set per session
	lastWrite map[string]time.Time
	now       func() time.Time
}

// NewMemorySessionStorage creates an empty in-memory session storage
func NewMemorySessionStorage() *MemorySessionStorage {
	return &MemorySessionStorage{
		sessions:  make(map[string]map[string]string),
		lastWrite: make(map[string]time.Time),
		now:       time.Now,
	}
}

// CleanupExpiredValues drops every session not written within ttl
func (s *MemorySessionStorage) CleanupExpiredValues(ttl time.Duration) error {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	removed := 0
	for id, written := range s.lastWrite {
		if written.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.lastWrite, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
	}
	return nil
}

// ForSession implements SessionStorage
func (s *MemorySessionStorage) ForSession(sessionID string) TokenStorage {
	return &memoryTokenStorage{parent: s, sessionID: sessionID}
}

// Len returns the number of sessions holding at least one value
func (s *MemorySessionStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

type memoryTokenStorage struct {
	parent    *MemorySessionStorage
	sessionID string
}

func (m *memoryTokenStorage) Get(key string) (string, bool) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	value, ok := m.parent.sessions[m.sessionID][key]
	return value, ok
}

func (m *memoryTokenStorage) Set(key, value string) error {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	values, ok := m.parent.sessions[m.sessionID]
	if !ok {
		values = make(map[string]string)
		m.parent.sessions[m.sessionID] = values
	}
	values[key] = value
	m.parent.lastWrite[m.sessionID] = m.parent.now()
	return nil
}

// DBSessionStorage keeps session values in the session_values table
type DBSessionStorage struct {
	db *gorm.DB
}

// NewDBSessionStorage creates a database-backed session storage
func NewDBSessionStorage(db *gorm.DB) *DBSessionStorage {
	return &DBSessionStorage{db: db}
}

// ForSession implements SessionStorage
func (s *DBSessionStorage) ForSession(sessionID string) TokenStorage {
	return &dbTokenStorage{db: s.db, sessionID: sessionID}
}

// CleanupExpiredValues removes values not written within ttl
func (s *DBSessionStorage) CleanupExpiredValues(ttl time.Duration) error {
	result := s.db.Where("updated_at < ?", time.Now().Add(-ttl)).Delete(&models.SessionValue{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup session values: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("removed", result.RowsAffected).Msg("cleaned up expired session values")
	}
	return nil
}

type dbTokenStorage struct {
	db        *gorm.DB
	sessionID string
}

// Get returns false on lookup errors so verification fails closed
func (d *dbTokenStorage) Get(key string) (string, bool) {
	var row models.SessionValue
	err := d.db.Where("session_id = ? AND storage_key = ?", d.sessionID, key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Str("session", d.sessionID).Str("key", key).Msg("failed to read session value")
		}
		return "", false
	}
	return row.Value, true
}

func (d *dbTokenStorage) Set(key, value string) error {
	row := models.SessionValue{
		SessionID: d.sessionID,
		Key:       key,
		Value:     value,
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write session value: %w", err)
	}
	return nil
}
