package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrAPIKeyRevoked  = errors.New("API key has been revoked")
	ErrAPIKeyExpired  = errors.New("API key has expired")
	ErrAPIKeyNotFound = errors.New("API key not found")
)

// keyPrefix marks generated keys
const keyPrefix = "sk_"

// APIKey represents an API key
type APIKey struct {
	Key       string     `json:"key"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// APIKeyManager holds API keys in memory
type APIKeyManager struct {
	keys map[string]*APIKey
	mu   sync.RWMutex
}

// NewAPIKeyManager creates an empty key manager
func NewAPIKeyManager() *APIKeyManager {
	return &APIKeyManager{
		keys: make(map[string]*APIKey),
	}
}

// Generate creates a random key for userID
func (m *APIKeyManager) Generate(userID, name string, expiresAt *time.Time) (*APIKey, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	apiKey := &APIKey{
		Key:       keyPrefix + base64.RawURLEncoding.EncodeToString(keyBytes),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	m.mu.Lock()
	m.keys[apiKey.Key] = apiKey
	m.mu.Unlock()

	return apiKey, nil
}

// Register adds a key configured outside the manager
func (m *APIKeyManager) Register(key, userID, name string) (*APIKey, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[key]; exists {
		return nil, fmt.Errorf("API key for %s registered twice", userID)
	}
	apiKey := &APIKey{Key: key, UserID: userID, Name: name, CreatedAt: time.Now()}
	m.keys[key] = apiKey
	return apiKey, nil
}

// LoadKeys registers static keys written as "user:key" or a bare "key",
// which is owned by the user "default"
func (m *APIKeyManager) LoadKeys(entries []string) error {
	for i, entry := range entries {
		userID, key, found := strings.Cut(entry, ":")
		if !found {
			userID, key = "default", entry
		}
		if userID == "" || key == "" {
			return fmt.Errorf("API key entry %d: want user:key", i)
		}
		if _, err := m.Register(key, userID, "static"); err != nil {
			return fmt.Errorf("API key entry %d: %w", i, err)
		}
	}
	return nil
}

// Verify checks if an API key is valid
func (m *APIKeyManager) Verify(key string) (*APIKey, error) {
	m.mu.RLock()
	apiKey, exists := m.keys[key]
	m.mu.RUnlock()

	switch {
	case !exists:
		return nil, ErrInvalidAPIKey
	case apiKey.Revoked:
		return nil, ErrAPIKeyRevoked
	case apiKey.ExpiresAt != nil && time.Now().After(*apiKey.ExpiresAt):
		return nil, ErrAPIKeyExpired
	}
	return apiKey, nil
}

// Revoke marks an API key as revoked
func (m *APIKeyManager) Revoke(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	apiKey, exists := m.keys[key]
	if !exists {
		return ErrAPIKeyNotFound
	}
	apiKey.Revoked = true
	return nil
}

// Delete removes an API key
func (m *APIKeyManager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[key]; !exists {
		return ErrAPIKeyNotFound
	}
	delete(m.keys, key)
	return nil
}

// List returns all API keys for a user
func (m *APIKeyManager) List(userID string) []*APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*APIKey
	for _, apiKey := range m.keys {
		if apiKey.UserID == userID {
			keys = append(keys, apiKey)
		}
	}
	return keys
}

// Count returns the number of keys not revoked
func (m *APIKeyManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, apiKey := range m.keys {
		if !apiKey.Revoked {
			count++
		}
	}
	return count
}
