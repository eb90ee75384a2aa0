// Package auth keeps API credentials in the system keyring, with a 0600 file
// fallback for headless machines, and refreshes them on demand.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "agenda-cli"
	keyringUser    = "credentials"
	fallbackFile   = ".session"
)

// ErrNoCredentials is returned when nothing has been stored yet.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials are the tokens issued by the backend. APIKey is a long-lived
// alternative to the access/refresh pair.
type Credentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
}

// Bearer returns the value sent in the Authorization header.
func (c Credentials) Bearer() string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	return c.APIKey
}

// TokenStore persists Credentials.
type TokenStore struct {
	dir string

	mu       sync.RWMutex
	checked  bool
	fallback bool
}

// NewTokenStore stores the fallback session file under dir.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// checkKeyringAvailable probes the keyring once per store.
func (s *TokenStore) checkKeyringAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checked {
		return !s.fallback
	}
	testKey := "agenda-keyring-test"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		s.fallback = true
		s.checked = true
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	s.checked = true
	return true
}

func (s *TokenStore) fallbackPath() string {
	return filepath.Join(s.dir, fallbackFile)
}

// StorageMode describes where credentials live.
func (s *TokenStore) StorageMode() string {
	if s.checkKeyringAvailable() {
		return "system-keyring"
	}
	return "file-based (keyring unavailable)"
}

// Save stores creds, replacing anything stored before.
func (s *TokenStore) Save(creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if s.checkKeyringAvailable() {
		if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
			return fmt.Errorf("failed to store credentials in keyring: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load returns the stored credentials or ErrNoCredentials.
func (s *TokenStore) Load() (Credentials, error) {
	var raw string
	if s.checkKeyringAvailable() {
		v, err := keyring.Get(keyringService, keyringUser)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return Credentials{}, ErrNoCredentials
			}
			return Credentials{}, fmt.Errorf("failed to read keyring: %w", err)
		}
		raw = v
	} else {
		data, err := os.ReadFile(s.fallbackPath())
		if err != nil {
			if os.IsNotExist(err) {
				return Credentials{}, ErrNoCredentials
			}
			return Credentials{}, err
		}
		raw = string(data)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &creds); err != nil {
		return Credentials{}, fmt.Errorf("stored credentials are corrupt: %w", err)
	}
	return creds, nil
}

// Clear removes credentials from both the keyring and the fallback file.
func (s *TokenStore) Clear() error {
	var keyringErr error
	if s.checkKeyringAvailable() {
		keyringErr = keyring.Delete(keyringService, keyringUser)
		if errors.Is(keyringErr, keyring.ErrNotFound) {
			keyringErr = nil
		}
	}
	fileErr := os.Remove(s.fallbackPath())
	if os.IsNotExist(fileErr) {
		fileErr = nil
	}
	return errors.Join(keyringErr, fileErr)
}

// Token returns the bearer token for outgoing requests. It returns an
// empty token and no error when nothing is stored.
func (s *TokenStore) Token() (string, error) {
	creds, err := s.Load()
	if errors.Is(err, ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creds.Bearer(), nil
}

// ExchangeFunc trades a refresh (or current access) token for new credentials.
type ExchangeFunc func(ctx context.Context, refreshToken string) (Credentials, error)

// Refresher renews the stored access token. Calls are serialized so
// concurrent 401s only exchange the refresh token once per round.
type Refresher struct {
	Store    *TokenStore
	Exchange ExchangeFunc

	mu sync.Mutex
}

// Refresh exchanges the stored refresh token and saves the result.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, err := r.Store.Load()
	if err != nil {
		return err
	}
	token := creds.RefreshToken
	if token == "" {
		token = creds.AccessToken
	}
	if token == "" {
		return errors.New("no session token stored; log in again")
	}
	next, err := r.Exchange(ctx, token)
	if err != nil {
		return err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	if next.AccessToken == "" && next.APIKey == "" {
		return errors.New("refresh returned no token")
	}
	if next.APIKey == "" {
		next.APIKey = creds.APIKey
	}
	return r.Store.Save(next)
}
