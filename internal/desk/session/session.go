// Package session holds the signed-in staff member of the desk client and
// persists it in the system keyring between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
)

const (
	serviceName = "clinic-desk"
	sessionKey  = "session"
)

// Identity is the staff member behind a session.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Session is an identity plus its bearer token.
type Session struct {
	Identity Identity `json:"identity"`
	Token    string   `json:"token"`
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Session, error)
}

// OpenKeyring opens the platform keyring, falling back to an encrypted file
// store under dir.
func OpenKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store owns the current session. It is the only writer of the token;
// everything else reads it through Current.
type Store struct {
	mu        sync.RWMutex
	ring      keyring.Keyring
	current   *Session
	listeners []func(*Session)
	logger    zerolog.Logger
}

// NewStore keeps sessions in ring.
func NewStore(ring keyring.Keyring, logger zerolog.Logger) *Store {
	return &Store{ring: ring, logger: logger}
}

// OnChange registers fn to run after every login, restore and logout.
// Logout passes nil.
func (s *Store) OnChange(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Restore loads the persisted session, if any. A missing or unreadable
// entry leaves the store signed out.
func (s *Store) Restore() (*Session, error) {
	item, err := s.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(item.Data, &sess); err != nil || sess.Token == "" {
		s.logger.Warn().Err(err).Msg("discarding unreadable stored session")
		_ = s.ring.Remove(sessionKey)
		return nil, nil
	}
	s.set(&sess)
	return s.Current(), nil
}

// Login authenticates, persists the session and notifies listeners.
func (s *Store) Login(ctx context.Context, auth Authenticator, email, password string) (*Session, error) {
	sess, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := s.ring.Set(keyring.Item{Key: sessionKey, Label: "Clinic desk session", Data: raw}); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	s.logger.Info().Str("user_id", sess.Identity.ID).Str("role", sess.Identity.Role).Msg("signed in")
	s.set(sess)
	return s.Current(), nil
}

// Logout clears the in-memory session and erases the persisted copy.
func (s *Store) Logout() error {
	err := s.ring.Remove(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		err = nil
	}
	s.set(nil)
	if err != nil {
		return fmt.Errorf("erasing session: %w", err)
	}
	return nil
}

func (s *Store) set(sess *Session) {
	s.mu.Lock()
	if sess != nil {
		cp := *sess
		sess = &cp
	}
	s.current = sess
	listeners := append(([]func(*Session))(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}
