// Package session persists the API access token between runs, the way the
// browser client kept it in local storage.
package session

import (
	"errors"
	"io/fs"
	"strings"
	"sync"

	"lensfrens/go-backend/internal/securestore"
	"lensfrens/go-backend/pkg/models"
)

const (
	AccessTokenKey  = "lens-auth-token"
	RefreshTokenKey = "lens-refresh-token"
	AddressKey      = "lens-auth-address"

	storePurpose = "session"
)

// Store is a small key/value file. It is encrypted with securestore when a
// secret is configured and written as 0600 JSON otherwise.
type Store struct {
	mu     sync.Mutex
	path   string
	secret string
}

func NewStore(path, secret string) *Store {
	return &Store{path: strings.TrimSpace(path), secret: strings.TrimSpace(secret)}
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return securestore.WriteJSON(s.path, s.secret, storePurpose, values)
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return securestore.WriteJSON(s.path, s.secret, storePurpose, values)
}

// SaveSession stores both tokens and the owning address in one write.
func (s *Store) SaveSession(sess models.Session) error {
	if !sess.Valid() {
		return errors.New("session has no access token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	setOrDelete(values, AccessTokenKey, sess.AccessToken)
	setOrDelete(values, RefreshTokenKey, sess.RefreshToken)
	setOrDelete(values, AddressKey, strings.TrimSpace(sess.Address))
	return securestore.WriteJSON(s.path, s.secret, storePurpose, values)
}

// LoadSession returns the persisted session, or nil when none is stored.
func (s *Store) LoadSession() (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return nil, err
	}
	sess := &models.Session{
		AccessToken:  values[AccessTokenKey],
		RefreshToken: values[RefreshTokenKey],
		Address:      values[AddressKey],
	}
	if !sess.Valid() {
		return nil, nil
	}
	return sess, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	n := len(values)
	for _, key := range []string{AccessTokenKey, RefreshTokenKey, AddressKey} {
		delete(values, key)
	}
	if len(values) == n {
		return nil
	}
	return securestore.WriteJSON(s.path, s.secret, storePurpose, values)
}

func setOrDelete(values map[string]string, key, value string) {
	if value == "" {
		delete(values, key)
		return
	}
	values[key] = value
}

func (s *Store) load() (map[string]string, error) {
	values := map[string]string{}
	err := securestore.ReadJSON(s.path, s.secret, storePurpose, &values)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}
