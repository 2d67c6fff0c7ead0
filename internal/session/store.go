// Package session holds the authenticated session state: the access and
// refresh token pair plus the signed-in user. The store is observable and
// persists every mutation to a session file so a new invocation of the
// client restores the session, mirroring browser session storage.
package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/logging"
)

// RoleName is a backend user role.
type RoleName string

const (
	RoleUser       RoleName = "USER"
	RoleAdmin      RoleName = "ADMIN"
	RoleSuperadmin RoleName = "SUPERADMIN"
)

// User is the authenticated user identity returned by the backend.
type User struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Roles []RoleName `json:"roles"`
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Authenticated reports whether the snapshot carries an access token.
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

// Store is the observable session store. Each mutating method updates the
// whole snapshot atomically and notifies subscribers synchronously, in
// mutation order. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot

	path string // session file, empty disables persistence

	// notifyMu serializes persist and notify so concurrent mutations reach
	// subscribers in the order they were applied.
	notifyMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	logger *slog.Logger
}

// New creates a session store persisted at path. An existing session file is
// loaded; a missing or unreadable file yields an empty session. An empty
// path keeps the session in memory only.
func New(path string) *Store {
	s := &Store{
		path:   path,
		subs:   make(map[int]func(Snapshot)),
		logger: logging.ForService("session"),
	}
	s.load()
	return s
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.AccessToken
}

// RefreshToken returns the current refresh token, or "" when signed out.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.RefreshToken
}

// User returns the signed-in user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.User
}

// SetTokens rotates the token pair, keeping the user untouched.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.mutate(func(snap *Snapshot) {
		snap.AccessToken = accessToken
		snap.RefreshToken = refreshToken
	})
}

// SetUser replaces the signed-in user.
func (s *Store) SetUser(user *User) {
	s.mutate(func(snap *Snapshot) {
		snap.User = user
	})
}

// SetSession sets tokens and user in one atomic mutation. Login flows use
// this so observers never see tokens without the matching user.
func (s *Store) SetSession(accessToken, refreshToken string, user *User) {
	s.mutate(func(snap *Snapshot) {
		snap.AccessToken = accessToken
		snap.RefreshToken = refreshToken
		snap.User = user
	})
}

// Clear removes tokens and user atomically and deletes the session file.
func (s *Store) Clear() {
	s.mutate(func(snap *Snapshot) {
		*snap = Snapshot{}
	})
}

// Subscribe registers fn to be called synchronously after every mutation
// with the new snapshot. The returned function unsubscribes. The callback
// may subscribe or unsubscribe, but must not mutate the store it observes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) mutate(apply func(*Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	apply(&s.snap)
	snap := s.snap
	s.mu.Unlock()

	s.persist(snap)

	// The subscriber list is copied before the callbacks run so a callback
	// can subscribe or unsubscribe without deadlocking.
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// load restores the session from the session file, if any.
func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read session file", "path", s.path, "error", err)
		}
		return
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("Session file is corrupt, starting signed out", "path", s.path, "error", err)
		return
	}
	s.snap = snap
}

// persist writes the snapshot to the session file. A cleared session removes
// the file instead. Persistence failures are logged, never fatal.
func (s *Store) persist(snap Snapshot) {
	if s.path == "" {
		return
	}
	if !snap.Authenticated() && snap.RefreshToken == "" && snap.User == nil {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove session file", "path", s.path, "error", err)
		}
		return
	}
	if err := writeFileAtomic(s.path, snap); err != nil {
		s.logger.Warn("Failed to persist session", "path", s.path, "error", err)
	}
}

// writeFileAtomic writes the snapshot via a temp file and rename so a crash
// never leaves a truncated session file. Mode 0600, tokens are secrets.
func writeFileAtomic(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Component("session").Build()
	}
	return nil
}
