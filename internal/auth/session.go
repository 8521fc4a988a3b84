package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"
)

// tokenAlphabet is the symbol set session tokens are drawn from.
const tokenAlphabet = "1234567890abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	defaultTokenLength = 24
	defaultIdleTimeout = 30 * time.Minute
)

// ErrInvalidCredentials is returned by Create when the credential verifier
// rejects the supplied username and password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Identity is the validated account identity produced by a credential
// verifier on successful login.
type Identity struct {
	UserName string
	IsAdmin  bool
}

// CredentialVerifier checks a username and password pair against the account
// store. The session store never inspects passwords itself.
type CredentialVerifier interface {
	VerifyCredentials(username, password string) (Identity, bool)
}

// Session binds an opaque bearer token to an authenticated identity for a
// bounded idle window. UserName and IsAdmin are fixed at creation; only
// LastSeen changes, and only under the store's lock.
type Session struct {
	Token    string
	UserName string
	IsAdmin  bool
	LastSeen time.Time
}

// Store is the process-wide registry of live sessions. All map access,
// including the expiry sweep, is serialized through a single mutex; critical
// sections are short and never perform I/O.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	verifier     CredentialVerifier
	idleTimeout  time.Duration
	tokenLength  int
	now          func() time.Time
	tokenFactory func(int) (string, error)
	onExpire     func(removed int)
}

// Option configures a Store instance.
type Option func(*Store)

// WithIdleTimeout overrides the idle window after which an untouched session
// expires.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.idleTimeout = timeout
		}
	}
}

// WithTokenLength sets the token length used for newly created sessions.
func WithTokenLength(length int) Option {
	return func(s *Store) {
		if length > 0 {
			s.tokenLength = length
		}
	}
}

// WithExpiryObserver registers a callback invoked with the number of sessions
// each sweep reclaims. The callback runs outside the store's lock and is only
// called when at least one session was removed.
func WithExpiryObserver(fn func(removed int)) Option {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// WithClock injects the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs a session store that validates logins against the
// provided verifier. Sessions live in process memory; expired entries are
// swept at the start of every Resolve and by PurgeExpired.
func NewStore(verifier CredentialVerifier, opts ...Option) *Store {
	store := &Store{
		verifier:     verifier,
		sessions:     make(map[string]*Session),
		idleTimeout:  defaultIdleTimeout,
		tokenLength:  defaultTokenLength,
		now:          time.Now,
		tokenFactory: generateToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Create verifies the credentials and, on success, issues a fresh session.
// Rejected credentials surface as ErrInvalidCredentials with no session and
// no new store entry. Token generation failures are returned as-is; they
// indicate an unusable entropy source, not a bad request.
func (s *Store) Create(username, password string) (Session, error) {
	if s.verifier == nil {
		return Session{}, fmt.Errorf("credential verifier not configured")
	}
	identity, ok := s.verifier.VerifyCredentials(username, password)
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.tokenFactory(s.tokenLength)
	if err != nil {
		return Session{}, fmt.Errorf("generate session token: %w", err)
	}
	session := &Session{
		Token:    token,
		UserName: identity.UserName,
		IsAdmin:  identity.IsAdmin,
		LastSeen: s.now(),
	}
	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()
	return *session, nil
}

// Resolve sweeps expired sessions, then looks up the token. On a hit the
// session's LastSeen is refreshed and a copy returned. The sweep, lookup,
// and refresh all happen under one lock so a concurrent sweep can never
// hand back a session it just removed.
func (s *Store) Resolve(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	s.mu.Lock()
	removed := s.sweepLocked(s.now())
	session, ok := s.sessions[token]
	var copied Session
	if ok {
		session.LastSeen = s.now()
		copied = *session
	}
	s.mu.Unlock()
	s.notifyExpired(removed)
	return copied, ok
}

// Close removes the token's session. Closing an unknown or already-closed
// token is a no-op.
func (s *Store) Close(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// PurgeExpired sweeps every expired session. It exists so a background
// worker can reclaim tokens that are never looked up again; Resolve performs
// the same sweep on access.
func (s *Store) PurgeExpired() error {
	s.mu.Lock()
	removed := s.sweepLocked(s.now())
	s.mu.Unlock()
	s.notifyExpired(removed)
	return nil
}

// Active reports the number of live sessions.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked removes every expired session and reports how many it removed
// so callers can surface the evictions to an observer.
func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for token, session := range s.sessions {
		if now.Sub(session.LastSeen) > s.idleTimeout {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *Store) notifyExpired(count int) {
	if count > 0 && s.onExpire != nil {
		s.onExpire(count)
	}
}

// generateToken draws length symbols from tokenAlphabet using crypto/rand.
// Bytes >= 248 are rejected so the 62-symbol alphabet stays uniform.
func generateToken(length int) (string, error) {
	const limit = byte(len(tokenAlphabet) * 4)
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
