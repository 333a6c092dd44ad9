// Package session implements the client-side session state store. It keeps
// the signed-in user and authentication flag in memory and mirrors them
// into two storage scopes (session-bound and persistent) plus the auth
// cookies of the API client, so a valid session survives a restart.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/membercli/internal/client/api"
	"github.com/dmitrijs2005/membercli/internal/client/models"
	"github.com/dmitrijs2005/membercli/internal/client/storage"
	"github.com/dmitrijs2005/membercli/internal/logging"
)

const (
	loginStatusTrue = "true"

	defaultRememberFor   = 30 * 24 * time.Hour
	defaultLogoutTimeout = 5 * time.Second
)

// Credentials are the inputs of a sign-in attempt. RememberMe extends the
// auth cookie lifetime beyond the session default.
type Credentials struct {
	Username   string
	Password   string
	RememberMe bool
}

// State is an immutable snapshot of the store, delivered to observers after
// every committed change.
type State struct {
	User            *models.User
	Authenticated   bool
	RequestInFlight bool
}

// Notifier receives user-facing notifications (e.g. "logged out").
type Notifier interface {
	Notify(msg string)
}

// Navigator performs navigation after state transitions.
type Navigator interface {
	NavigateTo(path string)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

type noopNavigator struct{}

func (noopNavigator) NavigateTo(string) {}

// Store synchronizes session state between memory, the two storage scopes
// and the cookie jar. It is the single writer of both scopes; every
// identity change flows through one internal mutator.
type Store struct {
	mu              sync.Mutex
	user            *models.User
	authenticated   bool
	requestInFlight bool

	api             api.Client
	cookies         api.CookieWriter
	sessionScope    storage.Storage
	persistentScope storage.Storage

	notifier      Notifier
	navigator     Navigator
	log           logging.Logger
	onChange      func(State)
	rememberFor   time.Duration
	logoutTimeout time.Duration
	now           func() time.Time

	bg sync.WaitGroup
}

type Option func(*Store)

// WithNotifier sets the destination of user-facing messages.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithNavigator sets the navigation target used after sign-out.
func WithNavigator(n Navigator) Option {
	return func(s *Store) { s.navigator = n }
}

// WithOnChange registers an observer called after every committed state
// change. It replaces polling or timed delays on the consumer side: when
// SignIn returns, the observer has already seen the new state.
func WithOnChange(fn func(State)) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithRememberFor overrides the remember-me cookie lifetime (default 30 days).
func WithRememberFor(d time.Duration) Option {
	return func(s *Store) { s.rememberFor = d }
}

// New builds a Store and restores prior state: the session scope is
// consulted first, then the persistent one. Malformed stored data never
// fails construction; it is logged and treated as absence.
func New(ctx context.Context, apiClient api.Client, cookies api.CookieWriter,
	sessionScope, persistentScope storage.Storage, log logging.Logger, opts ...Option) *Store {

	s := &Store{
		api:             apiClient,
		cookies:         cookies,
		sessionScope:    sessionScope,
		persistentScope: persistentScope,
		notifier:        noopNotifier{},
		navigator:       noopNavigator{},
		log:             log,
		rememberFor:     defaultRememberFor,
		logoutTimeout:   defaultLogoutTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.restore(ctx)
	return s
}

// restore adopts a previously saved session, preferring the session scope.
// A malformed persistent mirror is discarded so it cannot shadow future
// sessions.
func (s *Store) restore(ctx context.Context) {
	if s.adoptFrom(ctx, s.sessionScope, false) {
		s.log.Debug(ctx, "session restored from session scope")
		return
	}
	if s.adoptFrom(ctx, s.persistentScope, true) {
		s.log.Debug(ctx, "session restored from persistent scope")
	}
}

func (s *Store) adoptFrom(ctx context.Context, scope storage.Storage, cleanupOnMalformed bool) bool {
	userData, err := scope.Get(ctx, storage.KeyUserInfo)
	if err != nil {
		s.log.Warn(ctx, "failed to read stored user", "error", err)
		return false
	}
	flag, err := scope.Get(ctx, storage.KeyLoginStatus)
	if err != nil {
		s.log.Warn(ctx, "failed to read stored login status", "error", err)
		return false
	}

	if userData == nil || string(flag) != loginStatusTrue {
		return false
	}

	var user models.User
	if err := json.Unmarshal(userData, &user); err != nil {
		s.log.Warn(ctx, "discarding malformed stored user", "error", err)
		if cleanupOnMalformed {
			if err := scope.Delete(ctx, storage.KeyUserInfo); err != nil {
				s.log.Warn(ctx, "failed to remove stored user", "error", err)
			}
			if err := scope.Delete(ctx, storage.KeyLoginStatus); err != nil {
				s.log.Warn(ctx, "failed to remove stored login status", "error", err)
			}
		}
		return false
	}

	s.mu.Lock()
	s.user = &user
	s.authenticated = true
	s.mu.Unlock()
	return true
}

// SetSessionState replaces the current user and authentication flag and
// brings both persisted mirrors in line: a present user is written to both
// scopes together with the "true" flag, a nil user removes all four keys.
// A nil user always means unauthenticated, whatever flag is passed.
func (s *Store) SetSessionState(ctx context.Context, user *models.User, authenticated bool) error {
	return s.setState(ctx, user, authenticated, true)
}

// SetLoginStatus is a direct in-memory override that deliberately skips
// the persisted mirrors and cookies. Callers accept that the state will
// not survive a restart.
func (s *Store) SetLoginStatus(status bool, user *models.User) {
	_ = s.setState(context.Background(), user, status, false)
}

// setState is the sole identity mutator.
func (s *Store) setState(ctx context.Context, user *models.User, authenticated bool, persist bool) error {
	if user == nil {
		authenticated = false
	}

	s.mu.Lock()
	s.user = user
	s.authenticated = authenticated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	var firstErr error
	if persist {
		if user != nil {
			data, err := json.Marshal(user)
			if err != nil {
				firstErr = err
			} else {
				for _, scope := range []storage.Storage{s.sessionScope, s.persistentScope} {
					if err := scope.Set(ctx, storage.KeyUserInfo, data); err != nil && firstErr == nil {
						firstErr = err
					}
					if err := scope.Set(ctx, storage.KeyLoginStatus, []byte(loginStatusTrue)); err != nil && firstErr == nil {
						firstErr = err
					}
				}
			}
		} else {
			for _, scope := range []storage.Storage{s.sessionScope, s.persistentScope} {
				if err := scope.Delete(ctx, storage.KeyUserInfo); err != nil && firstErr == nil {
					firstErr = err
				}
				if err := scope.Delete(ctx, storage.KeyLoginStatus); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
		if firstErr != nil {
			s.log.Warn(ctx, "failed to persist session state", "error", firstErr)
		}
	}

	s.notify(snapshot)
	return firstErr
}

// SignIn authenticates against the backend. It returns (false, nil) when
// the backend rejects the credentials and an error only on transport
// failure. On success the auth cookies are written (30-day expiry with
// RememberMe, session cookie otherwise) and both mirrors are committed
// before the call returns, so consumers observing the store are guaranteed
// to see the new state.
func (s *Store) SignIn(ctx context.Context, creds Credentials) (bool, error) {
	s.setInFlight(true)
	defer s.setInFlight(false)

	res, err := s.api.SignIn(ctx, creds.Username, creds.Password)
	if err != nil {
		return false, err
	}
	if !res.Success {
		return false, nil
	}

	var expires time.Time // zero => session cookie
	if creds.RememberMe {
		expires = s.now().Add(s.rememberFor)
	}
	s.cookies.SetAuthCookies(res.Token, res.RefreshToken, expires)

	// Persist errors do not undo a server-side sign-in; they only cost
	// the session a restart survival.
	_ = s.setState(ctx, res.User, true, true)

	s.log.Info(ctx, "signed in", "user", creds.Username)
	return true, nil
}

// CheckSession asks the backend whether the session is still valid and
// adopts the answer, mirrors included. A transport failure degrades to
// unauthenticated in memory only and is never surfaced.
func (s *Store) CheckSession(ctx context.Context) bool {
	res, err := s.api.CheckSignIn(ctx)
	if err != nil {
		s.log.Warn(ctx, "session check failed", "error", err)
		_ = s.setState(ctx, nil, false, false)
		return false
	}

	if !res.Success || !res.Authenticated {
		_ = s.setState(ctx, nil, false, true)
		return false
	}

	_ = s.setState(ctx, res.User, true, true)
	return true
}

// SignOut clears state, mirrors and cookies, fires the logout request in
// the background and reports success unconditionally: logout must never
// fail visibly.
func (s *Store) SignOut(ctx context.Context) bool {
	_ = s.setState(ctx, nil, false, true)
	s.cookies.ClearAuthCookies()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.logoutTimeout)
		defer cancel()
		if err := s.api.SignOut(ctx); err != nil {
			s.log.Warn(ctx, "logout request failed", "error", err)
		}
	}()

	s.notifier.Notify("Logged out")
	s.navigator.NavigateTo("/")
	return true
}

// Close waits for detached background requests and releases the API client.
func (s *Store) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.api.Close()
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CurrentUser returns the cached user record, nil when signed out.
func (s *Store) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// RequestInFlight reports whether a sign-in request is in progress. The
// flag is advisory; it does not serialize concurrent sign-ins.
func (s *Store) RequestInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestInFlight
}

// DisplayName prefers the full name, falls back to the username, then "".
func (s *Store) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.DisplayName()
}

func (s *Store) setInFlight(v bool) {
	s.mu.Lock()
	s.requestInFlight = v
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Store) snapshotLocked() State {
	return State{
		User:            s.user,
		Authenticated:   s.authenticated,
		RequestInFlight: s.requestInFlight,
	}
}

func (s *Store) notify(snapshot State) {
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}
