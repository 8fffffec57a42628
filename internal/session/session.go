package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
)

// State is the authentication state of a session.
type State int

const (
	// Unknown is the state before Restore has run.
	Unknown State = iota
	SignedOut
	SignedIn
	// Expired means the API rejected the session; the user must sign in again.
	Expired
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case SignedIn:
		return "signed in"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session holds the signed-in user and owns the lifecycle of the query store.
// It replaces global auth state: every view receives it explicitly.
type Session struct {
	client *momento.Client
	store  *query.Store

	mu        sync.RWMutex
	user      momento.User
	state     State
	listeners []func(State)
}

// New creates a session and installs the client's 401 hook.
func New(client *momento.Client, store *query.Store) *Session {
	s := &Session{client: client, store: store}
	client.SetUnauthorizedHandler(s.Expire)
	return s
}

// Restore resolves the current user from the API cookie, if any.
func (s *Session) Restore(ctx context.Context) (momento.User, error) {
	user, err := s.client.CurrentUser(ctx)
	switch {
	case err == nil:
		s.signedIn(user)
		return user, nil
	case errors.Is(err, momento.ErrUnauthorized):
		s.setState(SignedOut, momento.User{})
		return momento.User{}, nil
	default:
		return momento.User{}, err
	}
}

// SignIn authenticates and invalidates the cached current user.
func (s *Session) SignIn(ctx context.Context, email, password string) (momento.User, error) {
	user, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return momento.User{}, err
	}
	s.signedIn(user)
	// The sign-in response is a partial profile; the next read refreshes it.
	s.store.Invalidate(queries.CurrentUserKey())
	return user, nil
}

// SignUp creates an account and signs straight in with it.
func (s *Session) SignUp(ctx context.Context, req momento.NewUser) (momento.User, error) {
	if _, err := s.client.SignUp(ctx, req); err != nil {
		return momento.User{}, err
	}
	return s.SignIn(ctx, req.Email, req.Password)
}

// SignOut ends the session server side and clears every cached query.
// Local state is reset even when the server call fails.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.client.SignOut(ctx)
	s.Reset()
	if err != nil && !errors.Is(err, momento.ErrUnauthorized) {
		return err
	}
	return nil
}

// Expire handles a 401 from any request: the store is cleared and the
// session moves to Expired so the UI returns to sign-in.
func (s *Session) Expire() {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()
	if current != SignedIn {
		return
	}
	log.Warn("session expired")
	s.store.Clear()
	s.setState(Expired, momento.User{})
}

// Reset forgets the user and clears the store.
func (s *Session) Reset() {
	s.store.Clear()
	s.setState(SignedOut, momento.User{})
}

// Replace updates the cached user after a profile edit.
func (s *Session) Replace(user momento.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SignedIn && user.ID == s.user.ID {
		s.user = user
	}
}

// User returns the signed-in user.
func (s *Session) User() (momento.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.state == SignedIn
}

// UserID returns the signed-in user's id or "".
func (s *Session) UserID() string {
	user, _ := s.User()
	return user.ID
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	_, ok := s.User()
	return ok
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnChange registers fn to run after every state transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) signedIn(user momento.User) {
	s.store.Write(queries.CurrentUserKey(), user)
	s.setState(SignedIn, user)
}

func (s *Session) setState(state State, user momento.User) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.user = user
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	if changed {
		log.Info("session state changed", "state", state.String(), "user", user.Username)
		for _, fn := range listeners {
			fn(state)
		}
	}
}
