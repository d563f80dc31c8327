// Package session owns the current authenticated identity. It is the
// single place the rest of the application asks "who is signed in",
// fed by the auth gateway's notification stream rather than by shared
// mutable globals.
package session

import (
	"context"
	"log/slog"
	"sync"

	"inkframe/internal/gateway"
	"inkframe/internal/models"
)

// AuthGateway is the slice of the auth service the store consumes.
// *gateway.AuthService satisfies it.
type AuthGateway interface {
	CurrentSession() *models.Session
	GetUser(ctx context.Context, token string) (*models.Identity, error)
	OnAuthStateChange(callback func(gateway.AuthEvent)) *gateway.AuthSubscription
}

// Snapshot is an immutable view of the session state. Loading is true
// until the initial lookup resolves; consumers must defer
// authorization decisions while it is set.
type Snapshot struct {
	User    *models.Identity
	Session *models.Session
	Loading bool
}

// Authenticated reports whether a signed-in identity is known. Always
// false while Loading.
func (s Snapshot) Authenticated() bool {
	return !s.Loading && s.Session != nil
}

// Store tracks the current session: initializing until the one-time
// lookup resolves, then anonymous or authenticated, moving between the
// two as the auth gateway emits events. Close releases the
// subscription; a closed store ignores any event still in flight.
type Store struct {
	auth AuthGateway

	mu       sync.RWMutex
	user     *models.Identity
	session  *models.Session
	loading  bool
	closed   bool
	sub      *gateway.AuthSubscription
	watchers map[int]func(Snapshot)
	nextID   int
}

// NewStore creates the store and resolves the initial state: it
// subscribes to auth change notifications first, then performs the
// one-time session lookup, so a sign-in racing the startup is not
// lost.
func NewStore(ctx context.Context, auth AuthGateway) *Store {
	s := &Store{
		auth:     auth,
		loading:  true,
		watchers: make(map[int]func(Snapshot)),
	}

	s.sub = auth.OnAuthStateChange(s.handleEvent)

	session := auth.CurrentSession()
	var user *models.Identity
	if session != nil {
		var err error
		user, err = auth.GetUser(ctx, session.AccessToken)
		if err != nil {
			slog.Warn("session store could not resolve initial user", "error", err)
			session = nil
		}
	}

	s.mu.Lock()
	if s.loading { // an event may have resolved state already
		s.session = session
		s.user = user
		s.loading = false
	}
	notify := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyWatchers(notify)
	return s
}

// State returns the current snapshot.
func (s *Store) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// OnChange registers a watcher invoked with every new snapshot. The
// returned function removes the watcher.
func (s *Store) OnChange(watcher func(Snapshot)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = watcher
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close releases the auth subscription. Events delivered after Close
// are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Store) handleEvent(event gateway.AuthEvent) {
	var user *models.Identity
	if event.Session != nil {
		resolved, err := s.auth.GetUser(context.Background(), event.Session.AccessToken)
		if err != nil {
			slog.Warn("session store could not resolve user for event",
				"event", string(event.Type), "error", err)
		} else {
			user = resolved
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = event.Session
	s.user = user
	s.loading = false
	notify := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyWatchers(notify)
}

func (s *Store) notifyWatchers(snapshot Snapshot) {
	s.mu.RLock()
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.RUnlock()

	for _, w := range watchers {
		w(snapshot)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:    s.user,
		Session: s.session,
		Loading: s.loading,
	}
}
