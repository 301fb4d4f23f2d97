package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/kvstore"
	"github.com/frahmantamala/expense-approval/internal/user"
)

const (
	sessionUserKey  = "auth_user"
	sessionTokenKey = "auth_token"
)

type storedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps the logged in user between CLI invocations.
type SessionStore struct {
	store *kvstore.Store
}

func NewSessionStore(store *kvstore.Store) *SessionStore {
	return &SessionStore{store: store}
}

func (s *SessionStore) Save(ctx context.Context, session Session) error {
	if err := s.store.Put(ctx, sessionUserKey, session.User); err != nil {
		return fmt.Errorf("save session user: %w", err)
	}
	if err := s.store.Put(ctx, sessionTokenKey, storedToken{Token: session.Token, ExpiresAt: session.ExpiresAt}); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

// Load returns the saved session, or nil when nobody is logged in.
func (s *SessionStore) Load(ctx context.Context) (*Session, error) {
	var u user.User
	ok, err := s.store.Get(ctx, sessionUserKey, &u)
	if err != nil || !ok {
		return nil, err
	}
	var t storedToken
	ok, err = s.store.Get(ctx, sessionTokenKey, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &Session{User: u, Token: t.Token, ExpiresAt: t.ExpiresAt}, nil
}

// Resume re-authenticates the saved token and returns its user as currently
// stored, ignoring the cached copy. It returns nil when nobody is logged in.
func (s *Service) Resume(ctx context.Context, sessions *SessionStore) (*user.User, error) {
	session, err := sessions.Load(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	return s.Authenticate(ctx, session.Token)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, sessionUserKey); err != nil {
		return err
	}
	return s.store.Delete(ctx, sessionTokenKey)
}
