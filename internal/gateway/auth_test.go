package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"inkframe/internal/models"
	"inkframe/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentities struct {
	mu      sync.Mutex
	byEmail map[string]*models.Identity
	byID    map[uuid.UUID]*models.Identity
}

func newStubIdentities() *stubIdentities {
	return &stubIdentities{
		byEmail: make(map[string]*models.Identity),
		byID:    make(map[uuid.UUID]*models.Identity),
	}
}

func (s *stubIdentities) InsertIdentity(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[identity.Email]; exists {
		return nil, utils.NewAppError(utils.ErrEmailRegistered, "Email already registered", nil)
	}
	s.byEmail[identity.Email] = identity
	s.byID[identity.ID] = identity
	return identity, nil
}

func (s *stubIdentities) GetIdentityByEmail(_ context.Context, email string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byEmail[email]
	if !ok {
		return nil, utils.NewNotFoundError("Identity")
	}
	return identity, nil
}

func (s *stubIdentities) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, utils.NewNotFoundError("Identity")
	}
	return identity, nil
}

func TestSignUpValidation(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)

	_, err := auth.SignUp(context.Background(), "not-an-email", "hunter22")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = auth.SignUp(context.Background(), "a@b.com", "short")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestSignUpNormalizesEmailAndHashesPassword(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)

	identity, err := auth.SignUp(context.Background(), "  Reader@Example.COM ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", identity.Email)
	assert.NotEqual(t, "hunter22", identity.PasswordHash)

	// Registering the normalized form again collides
	_, err = auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	assert.True(t, utils.IsErrorCode(err, utils.ErrEmailRegistered))
}

func TestSignInWithPassword(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)
	identity, err := auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	// Wrong password and unknown email report the same code
	_, _, err = auth.SignInWithPassword(context.Background(), "reader@example.com", "wrong")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))
	_, _, err = auth.SignInWithPassword(context.Background(), "nobody@example.com", "hunter22")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))

	session, signedIn, err := auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, signedIn.ID)
	assert.Equal(t, identity.ID, session.UserID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	// The token round-trips through validation
	claims, err := auth.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.UserID)
}

func TestSignOutRevokesSession(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)
	_, err := auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	session, _, err := auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, auth.GetSession(session.AccessToken))

	auth.SignOut(session.AccessToken)
	assert.Nil(t, auth.GetSession(session.AccessToken))
	assert.Nil(t, auth.CurrentSession())

	// The JWT itself is still well-formed; revocation lives in the
	// session registry, which is why handlers check GetSession.
	_, err = auth.ValidateToken(session.AccessToken)
	assert.NoError(t, err)

	// Signing out twice is harmless
	auth.SignOut(session.AccessToken)
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)
	_, err := auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	session, _, err := auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	refreshed, err := auth.RefreshSession(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, refreshed.UserID)
	assert.Nil(t, auth.GetSession(session.AccessToken))
	assert.NotNil(t, auth.GetSession(refreshed.AccessToken))

	// A revoked token cannot be refreshed
	_, err = auth.RefreshSession(session.AccessToken)
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))
}

func TestExpiredSessionIsDropped(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", -time.Minute)
	_, err := auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	session, _, err := auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	assert.Nil(t, auth.GetSession(session.AccessToken))
	assert.Nil(t, auth.CurrentSession())
}

func TestOnAuthStateChangeDeliversEvents(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)
	_, err := auth.SignUp(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)

	var mu sync.Mutex
	var events []AuthEventType
	sub := auth.OnAuthStateChange(func(event AuthEvent) {
		mu.Lock()
		events = append(events, event.Type)
		mu.Unlock()
	})

	session, _, err := auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)
	refreshed, err := auth.RefreshSession(session.AccessToken)
	require.NoError(t, err)
	auth.SignOut(refreshed.AccessToken)

	mu.Lock()
	assert.Equal(t, []AuthEventType{AuthSignedIn, AuthTokenRefreshed, AuthSignedOut}, events)
	mu.Unlock()

	// After unsubscribing, nothing more arrives
	sub.Unsubscribe()
	_, _, err = auth.SignInWithPassword(context.Background(), "reader@example.com", "hunter22")
	require.NoError(t, err)
	mu.Lock()
	assert.Len(t, events, 3)
	mu.Unlock()
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	auth := NewAuthService(newStubIdentities(), "test-secret", time.Hour)
	other := NewAuthService(newStubIdentities(), "another-secret", time.Hour)

	token, _, err := other.IssueToken(uuid.New())
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.Error(t, err)

	_, err = auth.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
