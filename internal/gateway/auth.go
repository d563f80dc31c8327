package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"inkframe/internal/models"
	"inkframe/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthEventType identifies a session change notification.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to every subscriber whenever the session state
// changes. Session is nil for AuthSignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *models.Session
}

// AuthSubscription is a live registration for auth change events.
// Unsubscribe must be called when the consumer goes away, so the
// service stops invoking its callback.
type AuthSubscription struct {
	id      int
	service *AuthService
}

func (s *AuthSubscription) Unsubscribe() {
	s.service.unsubscribe(s.id)
}

// Claims represents the JWT claims for our application
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// IdentityStore is the persistence surface the auth service needs.
// *MongoDB satisfies it; tests substitute an in-memory fake.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
}

// AuthService implements the gateway's authentication surface: sign
// up, password sign-in, sign-out, session retrieval and session-change
// notifications. Live sessions are held in memory keyed by token so
// sign-out can revoke a bearer token before it expires.
type AuthService struct {
	identities  IdentityStore
	jwtSecret   []byte
	tokenExpiry time.Duration

	mu          sync.RWMutex
	sessions    map[string]*models.Session
	current     *models.Session // most recent live sign-in
	subscribers map[int]func(AuthEvent)
	nextSubID   int
}

func NewAuthService(identities IdentityStore, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		identities:  identities,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
		sessions:    make(map[string]*models.Session),
		subscribers: make(map[int]func(AuthEvent)),
	}
}

// SignUp creates a new authentication identity. It does not open a
// session; callers sign in afterwards.
func (a *AuthService) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, utils.NewValidationError("A valid email is required")
	}
	if len(password) < 6 {
		return nil, utils.NewValidationError("Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	identity := &models.Identity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	saved, err := a.identities.InsertIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	log.Printf("AuthService: Registered identity %s", saved.ID)
	return saved, nil
}

// SignInWithPassword verifies credentials and opens a new session.
func (a *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, *models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	identity, err := a.identities.GetIdentityByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the email exists.
		return nil, nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid credentials", nil)
	}

	session, err := a.openSession(identity.ID)
	if err != nil {
		return nil, nil, err
	}

	a.emit(AuthEvent{Type: AuthSignedIn, Session: session})
	return session, identity, nil
}

// SignOut revokes the session behind a token. Unknown tokens are
// ignored; signing out twice is harmless.
func (a *AuthService) SignOut(token string) {
	a.mu.Lock()
	session, ok := a.sessions[token]
	if ok {
		delete(a.sessions, token)
		if a.current != nil && a.current.AccessToken == token {
			a.current = nil
		}
	}
	a.mu.Unlock()

	if ok {
		log.Printf("AuthService: Signed out user %s", session.UserID)
		a.emit(AuthEvent{Type: AuthSignedOut})
	}
}

// GetSession returns the live session for a token, or nil when the
// token is unknown, revoked or expired.
func (a *AuthService) GetSession(token string) *models.Session {
	a.mu.RLock()
	session, ok := a.sessions[token]
	a.mu.RUnlock()

	if !ok {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return nil
	}
	return session
}

// CurrentSession returns the most recent live sign-in, or nil. This is
// the one-time lookup the session store performs at startup.
func (a *AuthService) CurrentSession() *models.Session {
	a.mu.RLock()
	session := a.current
	a.mu.RUnlock()

	if session == nil || time.Now().After(session.ExpiresAt) {
		return nil
	}
	return session
}

// GetUser resolves a token to its identity.
func (a *AuthService) GetUser(ctx context.Context, token string) (*models.Identity, error) {
	session := a.GetSession(token)
	if session == nil {
		return nil, utils.NewUnauthorizedError("no active session")
	}
	return a.identities.GetIdentity(ctx, session.UserID)
}

// RefreshSession replaces a live session's token with a fresh one and
// notifies subscribers.
func (a *AuthService) RefreshSession(token string) (*models.Session, error) {
	a.mu.Lock()
	old, ok := a.sessions[token]
	if !ok {
		a.mu.Unlock()
		return nil, utils.NewUnauthorizedError("no active session")
	}
	delete(a.sessions, token)
	a.mu.Unlock()

	session, err := a.openSession(old.UserID)
	if err != nil {
		return nil, err
	}

	a.emit(AuthEvent{Type: AuthTokenRefreshed, Session: session})
	return session, nil
}

// OnAuthStateChange registers a callback for session change events.
func (a *AuthService) OnAuthStateChange(callback func(AuthEvent)) *AuthSubscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextSubID++
	id := a.nextSubID
	a.subscribers[id] = callback

	return &AuthSubscription{id: id, service: a}
}

func (a *AuthService) unsubscribe(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subscribers, id)
}

func (a *AuthService) emit(event AuthEvent) {
	a.mu.RLock()
	callbacks := make([]func(AuthEvent), 0, len(a.subscribers))
	for _, cb := range a.subscribers {
		callbacks = append(callbacks, cb)
	}
	a.mu.RUnlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

func (a *AuthService) openSession(userID uuid.UUID) (*models.Session, error) {
	token, expiresAt, err := a.IssueToken(userID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		AccessToken: token,
		UserID:      userID,
		ExpiresAt:   expiresAt,
	}

	a.mu.Lock()
	a.sessions[token] = session
	a.current = session
	a.mu.Unlock()

	return session, nil
}

// IssueToken creates a new JWT token for the given user ID
func (a *AuthService) IssueToken(userID uuid.UUID) (string, time.Time, error) {
	expirationTime := time.Now().Add(a.tokenExpiry)

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "inkframe-api",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expirationTime, nil
}

// ValidateToken validates the provided JWT token
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.jwtSecret, nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
