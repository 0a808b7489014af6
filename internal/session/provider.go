package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	"golang.org/x/crypto/bcrypt"
)

const (
	accountsCollection = "accounts"
	sessionsCollection = "sessions"

	MinPasswordLength = 6
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Authenticator resolves an access token into the identity it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type sessionRecord struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LocalProvider is an email/password identity provider backed by the
// document store.
type LocalProvider struct {
	store      docstore.Store
	tokens     *TokenManager
	hub        *Hub
	bcryptCost int
}

func NewLocalProvider(store docstore.Store, tokens *TokenManager, hub *Hub) *LocalProvider {
	return &LocalProvider{store: store, tokens: tokens, hub: hub, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (p *LocalProvider) WithBcryptCost(cost int) *LocalProvider {
	p.bcryptCost = cost
	return p
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (Identity, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Identity{}, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return Identity{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("session: failed to hash password")
		return Identity{}, fmt.Errorf("session: hash password: %w", err)
	}

	userID, err := uuid.NewV4()
	if err != nil {
		return Identity{}, fmt.Errorf("session: generate user id: %w", err)
	}

	acc := account{
		ID:           userID.String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := p.store.Create(ctx, accountsCollection, email, acc); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return Identity{}, ErrEmailExists
		}
		return Identity{}, fmt.Errorf("session: create account: %w", err)
	}

	id := Identity{ID: acc.ID, Email: acc.Email, DisplayName: acc.DisplayName}
	p.hub.Publish(Event{Kind: EventSignedUp, Identity: id})
	log.Info().Str("user_id", id.ID).Msg("session: account created")
	return id, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Token, Identity, error) {
	email = NormalizeEmail(email)

	doc, err := p.store.Get(ctx, accountsCollection, email)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Token{}, Identity{}, ErrInvalidCredentials
		}
		return Token{}, Identity{}, fmt.Errorf("session: load account: %w", err)
	}
	var acc account
	if err := doc.Decode(&acc); err != nil {
		return Token{}, Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Token{}, Identity{}, ErrInvalidCredentials
	}

	sessionID, err := uuid.NewV4()
	if err != nil {
		return Token{}, Identity{}, fmt.Errorf("session: generate session id: %w", err)
	}
	id := Identity{ID: acc.ID, Email: acc.Email, DisplayName: acc.DisplayName}
	value, expiresAt, err := p.tokens.Issue(id, sessionID.String())
	if err != nil {
		return Token{}, Identity{}, err
	}

	rec := sessionRecord{UserID: id.ID, Email: id.Email, ExpiresAt: expiresAt}
	if err := p.store.Set(ctx, sessionsCollection, sessionID.String(), rec); err != nil {
		return Token{}, Identity{}, fmt.Errorf("session: store session: %w", err)
	}

	p.hub.Publish(Event{Kind: EventSignedIn, Identity: id})
	log.Info().Str("user_id", id.ID).Msg("session: signed in")
	return Token{Value: value, ExpiresAt: expiresAt}, id, nil
}

// SignOut revokes the session behind token. Signing out twice is not an error.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	id, sessionID, err := p.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := p.store.Delete(ctx, sessionsCollection, sessionID); err != nil {
		return fmt.Errorf("session: revoke session: %w", err)
	}
	p.hub.Publish(Event{Kind: EventSignedOut, Identity: id})
	log.Info().Str("user_id", id.ID).Msg("session: signed out")
	return nil
}

func (p *LocalProvider) Authenticate(ctx context.Context, token string) (Identity, error) {
	id, sessionID, err := p.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	if _, err := p.store.Get(ctx, sessionsCollection, sessionID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Identity{}, apperr.New(apperr.KindNotAuthenticated, "session revoked")
		}
		return Identity{}, fmt.Errorf("session: load session: %w", err)
	}
	return id, nil
}
