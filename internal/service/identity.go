package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

// IdentityConfig holds token and hashing parameters.
type IdentityConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Contact  string
	Password string
	Role     model.Role
}

// TokenPair is returned on register, login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Session is an authenticated actor with fresh tokens.
type Session struct {
	Actor  model.Actor `json:"actor"`
	Tokens TokenPair   `json:"tokens"`
}

// IdentityService registers actors and issues tokens.
type IdentityService struct {
	actors repository.ActorStore
	tokens repository.TokenStore
	cfg    IdentityConfig
	now    func() time.Time
}

func NewIdentityService(actors repository.ActorStore, tokens repository.TokenStore, cfg IdentityConfig) *IdentityService {
	return &IdentityService{actors: actors, tokens: tokens, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Register validates the form, stores the actor with a bcrypt hash and
// logs them in.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	in.Contact = strings.TrimSpace(in.Contact)
	switch {
	case in.Name == "":
		return Session{}, invalid("name", "is required")
	case in.Email == "":
		return Session{}, invalid("email", "is required")
	case !strings.Contains(in.Email, "@"):
		return Session{}, invalid("email", "is not a valid address")
	case in.Contact == "":
		return Session{}, invalid("contact", "is required")
	case in.Password == "":
		return Session{}, invalid("password", "is required")
	case !in.Role.Valid():
		return Session{}, invalid("role", "must be customer or provider")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return Session{}, invalid("password", "must be at most 72 bytes")
	}
	if err != nil {
		return Session{}, storeErr("hash password", err)
	}
	a := model.Actor{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Contact:      in.Contact,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.actors.Create(ctx, &a); err != nil {
		return Session{}, storeErr("register", err)
	}
	monitoring.RecordActorRegistered(string(a.Role))

	pair, err := s.issue(ctx, a)
	if err != nil {
		return Session{}, err
	}
	return Session{Actor: a, Tokens: pair}, nil
}

// Login checks credentials.  Unknown email and wrong password are
// indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, invalid("email", "email and password are required")
	}
	a, err := s.actors.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword("", password)
		return Session{}, unauthorized("invalid email or password")
	}
	if err != nil {
		return Session{}, storeErr("login", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return Session{}, unauthorized("invalid email or password")
	}
	pair, err := s.issue(ctx, a)
	if err != nil {
		return Session{}, err
	}
	return Session{Actor: a, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	if raw == "" {
		return TokenPair{}, invalid("refresh_token", "is required")
	}
	hash := utils.HashRefreshRaw(raw)
	actorID, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, unauthorized("invalid refresh token")
	}
	if err != nil {
		return TokenPair{}, storeErr("refresh", err)
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return TokenPair{}, storeErr("refresh", err)
	}
	a, err := s.actors.GetByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, unauthorized("invalid refresh token")
	}
	if err != nil {
		return TokenPair{}, storeErr("refresh", err)
	}
	return s.issue(ctx, a)
}

// Logout revokes the given refresh token, or every token of the caller
// when raw is empty.
func (s *IdentityService) Logout(ctx context.Context, id model.Identity, raw string) error {
	if raw != "" {
		return storeErr("logout", s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)))
	}
	if id.Anonymous() {
		return invalid("refresh_token", "is required")
	}
	return storeErr("logout", s.tokens.RevokeAllForActor(ctx, id.ActorID))
}

// Profile returns the caller's actor record.
func (s *IdentityService) Profile(ctx context.Context, id model.Identity) (model.Actor, error) {
	if id.Anonymous() {
		return model.Actor{}, unauthorized("authentication required")
	}
	a, err := s.actors.GetByID(ctx, id.ActorID)
	if err != nil {
		return model.Actor{}, storeErr("profile", err)
	}
	return a, nil
}

func (s *IdentityService) issue(ctx context.Context, a model.Actor) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, a.ID, string(a.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, storeErr("issue access token", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, storeErr("issue refresh token", err)
	}
	if err := s.tokens.StoreRefresh(ctx, a.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, storeErr("store refresh token", err)
	}
	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}
