package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/accounts/internal/avatars"
	"github.com/thereayou/accounts/internal/cache"
	"github.com/thereayou/accounts/internal/database"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/models"
	"github.com/thereayou/accounts/pkg/auth"
)

// SessionPolicy controls what Authenticate requires beyond a valid token.
type SessionPolicy string

const (
	// SessionStored also requires the token to be the one stored on the user.
	SessionStored SessionPolicy = "stored"
	// SessionStateless accepts any signed, unexpired token of an existing user.
	SessionStateless SessionPolicy = "stateless"
)

// AuthService is the account lifecycle used by the HTTP layer.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*models.User, error)
	VerifyConsume(ctx context.Context, token string) error
	VerifyResend(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, ac AuthContext) error
	Current(ctx context.Context, ac AuthContext) (CurrentUser, error)
	UpdateAvatar(ctx context.Context, ac AuthContext, upload avatars.Upload) (string, error)
	UpdateSubscription(ctx context.Context, ac AuthContext, tier string) (CurrentUser, error)
	Authenticate(ctx context.Context, token string) (AuthContext, error)
}

// AuthContext identifies the caller of an authenticated operation.
type AuthContext struct {
	UserID uuid.UUID
	Token  string
}

type CurrentUser struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

type Deps struct {
	Store    UserStore
	Hasher   auth.PasswordHasher
	Tokens   TokenManager
	Verifier VerificationSender
	Limiter  cache.ResendLimiter
	Avatars  AvatarProcessor
	Logger   logging.Logger
	Policy   SessionPolicy
}

type Service struct {
	store    UserStore
	hasher   auth.PasswordHasher
	tokens   TokenManager
	verifier VerificationSender
	limiter  cache.ResendLimiter
	avatars  AvatarProcessor
	log      logging.Logger
	policy   SessionPolicy
}

var _ AuthService = (*Service)(nil)

func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		verifier: d.Verifier,
		limiter:  d.Limiter,
		avatars:  d.Avatars,
		log:      d.Logger,
		policy:   d.Policy,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	s.log = s.log.With("component", "auth")
	if s.policy == "" {
		s.policy = SessionStored
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func missingField(field string) error {
	return fmt.Errorf("%w %s", ErrMissingField, field)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Signup registers a new unverified account and mails its verification link.
func (s *Service) Signup(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, missingField("email")
	}
	if password == "" {
		return nil, missingField("password")
	}
	if err := is.Email.Validate(email); err != nil {
		return nil, ErrInvalidEmail
	}

	_, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, database.ErrNotFound):
		return nil, storeErr("signup", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	token := s.verifier.GenerateToken()
	user := &models.User{
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: &token,
		Subscription:      models.SubscriptionStarter,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeErr("signup", err)
	}

	s.verifier.Dispatch(user.Email, token)
	s.log.Info(ctx, "user registered", "user_id", user.ID.String())

	return user, nil
}

// VerifyConsume marks the owner of token as verified and invalidates the token.
func (s *Service) VerifyConsume(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenNotFound
	}

	user, err := s.store.FindUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrTokenNotFound
		}
		return storeErr("verify", err)
	}

	user.Verify = true
	user.VerificationToken = nil
	if err := s.store.SaveUser(ctx, user); err != nil {
		return storeErr("verify", err)
	}

	s.log.Info(ctx, "user verified", "user_id", user.ID.String())
	return nil
}

// VerifyResend mails the verification link again to an unverified account.
func (s *Service) VerifyResend(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return missingField("email")
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeErr("verify resend", err)
	}
	if user.Verify {
		return ErrAlreadyVerified
	}

	// The cooldown slot is claimed only once a token is persisted.
	if user.VerificationToken == nil || *user.VerificationToken == "" {
		token := s.verifier.GenerateToken()
		user.VerificationToken = &token
		if err := s.store.SaveUser(ctx, user); err != nil {
			return storeErr("verify resend", err)
		}
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		switch {
		case err != nil:
			s.log.Warn(ctx, "resend limiter unavailable", "error", err)
		case !ok:
			return ErrResendThrottled
		}
	}

	s.verifier.Dispatch(user.Email, *user.VerificationToken)
	return nil
}

// Login checks the credentials of a verified account and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", missingField("email")
	}
	if password == "" {
		return "", missingField("password")
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		// Unknown emails get the same answer as a wrong password.
		if errors.Is(err, database.ErrNotFound) {
			return "", ErrBadCredentials
		}
		return "", storeErr("login", err)
	}

	if !user.Verify {
		return "", ErrNotVerified
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrBadCredentials
	}

	token, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	user.Token = token
	if err := s.store.SaveUser(ctx, user); err != nil {
		return "", storeErr("login", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID.String())
	return token, nil
}

// Authenticate resolves a bearer token to the calling user.
func (s *Service) Authenticate(ctx context.Context, token string) (AuthContext, error) {
	if token == "" {
		return AuthContext{}, ErrInvalidToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return AuthContext{}, ErrExpiredToken
		}
		return AuthContext{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return AuthContext{}, ErrInvalidToken
	}

	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return AuthContext{}, ErrUnknownUser
		}
		return AuthContext{}, storeErr("authenticate", err)
	}

	if s.policy == SessionStored && user.Token != token {
		return AuthContext{}, ErrTokenRevoked
	}

	return AuthContext{UserID: user.ID, Token: token}, nil
}

func (s *Service) resolve(ctx context.Context, ac AuthContext) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storeErr("resolve user", err)
	}
	return user, nil
}

// Logout clears the stored session token.
func (s *Service) Logout(ctx context.Context, ac AuthContext) error {
	user, err := s.resolve(ctx, ac)
	if err != nil {
		return err
	}

	user.Token = ""
	if err := s.store.SaveUser(ctx, user); err != nil {
		return storeErr("logout", err)
	}

	s.log.Info(ctx, "user logged out", "user_id", user.ID.String())
	return nil
}

func (s *Service) Current(ctx context.Context, ac AuthContext) (CurrentUser, error) {
	user, err := s.resolve(ctx, ac)
	if err != nil {
		return CurrentUser{}, err
	}
	return CurrentUser{Email: user.Email, Subscription: user.Subscription}, nil
}

// UpdateAvatar stores upload as the caller's avatar and returns its URL. The
// new file is removed again when the user record cannot be saved.
func (s *Service) UpdateAvatar(ctx context.Context, ac AuthContext, upload avatars.Upload) (string, error) {
	user, err := s.resolve(ctx, ac)
	if err != nil {
		return "", err
	}

	url, err := s.avatars.Process(ctx, upload)
	if err != nil {
		switch {
		case errors.Is(err, avatars.ErrMissingFile):
			return "", ErrNoFile
		case errors.Is(err, avatars.ErrTooLarge):
			return "", ErrFileTooLarge
		case errors.Is(err, avatars.ErrUnsupportedImage):
			return "", fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrAvatarStorage, err)
	}

	previous := user.AvatarURL
	user.AvatarURL = url
	if err := s.store.SaveUser(ctx, user); err != nil {
		if rmErr := s.avatars.Remove(url); rmErr != nil {
			s.log.Error(ctx, "avatar rollback failed", "avatar", url, "error", rmErr)
		}
		return "", storeErr("update avatar", err)
	}

	if previous != "" && previous != url {
		if err := s.avatars.Remove(previous); err != nil {
			s.log.Warn(ctx, "previous avatar not removed", "avatar", previous, "error", err)
		}
	}

	return url, nil
}

func (s *Service) UpdateSubscription(ctx context.Context, ac AuthContext, tier string) (CurrentUser, error) {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier == "" {
		return CurrentUser{}, missingField("subscription")
	}
	if !models.IsValidSubscription(tier) {
		return CurrentUser{}, ErrInvalidSubscription
	}

	user, err := s.resolve(ctx, ac)
	if err != nil {
		return CurrentUser{}, err
	}

	user.Subscription = tier
	if err := s.store.SaveUser(ctx, user); err != nil {
		return CurrentUser{}, storeErr("update subscription", err)
	}
	return CurrentUser{Email: user.Email, Subscription: user.Subscription}, nil
}
