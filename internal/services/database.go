package services

import (
	"context"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/thereayou/accounts/internal/avatars"
	"github.com/thereayou/accounts/internal/models"
)

// UserStore persists user records. Lookups that match nothing return
// database.ErrNotFound; a create that violates email uniqueness returns
// database.ErrDuplicate.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
}

// VerificationSender issues verification tokens and mails them out.
type VerificationSender interface {
	GenerateToken() string
	Dispatch(email, token string)
}

type AvatarProcessor interface {
	Process(ctx context.Context, upload avatars.Upload) (string, error)
	Remove(relativeURL string) error
}

type TokenManager interface {
	Generate(userID string) (string, error)
	Verify(token string) (*jwt.RegisteredClaims, error)
}
