package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/thereayou/accounts/internal/models"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type ResendRequest struct {
	Email string `json:"email"`
}

func (r ResendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

func (r SubscriptionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subscription,
			validation.Required,
			validation.In(models.SubscriptionStarter, models.SubscriptionPro, models.SubscriptionBusiness),
		),
	)
}

type UserResponse struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

type SignupResponse struct {
	Message   string       `json:"message"`
	User      UserResponse `json:"user"`
	AvatarURL string       `json:"avatarURL"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}
