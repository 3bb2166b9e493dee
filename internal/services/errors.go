package services

import "errors"

// Kind classifies service errors so transports can map them to a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindUnauthorized
	KindNotFound
	KindProcessing
	KindDependency
	KindThrottled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindProcessing:
		return "processing"
	case KindDependency:
		return "dependency"
	case KindThrottled:
		return "throttled"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrMissingField        = &Error{Kind: KindValidation, Message: "missing required field"}
	ErrInvalidEmail        = &Error{Kind: KindValidation, Message: "invalid email"}
	ErrPasswordTooLong     = &Error{Kind: KindValidation, Message: "password must be at most 72 bytes"}
	ErrInvalidSubscription = &Error{Kind: KindValidation, Message: "invalid subscription"}
	ErrAlreadyVerified     = &Error{Kind: KindValidation, Message: "Verification has already been passed"}
	ErrNoFile              = &Error{Kind: KindValidation, Message: "File not found"}
	ErrFileTooLarge        = &Error{Kind: KindValidation, Message: "File is too large"}

	ErrDuplicateEmail = &Error{Kind: KindConflict, Message: "User already exists"}

	ErrBadCredentials = &Error{Kind: KindAuth, Message: "Incorrect login/password"}
	ErrNotVerified    = &Error{Kind: KindAuth, Message: "User not verified"}

	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Not authorized"}
	ErrInvalidToken = &Error{Kind: KindUnauthorized, Message: "invalid token"}
	ErrExpiredToken = &Error{Kind: KindUnauthorized, Message: "token expired"}
	ErrUnknownUser  = &Error{Kind: KindUnauthorized, Message: "unknown user"}
	ErrTokenRevoked = &Error{Kind: KindUnauthorized, Message: "token revoked"}

	ErrUserNotFound  = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrTokenNotFound = &Error{Kind: KindNotFound, Message: "Not found"}

	ErrUnsupportedImage = &Error{Kind: KindProcessing, Message: "unsupported image"}
	ErrAvatarStorage    = &Error{Kind: KindProcessing, Message: "could not store avatar"}

	ErrStore = &Error{Kind: KindDependency, Message: "storage unavailable"}

	ErrResendThrottled = &Error{Kind: KindThrottled, Message: "Verification email was sent recently, try again later"}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
