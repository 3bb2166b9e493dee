package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/accounts/internal/avatars"
	"github.com/thereayou/accounts/internal/handlers/dto"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/middleware"
	"github.com/thereayou/accounts/internal/services"
)

const AvatarField = "avatar"

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 64 << 10

type UserHandler struct {
	svc            services.AuthService
	log            logging.Logger
	maxAvatarBytes int64
}

func NewUserHandler(svc services.AuthService, log logging.Logger, maxAvatarBytes int64) *UserHandler {
	return &UserHandler{svc: svc, log: log, maxAvatarBytes: maxAvatarBytes}
}

// Current returns the email and subscription of the caller.
func (h *UserHandler) Current(c *gin.Context) {
	ac, ok := middleware.AuthFrom(c)
	if !ok {
		respondError(c, h.log, services.ErrUnauthorized)
		return
	}

	cur, err := h.svc.Current(c.Request.Context(), ac)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserResponse{Email: cur.Email, Subscription: cur.Subscription})
}

// UpdateSubscription changes the caller's subscription tier.
func (h *UserHandler) UpdateSubscription(c *gin.Context) {
	ac, ok := middleware.AuthFrom(c)
	if !ok {
		respondError(c, h.log, services.ErrUnauthorized)
		return
	}

	var req dto.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Subscription = strings.ToLower(strings.TrimSpace(req.Subscription))
	if err := req.Validate(); err != nil {
		respond(c, http.StatusBadRequest, err.Error())
		return
	}

	cur, err := h.svc.UpdateSubscription(c.Request.Context(), ac, req.Subscription)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserResponse{Email: cur.Email, Subscription: cur.Subscription})
}

// UpdateAvatar stores the multipart "avatar" file as the caller's avatar.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	ac, ok := middleware.AuthFrom(c)
	if !ok {
		respondError(c, h.log, services.ErrUnauthorized)
		return
	}

	if h.maxAvatarBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAvatarBytes+multipartOverhead)
	}

	fh, err := c.FormFile(AvatarField)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, h.log, services.ErrFileTooLarge)
		return
	}

	// A missing file leaves upload empty, which the service rejects.
	var upload avatars.Upload
	if err == nil {
		upload = avatars.Upload{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}

	url, err := h.svc.UpdateAvatar(c.Request.Context(), ac, upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.AvatarResponse{Avatar: url})
}
