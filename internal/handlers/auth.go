package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/accounts/internal/handlers/dto"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/middleware"
	"github.com/thereayou/accounts/internal/services"
)

type AuthHandler struct {
	svc services.AuthService
	log logging.Logger
}

func NewAuthHandler(svc services.AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Signup registers an account and mails the verification link.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		respond(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"code":   http.StatusCreated,
		"data": dto.SignupResponse{
			Message:   "Signup complete",
			User:      dto.UserResponse{Email: user.Email, Subscription: user.Subscription},
			AvatarURL: user.AvatarURL,
		},
	})
}

// Login issues a session token for a verified account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respond(c, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"code":   http.StatusOK,
		"data":   dto.TokenResponse{Token: token},
	})
}

func (h *AuthHandler) VerifyConsume(c *gin.Context) {
	if err := h.svc.VerifyConsume(c.Request.Context(), c.Param("verificationToken")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"code":    http.StatusOK,
		"message": "Verification successful",
	})
}

func (h *AuthHandler) VerifyResend(c *gin.Context) {
	var req dto.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email != "" {
		if err := req.Validate(); err != nil {
			respond(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.svc.VerifyResend(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"code":    http.StatusOK,
		"message": "Verification email sent",
	})
}

// Logout invalidates the caller's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ac, ok := middleware.AuthFrom(c)
	if !ok {
		respondError(c, h.log, services.ErrUnauthorized)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), ac); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
