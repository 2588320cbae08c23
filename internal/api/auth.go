package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codetracker/internal/auth"
)

type authHandler struct {
	service *auth.Service
	log     *zap.Logger
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *authHandler) signUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}
	session, err := h.service.SignUp(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		fail(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Info("user signed up", zap.String("user_id", session.User.ID))
	ok(c, gin.H{"session": session})
}

func (h *authHandler) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}
	session, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.log.Error("sign in", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, gin.H{"session": session})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *authHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "refresh_token is required")
		return
	}
	session, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	ok(c, gin.H{"session": session})
}
