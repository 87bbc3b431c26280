package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/models"
	"github.com/thereayou/voxus-chat/pkg/auth"
)

type AuthHandler struct {
	db         *database.Database
	jwtManager *auth.JWTManager
	blacklist  *middleware.TokenBlacklist
	log        *zap.Logger
}

func NewAuthHandler(db *database.Database, jwtMgr *auth.JWTManager, blacklist *middleware.TokenBlacklist, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwtManager: jwtMgr, blacklist: blacklist, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("password_hash_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		LastSeenAt:   time.Now().UTC(),
	}
	if err := h.db.SaveUser(c.Request.Context(), user); err != nil {
		respondError(c, h.log, err)
		return
	}

	token, expires, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		h.log.Error("token_generation_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	h.log.Info("user_registered", zap.Uint64("user_id", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusCreated, dto.RegisterResponse{
		ID:             user.ID,
		Username:       user.Username,
		Token:          token,
		TokenExpiresAt: expires.UTC().Format(time.RFC3339),
	})
}

// Login accepts a username or an email and issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.db.FindUserByLogin(c.Request.Context(), req.Login)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.db.UpdateLastSeen(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.log, err)
		return
	}

	token, expires, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		h.log.Error("token_generation_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:          token,
		TokenExpiresAt: expires.UTC().Format(time.RFC3339),
		User:           dto.UserInfo{ID: user.ID, Username: user.Username},
	})
}

// Logout blacklists the token until it would have expired anyway.
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if h.blacklist == nil {
		// no redis configured: the token stays valid until it expires
		h.log.Warn("logout_without_blacklist", zap.Time("expires_at", exp))
		c.Status(http.StatusOK)
		return
	}
	if err := h.blacklist.Revoke(c.Request.Context(), rawToken, time.Until(exp)); err != nil {
		h.log.Error("token_revoke_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log out"})
		return
	}

	c.Status(http.StatusOK)
}
