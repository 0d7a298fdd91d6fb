package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/middlewares"
	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/pkg/logger"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users    *services.UserService
	sessions *services.SessionManager
	log      *logger.Logger
}

func NewAuthHandler(users *services.UserService, sessions *services.SessionManager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, log: log}
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tok, err := h.users.Register(c.Request.Context(), req.FirstName, req.LastName, req.Phone, req.Password)
	if err != nil {
		h.log.Warn("registration failed", zap.String("phone", req.Phone), zap.Error(err))
		fail(c, err)
		return
	}

	ok(c, gin.H{"user": user, "token": tok})
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates and warms up the caller's session so the first
// page load already has groups and contacts cached.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tok, err := h.users.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	if _, err := h.sessions.GetOrCreate(c.Request.Context(), user); err != nil {
		h.log.Error("failed to start session", zap.String("user_id", user.ID), zap.Error(err))
		fail(c, err)
		return
	}

	ok(c, gin.H{"user": user, "token": tok})
}

// Logout drops the caller's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.sessions.Drop(userID)
	h.users.TouchLastSeen(c.Request.Context(), userID)
	ok(c, nil)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}
