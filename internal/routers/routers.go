package routers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/handlers"
	"github.com/dembasy/jokko/internal/middlewares"
	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/internal/ws"
	"github.com/dembasy/jokko/pkg/ratelimit"
)

// SetupRoutes wires every endpoint onto the engine.
func SetupRoutes(r *gin.Engine,
	authHandler *handlers.AuthHandler,
	groupHandler *handlers.GroupHandler,
	contactHandler *handlers.ContactHandler,
	conversationHandler *handlers.ConversationHandler,
	hub *ws.Hub,
	sessions *services.SessionManager,
	limiter ratelimit.Limiter,
) {
	// WebSocket upgrade stays outside the API groups so middlewares
	// meant for JSON endpoints never touch the handshake.
	r.GET("/ws", middlewares.AuthMiddleware(), func(c *gin.Context) {
		ws.ServeWS(hub, sessions, c)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if limiter != nil {
		r.Use(middlewares.RateLimitMiddleware(limiter, 120, time.Minute))
	}

	registerAuthRoutes(r, authHandler)
	registerGroupRoutes(r, groupHandler)
	registerContactRoutes(r, contactHandler)
	registerConversationRoutes(r, conversationHandler)
}

func registerAuthRoutes(r *gin.Engine, h *handlers.AuthHandler) {
	users := r.Group("/api/v1/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
	}
	users.Use(middlewares.AuthMiddleware())
	{
		users.POST("/logout", h.Logout)
		users.GET("/me", h.Me)
	}
}

func registerGroupRoutes(r *gin.Engine, h *handlers.GroupHandler) {
	groups := r.Group("/api/v1/groups")
	groups.Use(middlewares.AuthMiddleware())
	{
		groups.GET("", h.List)
		groups.POST("", h.Create)
		groups.GET("/:id", h.Get)
		groups.PATCH("/:id", h.Update)
		groups.DELETE("/:id", h.Delete)

		groups.POST("/:id/members", h.AddMembers)
		groups.DELETE("/:id/members", h.RemoveMembers)
		groups.POST("/:id/admins/:member_id", h.Promote)
		groups.DELETE("/:id/admins/:member_id", h.Demote)
		groups.POST("/:id/leave", h.Leave)
	}
}

func registerContactRoutes(r *gin.Engine, h *handlers.ContactHandler) {
	contacts := r.Group("/api/v1/contacts")
	contacts.Use(middlewares.AuthMiddleware())
	{
		contacts.GET("", h.List)
		contacts.POST("", h.Add)
		contacts.GET("/blocked", h.ListBlocked)
		contacts.GET("/favorites", h.ListFavorites)
		contacts.DELETE("/:id", h.Delete)
		contacts.POST("/:id/block", h.Block)
		contacts.POST("/:id/unblock", h.Unblock)
		contacts.POST("/:id/favorite", h.ToggleFavorite)
	}
}

func registerConversationRoutes(r *gin.Engine, h *handlers.ConversationHandler) {
	conversations := r.Group("/api/v1/conversations")
	conversations.Use(middlewares.AuthMiddleware())
	{
		conversations.GET("", h.List)
		conversations.POST("/open", h.Open)
	}
}
