package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/pkg/logger"
)

// ContactHandler exposes the contact directory over HTTP.
type ContactHandler struct {
	users    *services.UserService
	sessions *services.SessionManager
	log      *logger.Logger
}

func NewContactHandler(users *services.UserService, sessions *services.SessionManager, log *logger.Logger) *ContactHandler {
	return &ContactHandler{users: users, sessions: sessions, log: log}
}

// List returns the active contacts, filtered by the query parameter q
// when present.
func (h *ContactHandler) List(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if q := c.Query("q"); q != "" {
		ok(c, s.Contacts.SearchContacts(q))
		return
	}
	ok(c, s.Contacts.Contacts())
}

func (h *ContactHandler) ListBlocked(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}
	ok(c, s.Contacts.BlockedContacts())
}

func (h *ContactHandler) ListFavorites(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}
	ok(c, s.Contacts.FavoriteContacts())
}

type addContactRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

func (h *ContactHandler) Add(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req addContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := s.Contacts.AddContact(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, contact)
}

func (h *ContactHandler) Block(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if err := s.Contacts.BlockContact(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *ContactHandler) Unblock(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if err := s.Contacts.UnblockContact(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if err := s.Contacts.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *ContactHandler) ToggleFavorite(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	contact, err := s.Contacts.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, contact)
}
