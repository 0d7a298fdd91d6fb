package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/pkg/logger"
)

// ConversationHandler opens conversations from a contact, a group or a
// raw phone number.
type ConversationHandler struct {
	users    *services.UserService
	sessions *services.SessionManager
	log      *logger.Logger
}

func NewConversationHandler(users *services.UserService, sessions *services.SessionManager, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{users: users, sessions: sessions, log: log}
}

// List returns the caller's conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	conversations, err := s.Router.Conversations(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, conversations)
}

type openConversationRequest struct {
	ContactID string `json:"contact_id"`
	GroupID   string `json:"group_id"`
	Phone     string `json:"phone"`

	// AddContact pre-answers the add-to-contacts prompt on phone
	// lookups. Absent means decline.
	AddContact bool `json:"add_contact"`
}

// Open resolves the conversation for exactly one of contact_id,
// group_id or phone.
func (h *ConversationHandler) Open(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req openConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set := 0
	for _, v := range []string{req.ContactID, req.GroupID, req.Phone} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of contact_id, group_id or phone is required"})
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.ContactID != "":
		conversation, err := s.Router.StartWithContact(ctx, req.ContactID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, conversation)
	case req.GroupID != "":
		conversation, err := s.Router.StartWithGroup(ctx, req.GroupID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, conversation)
	default:
		conversation, err := s.Router.StartWithPhone(services.WithConfirmAnswer(ctx, req.AddContact), req.Phone)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, conversation)
	}
}
