package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/pkg/logger"
)

// GroupHandler exposes the group lifecycle over HTTP.
type GroupHandler struct {
	users    *services.UserService
	sessions *services.SessionManager
	log      *logger.Logger
}

func NewGroupHandler(users *services.UserService, sessions *services.SessionManager, log *logger.Logger) *GroupHandler {
	return &GroupHandler{users: users, sessions: sessions, log: log}
}

// List returns the caller's groups.
func (h *GroupHandler) List(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}
	ok(c, s.Groups.UserGroups())
}

// Get returns one group by id.
func (h *GroupHandler) Get(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	group, found := s.Groups.GroupByID(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	ok(c, group)
}

type createGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids" binding:"required"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.Groups.CreateGroup(c.Request.Context(), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

type updateGroupRequest struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	AvatarURL   *string               `json:"avatar_url"`
	Settings    *models.GroupSettings `json:"settings"`
}

// Update patches only the fields present in the body.
func (h *GroupHandler) Update(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.Groups.UpdateGroupInfo(c.Request.Context(), c.Param("id"), services.GroupInfoUpdate{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		Settings:    req.Settings,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

type memberIDsRequest struct {
	MemberIDs []string `json:"member_ids" binding:"required"`
}

func (h *GroupHandler) AddMembers(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req memberIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.Groups.AddMembers(c.Request.Context(), c.Param("id"), req.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	var req memberIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.Groups.RemoveMembers(c.Request.Context(), c.Param("id"), req.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

func (h *GroupHandler) Promote(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	group, err := s.Groups.PromoteToAdmin(c.Request.Context(), c.Param("id"), c.Param("member_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

func (h *GroupHandler) Demote(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	group, err := s.Groups.DemoteAdmin(c.Request.Context(), c.Param("id"), c.Param("member_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, group)
}

func (h *GroupHandler) Leave(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if err := s.Groups.LeaveGroup(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *GroupHandler) Delete(c *gin.Context) {
	s := sessionFromContext(c, h.users, h.sessions)
	if s == nil {
		return
	}

	if err := s.Groups.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
