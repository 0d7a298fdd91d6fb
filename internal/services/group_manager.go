package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/internal/repositories"
	"github.com/dembasy/jokko/pkg/logger"
)

// GroupManager is the session's single source of truth for the groups
// the current user belongs to. All permission and invariant checks run
// against the local cache before any store call, so a rejected
// operation never leaves partial state. Every successful mutation
// updates the cache and publishes exactly one domain event.
//
// The cache is only written by this manager; other components read it
// through the query methods.
type GroupManager struct {
	store    GroupStore
	bus      *events.Bus
	identity Identity
	log      *logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	groups []models.Group
}

func NewGroupManager(store GroupStore, bus *events.Bus, identity Identity, log *logger.Logger) *GroupManager {
	return &GroupManager{
		store:    store,
		bus:      bus,
		identity: identity,
		log:      log,
		now:      time.Now,
	}
}

// ensureRemote classifies bare store errors as remote failures while
// passing already-classified errors through.
func ensureRemote(err error, msg string) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != 0 {
		return err
	}
	return apperrors.Remote(err, "%s", msg)
}

// LoadGroups replaces the cache with the current user's active
// memberships, last fetch wins. On failure the cache is left unchanged
// so stale data remains available.
func (m *GroupManager) LoadGroups(ctx context.Context) error {
	me := m.identity.CurrentUser().ID

	all, err := m.store.List(ctx)
	if err != nil {
		err = ensureRemote(err, "load groups")
		m.log.Error("failed to load groups", zap.String("user_id", me), zap.Error(err))
		return err
	}

	mine := make([]models.Group, 0, len(all))
	for _, g := range all {
		if g.HasMember(me) && !g.IsDeleted {
			mine = append(mine, g)
		}
	}

	m.mu.Lock()
	m.groups = mine
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.GroupsLoaded, Payload: m.UserGroups()})
	return nil
}

// CreateGroup validates and creates a group with the caller as creator
// and sole admin. memberIDs must name at least two other users; the
// caller is added implicitly and does not count toward that minimum.
func (m *GroupManager) CreateGroup(ctx context.Context, name, description string, memberIDs []string) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("group name is required")
	}

	others := dedupExcluding(memberIDs, me)
	if len(others) < 2 {
		return nil, apperrors.Validation("a group needs at least 2 members besides the creator")
	}

	now := m.now().UTC()
	group := &models.Group{
		ID:          models.NewID(),
		Name:        name,
		Description: description,
		Members:     append([]string{me}, others...),
		Admins:      []string{me},
		CreatedBy:   me,
		Settings:    models.DefaultGroupSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := ensureRemote(m.store.Create(ctx, group), "create group"); err != nil {
		m.log.Error("failed to create group", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.groups = append(m.groups, *group)
	m.mu.Unlock()

	m.bus.Publish(events.NewGroupCreated(group))
	m.log.Info("group created", zap.String("group_id", group.ID), zap.String("created_by", me))
	return group, nil
}

// GroupInfoUpdate carries the optional fields of UpdateGroupInfo.
type GroupInfoUpdate struct {
	Name        *string
	Description *string
	AvatarURL   *string
	Settings    *models.GroupSettings
}

// UpdateGroupInfo patches the supplied fields only, stamping a fresh
// update time. Admin-only.
func (m *GroupManager) UpdateGroupInfo(ctx context.Context, groupID string, updates GroupInfoUpdate) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}
	if !group.HasAdmin(me) {
		return nil, apperrors.Permission("only admins may edit group info")
	}
	if updates.Name != nil && strings.TrimSpace(*updates.Name) == "" {
		return nil, apperrors.Validation("group name is required")
	}

	updated, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Name:        updates.Name,
		Description: updates.Description,
		AvatarURL:   updates.AvatarURL,
		Settings:    updates.Settings,
		UpdatedAt:   m.now().UTC(),
	})
	if err = ensureRemote(err, "update group info"); err != nil {
		m.log.Error("failed to update group info", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	m.replaceCached(updated)
	m.bus.Publish(events.NewGroupUpdated(updated))
	return updated, nil
}

// AddMembers adds the not-yet-member candidates to the group. Allowed
// for admins, or for any member when the group settings permit it.
func (m *GroupManager) AddMembers(ctx context.Context, groupID string, candidateIDs []string) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}
	if !m.CanAddMembers(groupID, me) {
		return nil, apperrors.Permission("you are not allowed to add members to this group")
	}

	var newMembers []string
	seen := map[string]struct{}{}
	for _, id := range candidateIDs {
		if _, dup := seen[id]; dup || group.HasMember(id) {
			continue
		}
		seen[id] = struct{}{}
		newMembers = append(newMembers, id)
	}
	if len(newMembers) == 0 {
		return nil, apperrors.Validation("all selected users are already members")
	}

	members := append(append([]string{}, group.Members...), newMembers...)
	updated, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Members:   &members,
		UpdatedAt: m.now().UTC(),
	})
	if err = ensureRemote(err, "add members"); err != nil {
		m.log.Error("failed to add members", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	m.replaceCached(updated)
	m.bus.Publish(events.Event{
		Type:    events.GroupMembersAdded,
		Payload: events.MembersAddedPayload{GroupID: groupID, NewMembers: newMembers},
	})
	return updated, nil
}

// RemoveMembers removes the given members. Admin-only. Fails before
// any store call if the removal would leave the group without admins.
func (m *GroupManager) RemoveMembers(ctx context.Context, groupID string, memberIDs []string) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}
	if !group.HasAdmin(me) {
		return nil, apperrors.Permission("only admins may remove members")
	}

	remainingAdmins := exclude(group.Admins, memberIDs)
	if len(remainingAdmins) == 0 {
		return nil, apperrors.Invariant("a group must keep at least one admin")
	}

	members := exclude(group.Members, memberIDs)
	updated, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Members:   &members,
		Admins:    &remainingAdmins,
		UpdatedAt: m.now().UTC(),
	})
	if err = ensureRemote(err, "remove members"); err != nil {
		m.log.Error("failed to remove members", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	m.replaceCached(updated)
	m.bus.Publish(events.Event{
		Type:    events.GroupMembersRemoved,
		Payload: events.MembersRemovedPayload{GroupID: groupID, RemovedMembers: memberIDs},
	})
	return updated, nil
}

// PromoteToAdmin grants admin rights to an existing member. Admin-only.
func (m *GroupManager) PromoteToAdmin(ctx context.Context, groupID, memberID string) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}
	if !group.HasAdmin(me) {
		return nil, apperrors.Permission("only admins may promote members")
	}
	if !group.HasMember(memberID) {
		return nil, apperrors.Validation("user is not a member of this group")
	}
	if group.HasAdmin(memberID) {
		return nil, apperrors.Validation("user is already an admin")
	}

	admins := append(append([]string{}, group.Admins...), memberID)
	updated, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Admins:    &admins,
		UpdatedAt: m.now().UTC(),
	})
	if err = ensureRemote(err, "promote admin"); err != nil {
		m.log.Error("failed to promote admin", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	m.replaceCached(updated)
	m.bus.Publish(events.Event{
		Type:    events.GroupAdminPromoted,
		Payload: events.AdminPromotedPayload{GroupID: groupID, MemberID: memberID},
	})
	return updated, nil
}

// DemoteAdmin strips admin rights. Admin-only; the creator can never be
// demoted, and the group must keep at least one admin.
func (m *GroupManager) DemoteAdmin(ctx context.Context, groupID, adminID string) (*models.Group, error) {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}
	if !group.HasAdmin(me) {
		return nil, apperrors.Permission("only admins may demote admins")
	}
	if group.CreatedBy == adminID {
		return nil, apperrors.Validation("the group creator cannot be demoted")
	}
	if !group.HasAdmin(adminID) {
		return nil, apperrors.Validation("user is not an admin of this group")
	}
	if len(group.Admins) <= 1 {
		return nil, apperrors.Invariant("a group must keep at least one admin")
	}

	admins := exclude(group.Admins, []string{adminID})
	updated, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Admins:    &admins,
		UpdatedAt: m.now().UTC(),
	})
	if err = ensureRemote(err, "demote admin"); err != nil {
		m.log.Error("failed to demote admin", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	m.replaceCached(updated)
	m.bus.Publish(events.Event{
		Type:    events.GroupAdminDemoted,
		Payload: events.AdminDemotedPayload{GroupID: groupID, AdminID: adminID},
	})
	return updated, nil
}

// LeaveGroup removes the caller from the group. If the caller is the
// sole admin and other members remain, the first member in list order
// that is not the caller is promoted first, so the group never loses
// its last admin. If the caller is the last member, the group is
// soft-deleted instead of being left empty.
func (m *GroupManager) LeaveGroup(ctx context.Context, groupID string) error {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return apperrors.NotFound("group %s", groupID)
	}
	if !group.HasMember(me) {
		return apperrors.Permission("you are not a member of this group")
	}

	if len(group.Members) == 1 {
		// Last member out: soft-delete rather than leave an empty shell.
		// This path skips the creator-only check on DeleteGroup.
		return m.softDelete(ctx, groupID, me)
	}

	if group.HasAdmin(me) && len(group.Admins) == 1 {
		var successor string
		for _, id := range group.Members {
			if id != me {
				successor = id
				break
			}
		}
		if _, err := m.PromoteToAdmin(ctx, groupID, successor); err != nil {
			return err
		}
		group, _ = m.GroupByID(groupID)
	}

	members := exclude(group.Members, []string{me})
	admins := exclude(group.Admins, []string{me})
	_, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		Members:   &members,
		Admins:    &admins,
		UpdatedAt: m.now().UTC(),
	})
	if err = ensureRemote(err, "leave group"); err != nil {
		m.log.Error("failed to leave group", zap.String("group_id", groupID), zap.Error(err))
		return err
	}

	m.dropCached(groupID)
	m.bus.Publish(events.Event{Type: events.GroupLeft, Payload: groupID})
	m.log.Info("left group", zap.String("group_id", groupID), zap.String("user_id", me))
	return nil
}

// DeleteGroup soft-deletes the group. Creator-only.
func (m *GroupManager) DeleteGroup(ctx context.Context, groupID string) error {
	me := m.identity.CurrentUser().ID

	group, ok := m.GroupByID(groupID)
	if !ok {
		return apperrors.NotFound("group %s", groupID)
	}
	if group.CreatedBy != me {
		return apperrors.Permission("only the group creator may delete it")
	}
	return m.softDelete(ctx, groupID, me)
}

func (m *GroupManager) softDelete(ctx context.Context, groupID, actor string) error {
	deleted := true
	now := m.now().UTC()
	_, err := m.store.Patch(ctx, groupID, repositories.GroupPatch{
		IsDeleted: &deleted,
		DeletedBy: &actor,
		DeletedAt: &now,
		UpdatedAt: now,
	})
	if err = ensureRemote(err, "delete group"); err != nil {
		m.log.Error("failed to delete group", zap.String("group_id", groupID), zap.Error(err))
		return err
	}

	m.dropCached(groupID)
	m.bus.Publish(events.Event{Type: events.GroupDeleted, Payload: groupID})
	m.log.Info("group deleted", zap.String("group_id", groupID), zap.String("deleted_by", actor))
	return nil
}

// GroupByID returns a copy of the cached group.
func (m *GroupManager) GroupByID(groupID string) (models.Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.groups {
		if m.groups[i].ID == groupID {
			return copyGroup(m.groups[i]), true
		}
	}
	return models.Group{}, false
}

// IsAdmin reports whether userID administers the cached group.
func (m *GroupManager) IsAdmin(groupID, userID string) bool {
	g, ok := m.GroupByID(groupID)
	return ok && g.HasAdmin(userID)
}

// IsMember reports whether userID belongs to the cached group.
func (m *GroupManager) IsMember(groupID, userID string) bool {
	g, ok := m.GroupByID(groupID)
	return ok && g.HasMember(userID)
}

// CanAddMembers applies the group's add-member policy to userID.
func (m *GroupManager) CanAddMembers(groupID, userID string) bool {
	g, ok := m.GroupByID(groupID)
	if !ok {
		return false
	}
	if g.Settings.OnlyAdminsCanAddMembers {
		return g.HasAdmin(userID)
	}
	return g.HasMember(userID)
}

// CanSendMessage applies the group's messaging policy to userID.
func (m *GroupManager) CanSendMessage(groupID, userID string) bool {
	g, ok := m.GroupByID(groupID)
	if !ok {
		return false
	}
	if g.Settings.OnlyAdminsCanMessage {
		return g.HasAdmin(userID)
	}
	return g.HasMember(userID)
}

// UserGroups returns copies of all cached groups.
func (m *GroupManager) UserGroups() []models.Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Group, 0, len(m.groups))
	for i := range m.groups {
		out = append(out, copyGroup(m.groups[i]))
	}
	return out
}

// AdminGroups returns copies of the cached groups the current user
// administers.
func (m *GroupManager) AdminGroups() []models.Group {
	me := m.identity.CurrentUser().ID
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Group
	for i := range m.groups {
		if m.groups[i].HasAdmin(me) {
			out = append(out, copyGroup(m.groups[i]))
		}
	}
	return out
}

// GroupIDs returns the IDs of all cached groups.
func (m *GroupManager) GroupIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.groups))
	for i := range m.groups {
		ids = append(ids, m.groups[i].ID)
	}
	return ids
}

func (m *GroupManager) replaceCached(updated *models.Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.groups {
		if m.groups[i].ID == updated.ID {
			m.groups[i] = copyGroup(*updated)
			return
		}
	}
}

func (m *GroupManager) dropCached(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.groups {
		if m.groups[i].ID == groupID {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			return
		}
	}
}

func copyGroup(g models.Group) models.Group {
	g.Members = append([]string{}, g.Members...)
	g.Admins = append([]string{}, g.Admins...)
	return g
}

func dedupExcluding(ids []string, excluded string) []string {
	seen := map[string]struct{}{excluded: {}}
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func exclude(ids []string, removed []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
