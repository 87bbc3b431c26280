package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/storage"
)

type GroupHandler struct {
	db           *database.Database
	router       *delivery.Router
	files        *storage.LocalStore
	log          *zap.Logger
	historyLimit int
}

func NewGroupHandler(db *database.Database, router *delivery.Router, files *storage.LocalStore, historyLimit int, log *zap.Logger) *GroupHandler {
	return &GroupHandler{db: db, router: router, files: files, historyLimit: historyLimit, log: log}
}

func (h *GroupHandler) requireMember(c *gin.Context, groupID, userID uint64) bool {
	if err := h.router.RequireMember(c.Request.Context(), groupID, userID); err != nil {
		respondError(c, h.log, err)
		return false
	}
	return true
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.db.GroupsOf(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// AvailableGroups lists groups the caller has not joined.
func (h *GroupHandler) AvailableGroups(c *gin.Context) {
	groups, err := h.db.AvailableGroups(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	group, err := h.db.CreateGroup(ctx, req.Name, userID, req.MemberIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	summary, err := h.db.GetGroup(ctx, group.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("group_created", zap.Uint64("group_id", group.ID), zap.Uint64("creator_id", userID))
	c.JSON(http.StatusCreated, summary)
}

// GetGroup returns the group with its member list. Members only.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	group, err := h.db.GetGroup(ctx, groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !h.requireMember(c, groupID, userID) {
		return
	}
	members, err := h.db.GroupMembers(ctx, groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group, "members": members})
}

func (h *GroupHandler) RenameGroup(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.db.RenameGroup(c.Request.Context(), groupID, middleware.CurrentUserID(c), req.Name); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": groupID, "name": req.Name})
}

// DeleteGroup drops the group with its members and messages, then removes the
// files that were attached to those messages.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}

	removed, err := h.db.DeleteGroup(c.Request.Context(), groupID, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	for _, a := range removed {
		if err := h.files.Remove(a.StoredName); err != nil {
			h.log.Warn("attachment_file_remove_failed", zap.String("stored_name", a.StoredName), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": groupID})
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.db.AddMember(c.Request.Context(), groupID, middleware.CurrentUserID(c), req.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group_id": groupID, "user_id": req.UserID})
}

// RemoveMember lets the creator remove someone, or a member leave.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	if err := h.db.RemoveMember(c.Request.Context(), groupID, middleware.CurrentUserID(c), memberID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "user_id": memberID})
}

func (h *GroupHandler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", h.historyLimit)
	if !ok {
		return
	}
	before, ok := queryUint(c, "before")
	if !ok {
		return
	}
	if !h.requireMember(c, groupID, userID) {
		return
	}

	page, err := h.db.GroupPage(ctx, groupID, limit, before)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	views, err := messageViews(ctx, h.db, userID, page.Messages)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{Messages: views, HasMore: page.HasMore})
}

func (h *GroupHandler) SendMessage(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := h.router.SendGroup(c.Request.Context(), delivery.GroupEvent{
		SenderID:  delivery.ID(middleware.CurrentUserID(c)),
		GroupID:   delivery.ID(groupID),
		Body:      req.Body,
		MessageID: delivery.ID(req.MessageID),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(msg))
}
