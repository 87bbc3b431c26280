package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/storage"
)

type AttachmentHandler struct {
	db     *database.Database
	router *delivery.Router
	store  *storage.LocalStore
	log    *zap.Logger
}

func NewAttachmentHandler(db *database.Database, router *delivery.Router, store *storage.LocalStore, log *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{db: db, router: router, store: store, log: log}
}

// Upload stores a multipart file and sends it as a direct message to
// receiver_id. The optional "message" field becomes the body.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	receiverID, err := strconv.ParseUint(c.PostForm("receiver_id"), 10, 64)
	if err != nil || receiverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver_id"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > h.store.MaxBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file too large (max " + humanize.IBytes(uint64(h.store.MaxBytes())) + ")",
		})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer src.Close()

	stored, err := h.store.Save(header.Filename, src)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	msg, err := h.router.SendDirectWithAttachment(c.Request.Context(), delivery.DirectEvent{
		SenderID:   delivery.ID(userID),
		ReceiverID: delivery.ID(receiverID),
		Body:       c.PostForm("message"),
	}, stored)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(msg))
}

func (h *AttachmentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := h.db.GetMessage(ctx, messageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.router.CanAccess(ctx, middleware.CurrentUserID(c), msg); err != nil {
		respondError(c, h.log, err)
		return
	}

	attachments, err := h.db.MessageAttachments(ctx, messageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	result := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		result = append(result, dto.NewAttachmentResponse(a))
	}

	c.JSON(http.StatusOK, gin.H{"attachments": result})
}

// Download streams a stored file under its original name to a participant of
// the message it belongs to.
func (h *AttachmentHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	attachment, err := h.db.AttachmentByStoredName(ctx, name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	msg, err := h.db.GetMessage(ctx, attachment.MessageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.router.CanAccess(ctx, middleware.CurrentUserID(c), msg); err != nil {
		respondError(c, h.log, err)
		return
	}

	f, err := h.store.Open(attachment.StoredName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.log.Error("attachment_stat_failed", zap.String("stored_name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": attachment.OriginalName})
	c.DataFromReader(http.StatusOK, info.Size(), attachment.MimeType, f, map[string]string{
		"Content-Disposition": disposition,
	})
}
