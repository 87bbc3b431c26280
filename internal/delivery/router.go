// Package delivery routes live-channel events: it persists what must be
// stored, resolves the target connections and pushes the result to them.
package delivery

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/config"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/metrics"
	"github.com/thereayou/voxus-chat/internal/models"
	"github.com/thereayou/voxus-chat/internal/storage"
	ws "github.com/thereayou/voxus-chat/internal/websocket"
)

// DefaultAttachmentBody is stored when a file is sent without text.
const DefaultAttachmentBody = "Sent a file"

type ConversationStore interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
	UpdateLastSeen(ctx context.Context, id uint64) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint64) (*models.Message, error)
	DeleteMessage(ctx context.Context, id, requester uint64) ([]models.Attachment, error)
	AttachFile(ctx context.Context, attachment *models.Attachment) error
}

type MembershipOracle interface {
	IsMember(ctx context.Context, groupID, userID uint64) (bool, error)
	GroupExists(ctx context.Context, groupID uint64) (bool, error)
	MembersOf(ctx context.Context, groupID uint64) ([]uint64, error)
}

type ReactionLedger interface {
	ToggleReaction(ctx context.Context, messageID, userID uint64, reactionType models.ReactionType) (bool, error)
	ReactionSummary(ctx context.Context, messageIDs []uint64) (map[uint64][]models.ReactionCount, error)
	UserReactions(ctx context.Context, userID uint64, messageIDs []uint64) (map[uint64][]models.ReactionType, error)
}

// Store is everything the router needs from persistence. *database.Database
// satisfies it.
type Store interface {
	ConversationStore
	MembershipOracle
	ReactionLedger
}

// FileRemover deletes an uploaded file by its stored name.
type FileRemover interface {
	Remove(name string) error
}

type Router struct {
	store    Store
	hub      *ws.Hub
	files    FileRemover
	receipts config.ReadReceiptMode
	log      *zap.Logger
}

func NewRouter(store Store, hub *ws.Hub, files FileRemover, receipts config.ReadReceiptMode, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if receipts == "" {
		receipts = config.ReadReceiptTargeted
	}
	return &Router{store: store, hub: hub, files: files, receipts: receipts, log: log}
}

// HandleMessage is the live-channel entry point. Errors it returns are safe
// to show to the connection that sent the event.
func (r *Router) HandleMessage(c *ws.Client, msg *ws.Message) (err error) {
	log := r.log.With(zap.String("conn_id", c.ID.String()), zap.String("event", string(msg.Type)))
	defer func() {
		if p := recover(); p != nil {
			log.Error("event_handler_panic", zap.Any("panic", p), zap.Stack("stack"))
			metrics.EventsRejected.WithLabelValues("panic").Inc()
			err = errors.New("internal error")
		}
	}()
	metrics.EventsReceived.WithLabelValues(eventLabel(msg.Type)).Inc()

	ctx := context.Background()

	if msg.Type == ws.TypeAuth {
		return r.fail(log, r.authenticate(ctx, c, msg))
	}

	identity, ok := r.hub.Identity(c)
	if !ok || c.State() != ws.StateAuthenticated {
		metrics.EventsRejected.WithLabelValues("unauthenticated").Inc()
		log.Warn("event_before_auth_dropped")
		return ws.ErrUnauthorized
	}

	switch msg.Type {
	case ws.TypeMessage:
		var ev DirectEvent
		if err = decode(msg.Data, &ev); err == nil {
			if err = sameUser(identity, ev.SenderID); err == nil {
				_, err = r.SendDirect(ctx, ev)
			}
		}

	case ws.TypeGroupMessage:
		var ev GroupEvent
		if err = decode(msg.Data, &ev); err == nil {
			if err = sameUser(identity, ev.SenderID); err == nil {
				_, err = r.SendGroup(ctx, ev)
			}
		}

	case ws.TypeTyping:
		var ev TypingEvent
		if err = decode(msg.Data, &ev); err == nil {
			if err = sameUser(identity, ev.SenderID); err == nil {
				err = r.Typing(ev)
			}
		}

	case ws.TypeRead:
		var ev ReadEvent
		if err = decode(msg.Data, &ev); err == nil {
			if err = sameUser(identity, ev.SenderID); err == nil {
				err = r.Read(ev)
			}
		}

	case ws.TypeReaction:
		var ev ReactionEvent
		if err = decode(msg.Data, &ev); err == nil {
			err = ev.Validate()
		}
		if err == nil {
			var result *ReactionResult
			result, err = r.ToggleReaction(ctx, identity.UserID, uint64(ev.MessageID), ev.ReactionType)
			if err == nil {
				// the caller gets the new state; fan-out to others belongs to the boundary
				_ = c.SendMessage(ws.TypeReaction, result.Update)
			}
		}

	default:
		err = apperr.Validation("unknown event type %q", msg.Type)
	}

	return r.fail(log, err)
}

func eventLabel(t ws.MessageType) string {
	switch t {
	case ws.TypeAuth, ws.TypeMessage, ws.TypeGroupMessage, ws.TypeTyping, ws.TypeRead, ws.TypeReaction:
		return string(t)
	default:
		return "unknown"
	}
}

func sameUser(identity ws.Identity, sender ID) error {
	if sender != 0 && uint64(sender) != identity.UserID {
		return apperr.Authorization("sender_id does not match the authenticated user")
	}
	return nil
}

// fail logs and counts a rejected event and turns the error into something
// that can be sent back over the socket.
func (r *Router) fail(log *zap.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrValidation):
		metrics.EventsRejected.WithLabelValues("invalid").Inc()
		log.Warn("event_rejected", zap.Error(err))
		return err
	case errors.Is(err, apperr.ErrAuthorization):
		metrics.EventsRejected.WithLabelValues("forbidden").Inc()
		log.Warn("event_rejected", zap.Error(err))
		return err
	case errors.Is(err, apperr.ErrNotFound):
		metrics.EventsRejected.WithLabelValues("not_found").Inc()
		log.Warn("event_rejected", zap.Error(err))
		return err
	default:
		metrics.EventsRejected.WithLabelValues("persistence").Inc()
		log.Error("event_failed", zap.Error(err))
		return apperr.ErrPersistence
	}
}

func (r *Router) authenticate(ctx context.Context, c *ws.Client, msg *ws.Message) error {
	var ev AuthEvent
	if err := decode(msg.Data, &ev); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if uint64(ev.UserID) != c.UserID {
		return apperr.Authorization("auth user_id does not match the session")
	}

	user, err := r.store.GetUser(ctx, c.UserID)
	if err != nil {
		return err
	}

	displaced := r.hub.Register(c, user.ID, user.Username)
	if displaced != nil {
		displaced.SendError("signed in from another connection, authenticate again")
	}

	if err := r.store.UpdateLastSeen(ctx, user.ID); err != nil {
		r.log.Warn("update_last_seen_failed", zap.Uint64("user_id", user.ID), zap.Error(err))
	}

	return c.SendMessage(ws.TypeAuthSuccess, dto.AuthSuccess{UserID: user.ID, Username: user.Username})
}

// push delivers one frame to every live connection of userID and reports how
// many accepted it. An offline user is not an error.
func (r *Router) push(userID uint64, msgType ws.MessageType, payload interface{}) int {
	conns := r.hub.FindConnectionsForUser(userID)
	if len(conns) == 0 {
		metrics.DeliveriesSkipped.WithLabelValues("offline").Inc()
		r.log.Debug("target_offline", zap.Uint64("user_id", userID), zap.String("event", string(msgType)))
		return 0
	}

	delivered := 0
	for _, c := range conns {
		if err := c.SendMessage(msgType, payload); err != nil {
			r.log.Debug("push_skipped",
				zap.String("conn_id", c.ID.String()),
				zap.Uint64("user_id", userID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// SendDirect stores a direct message, unless it is already stored, and pushes
// it to the receiver. The sender always gets a pending read acknowledgment.
func (r *Router) SendDirect(ctx context.Context, ev DirectEvent) (*models.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	var (
		msg *models.Message
		err error
	)
	if ev.MessageID != 0 {
		msg, err = r.storedDirect(ctx, ev)
	} else {
		msg, err = r.saveDirect(ctx, ev)
	}
	if err != nil {
		return nil, err
	}

	r.dispatchDirect(msg)
	return msg, nil
}

func (r *Router) storedDirect(ctx context.Context, ev DirectEvent) (*models.Message, error) {
	msg, err := r.store.GetMessage(ctx, uint64(ev.MessageID))
	if err != nil {
		return nil, err
	}
	if msg.Kind != models.KindDirect || msg.SenderID != uint64(ev.SenderID) ||
		msg.ReceiverID == nil || *msg.ReceiverID != uint64(ev.ReceiverID) {
		return nil, apperr.Authorization("message %d does not belong to this conversation", ev.MessageID)
	}
	return msg, nil
}

func (r *Router) saveDirect(ctx context.Context, ev DirectEvent) (*models.Message, error) {
	sender, err := r.store.GetUser(ctx, uint64(ev.SenderID))
	if err != nil {
		return nil, err
	}
	if _, err := r.store.GetUser(ctx, uint64(ev.ReceiverID)); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("receiver")
		}
		return nil, err
	}

	receiverID := uint64(ev.ReceiverID)
	msg := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: &receiverID,
		Body:       ev.Body,
		Kind:       models.KindDirect,
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	msg.Sender = *sender
	return msg, nil
}

func (r *Router) dispatchDirect(msg *models.Message) {
	receiverID := *msg.ReceiverID
	delivered := r.push(receiverID, ws.TypeMessage, dto.NewMessageResponse(msg))

	r.push(msg.SenderID, ws.TypeRead, dto.ReadReceipt{
		ReceiverID: receiverID,
		MessageID:  msg.ID,
		Pending:    true,
	})

	r.log.Debug("direct_message_dispatched",
		zap.Uint64("message_id", msg.ID),
		zap.Uint64("sender_id", msg.SenderID),
		zap.Uint64("receiver_id", receiverID),
		zap.Int("delivered", delivered))
}

// SendDirectWithAttachment stores a direct message and links an uploaded file
// to it. If either write fails, whatever was already written is undone and the
// file is removed.
func (r *Router) SendDirectWithAttachment(ctx context.Context, ev DirectEvent, file *storage.StoredFile) (*models.Message, error) {
	discard := func() {
		if err := r.files.Remove(file.StoredName); err != nil {
			r.log.Error("upload_cleanup_failed", zap.String("stored_name", file.StoredName), zap.Error(err))
		}
	}

	ev.MessageID = 0
	if ev.Body == "" {
		ev.Body = DefaultAttachmentBody
	}
	if err := ev.Validate(); err != nil {
		discard()
		return nil, err
	}

	msg, err := r.saveDirect(ctx, ev)
	if err != nil {
		discard()
		return nil, err
	}

	attachment := models.Attachment{
		MessageID:    msg.ID,
		StoredName:   file.StoredName,
		OriginalName: file.OriginalName,
		Path:         file.Path,
		Size:         file.Size,
		MimeType:     file.MimeType,
	}
	if err := r.store.AttachFile(ctx, &attachment); err != nil {
		if _, derr := r.store.DeleteMessage(ctx, msg.ID, msg.SenderID); derr != nil {
			r.log.Error("attachment_rollback_failed", zap.Uint64("message_id", msg.ID), zap.Error(derr))
		}
		discard()
		return nil, err
	}

	msg.Attachments = []models.Attachment{attachment}
	r.dispatchDirect(msg)
	return msg, nil
}

// SendGroup stores a group message and pushes it to every member with a live
// connection except the sender.
func (r *Router) SendGroup(ctx context.Context, ev GroupEvent) (*models.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	groupID := uint64(ev.GroupID)
	senderID := uint64(ev.SenderID)

	if err := r.RequireMember(ctx, groupID, senderID); err != nil {
		return nil, err
	}

	var (
		msg *models.Message
		err error
	)
	if ev.MessageID != 0 {
		msg, err = r.store.GetMessage(ctx, uint64(ev.MessageID))
		if err != nil {
			return nil, err
		}
		if msg.Kind != models.KindGroup || msg.SenderID != senderID || msg.GroupID == nil || *msg.GroupID != groupID {
			return nil, apperr.Authorization("message %d does not belong to group %d", ev.MessageID, groupID)
		}
	} else {
		sender, err := r.store.GetUser(ctx, senderID)
		if err != nil {
			return nil, err
		}
		msg = &models.Message{
			SenderID: senderID,
			GroupID:  &groupID,
			Body:     ev.Body,
			Kind:     models.KindGroup,
		}
		if err := r.store.SaveMessage(ctx, msg); err != nil {
			return nil, err
		}
		msg.Sender = *sender
	}

	// persisted; delivery below is best effort
	members, err := r.store.MembersOf(ctx, groupID)
	if err != nil {
		r.log.Error("group_members_lookup_failed", zap.Uint64("group_id", groupID), zap.Error(err))
		return msg, nil
	}

	payload := dto.NewMessageResponse(msg)
	delivered := 0
	for _, userID := range members {
		if userID == senderID {
			continue
		}
		delivered += r.push(userID, ws.TypeGroupMessage, payload)
	}

	r.log.Debug("group_message_dispatched",
		zap.Uint64("message_id", msg.ID),
		zap.Uint64("group_id", groupID),
		zap.Int("members", len(members)),
		zap.Int("delivered", delivered))
	return msg, nil
}

// Typing forwards the indicator to the receiver if online.
func (r *Router) Typing(ev TypingEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	r.push(uint64(ev.ReceiverID), ws.TypeTyping, dto.TypingEvent{
		SenderID:   uint64(ev.SenderID),
		ReceiverID: uint64(ev.ReceiverID),
		IsTyping:   ev.IsTyping,
	})
	return nil
}

// Read relays a read receipt. In targeted mode only the author of the read
// messages (ReceiverID) is told; in broadcast mode every other registered
// connection is.
func (r *Router) Read(ev ReadEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	receipt := dto.ReadReceipt{
		SenderID:   uint64(ev.SenderID),
		ReceiverID: uint64(ev.ReceiverID),
		MessageID:  uint64(ev.MessageID),
	}

	if r.receipts != config.ReadReceiptBroadcast {
		r.push(receipt.ReceiverID, ws.TypeRead, receipt)
		return nil
	}

	for _, c := range r.hub.Connections() {
		if c.UserID == receipt.SenderID {
			continue
		}
		if err := c.SendMessage(ws.TypeRead, receipt); err != nil {
			r.log.Debug("push_skipped", zap.String("conn_id", c.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// ReactionResult is the message's reaction state after a toggle.
type ReactionResult struct {
	Message       *models.Message
	Added         bool
	Reactions     []models.ReactionCount
	UserReactions []models.ReactionType
	Update        dto.ReactionUpdate
}

// ToggleReaction flips userID's reaction on a message the user can see and
// returns the recomputed summary. It does not push anything.
func (r *Router) ToggleReaction(ctx context.Context, userID, messageID uint64, reactionType models.ReactionType) (*ReactionResult, error) {
	if !reactionType.Valid() {
		return nil, apperr.Validation("invalid reaction type %q", reactionType)
	}

	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := r.CanAccess(ctx, userID, msg); err != nil {
		return nil, err
	}

	added, err := r.store.ToggleReaction(ctx, messageID, userID, reactionType)
	if err != nil {
		return nil, err
	}

	ids := []uint64{messageID}
	summary, err := r.store.ReactionSummary(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := r.store.UserReactions(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	reactions := summary[messageID]
	if reactions == nil {
		reactions = []models.ReactionCount{}
	}
	userReactions := mine[messageID]
	if userReactions == nil {
		userReactions = []models.ReactionType{}
	}

	return &ReactionResult{
		Message:       msg,
		Added:         added,
		Reactions:     reactions,
		UserReactions: userReactions,
		Update: dto.ReactionUpdate{
			MessageID:    messageID,
			UserID:       userID,
			ReactionType: reactionType,
			Glyph:        reactionType.Glyph(),
			Added:        added,
			Reactions:    reactions,
		},
	}, nil
}

// RequireMember returns nil for a member of the group, NotFound when the group
// does not exist and Authorization otherwise.
func (r *Router) RequireMember(ctx context.Context, groupID, userID uint64) error {
	member, err := r.store.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}

	exists, err := r.store.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("group")
	}
	return apperr.Authorization("not a member of group %d", groupID)
}

// CanAccess reports whether userID is a party to msg: sender or receiver of a
// direct message, or a member of the message's group.
func (r *Router) CanAccess(ctx context.Context, userID uint64, msg *models.Message) error {
	switch msg.Kind {
	case models.KindDirect:
		if msg.SenderID == userID || (msg.ReceiverID != nil && *msg.ReceiverID == userID) {
			return nil
		}
	case models.KindGroup:
		if msg.GroupID != nil {
			member, err := r.store.IsMember(ctx, *msg.GroupID, userID)
			if err != nil {
				return err
			}
			if member {
				return nil
			}
		}
	}
	return apperr.Authorization("no access to message %d", msg.ID)
}

// Participants lists the users who can see msg.
func (r *Router) Participants(ctx context.Context, msg *models.Message) ([]uint64, error) {
	if msg.Kind == models.KindGroup && msg.GroupID != nil {
		return r.store.MembersOf(ctx, *msg.GroupID)
	}
	users := []uint64{msg.SenderID}
	if msg.ReceiverID != nil && *msg.ReceiverID != msg.SenderID {
		users = append(users, *msg.ReceiverID)
	}
	return users, nil
}

// Notify pushes a frame to each listed user except skip. It is used by the
// HTTP boundary for events the router does not fan out itself.
func (r *Router) Notify(userIDs []uint64, skip uint64, msgType ws.MessageType, payload interface{}) int {
	delivered := 0
	for _, userID := range userIDs {
		if userID == skip {
			continue
		}
		delivered += r.push(userID, msgType, payload)
	}
	return delivered
}
