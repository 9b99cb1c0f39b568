package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mushycosmas/kariakooshop/internal/core"
	"github.com/mushycosmas/kariakooshop/internal/store"
)

// ChatHandlers provides HTTP handlers for the chat endpoints. Writes go
// through the store first and only then fan out via the hub, so sockets
// never see a message that is missing from the history.
type ChatHandlers struct {
	store store.Store
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, hub *core.Hub, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// SendMessageRequest opens (or continues) a conversation about a listing.
type SendMessageRequest struct {
	ListingID int64  `json:"listing_id" binding:"required"`
	Text      string `json:"text" binding:"required,max=4000"`
}

// PostMessageRequest appends a message to an existing conversation.
type PostMessageRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	Text           string `json:"text" binding:"required,max=4000"`
}

// MessageResponse represents a stored message in API responses.
type MessageResponse struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Role           string `json:"role"`
	Text           string `json:"text"`
	SentAt         string `json:"sent_at"`
}

// SendMessageResponse is returned by the first-contact endpoint.
type SendMessageResponse struct {
	ConversationID int64           `json:"conversation_id"`
	Message        MessageResponse `json:"message"`
}

// ConversationResponse represents an inbox entry.
type ConversationResponse struct {
	ID           int64  `json:"id"`
	ListingID    int64  `json:"listing_id"`
	ListingName  string `json:"listing_name"`
	ListingBrand string `json:"listing_brand"`
	ListingPrice string `json:"listing_price"`
	ListingImage string `json:"listing_image,omitempty"`
	BuyerID      int64  `json:"buyer_id"`
	BuyerName    string `json:"buyer_name"`
	BuyerAvatar  string `json:"buyer_avatar,omitempty"`
	SellerID     int64  `json:"seller_id"`
	SellerName   string `json:"seller_name"`
	SellerAvatar string `json:"seller_avatar,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// SendMessage handles first contact about a listing: it resolves the
// seller, finds or creates the conversation, persists the message, and
// fans it out to any open sockets.
// POST /api/chat/send-message
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send-message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	listing, err := h.store.GetListingByID(c.Request.Context(), req.ListingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
			return
		}
		h.log.Error().Err(err).Int64("listing_id", req.ListingID).Msg("failed to load listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if listing.SellerID == uid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot start a conversation on your own listing"})
		return
	}

	conv, err := h.store.FindOrCreateConversation(c.Request.Context(), listing.ID, uid, listing.SellerID)
	if err != nil {
		h.log.Error().Err(err).Int64("listing_id", listing.ID).Msg("failed to find or create conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg, status, appendErr := h.appendAndBroadcast(c, conv, uid, req.Text)
	if appendErr != nil {
		c.JSON(status, ErrorResponse{Error: appendErr.Error()})
		return
	}

	h.log.Info().
		Int64("conversation_id", conv.ID).
		Int64("listing_id", listing.ID).
		Int64("buyer_id", uid).
		Msg("conversation message sent")
	c.JSON(http.StatusCreated, SendMessageResponse{
		ConversationID: conv.ID,
		Message:        toMessageResponse(msg),
	})
}

// PostMessage handles the durable write into an existing conversation.
// POST /api/chat/messages
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post-message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	conv, status, convErr := h.loadConversationFor(c, req.ConversationID, uid)
	if convErr != nil {
		c.JSON(status, ErrorResponse{Error: convErr.Error()})
		return
	}

	msg, status, appendErr := h.appendAndBroadcast(c, conv, uid, req.Text)
	if appendErr != nil {
		c.JSON(status, ErrorResponse{Error: appendErr.Error()})
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// GetMessages returns the ordered history of a conversation.
// GET /api/chat/messages?conversation_id=&limit=&before_id=
func (h *ChatHandlers) GetMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conversationID, err := strconv.ParseInt(c.Query("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid conversation_id"})
		return
	}

	conv, status, convErr := h.loadConversationFor(c, conversationID, uid)
	if convErr != nil {
		c.JSON(status, ErrorResponse{Error: convErr.Error()})
		return
	}

	// Full history by default; limit/before_id are the pagination escape
	// hatch for long conversations.
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
	}
	var beforeID *int64
	if raw := c.Query("before_id"); raw != "" {
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before_id"})
			return
		}
		beforeID = &id
	}

	messages, err := h.store.ListMessages(c.Request.Context(), conv.ID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, toMessageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}

// ListConversations returns the caller's inbox, newest activity first.
// GET /api/chat/conversations
func (h *ChatHandlers) ListConversations(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	views, err := h.store.ListConversationsForUser(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(views))
	for _, v := range views {
		response = append(response, ConversationResponse{
			ID:           v.ID,
			ListingID:    v.ListingID,
			ListingName:  v.ListingName,
			ListingBrand: v.ListingBrand,
			ListingPrice: v.ListingPrice,
			ListingImage: v.ListingImage,
			BuyerID:      v.BuyerID,
			BuyerName:    v.BuyerName,
			BuyerAvatar:  v.BuyerAvatar,
			SellerID:     v.SellerID,
			SellerName:   v.SellerName,
			SellerAvatar: v.SellerAvatar,
			UpdatedAt:    v.UpdatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// loadConversationFor fetches a conversation and verifies the caller is a
// participant. Returns the HTTP status to use on error.
func (h *ChatHandlers) loadConversationFor(c *gin.Context, conversationID, uid int64) (*store.Conversation, int, error) {
	conv, err := h.store.GetConversationByID(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, http.StatusNotFound, errors.New("conversation not found")
		}
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to load conversation")
		return nil, http.StatusInternalServerError, errors.New("internal server error")
	}
	if _, ok := conv.RoleOf(uid); !ok {
		return nil, http.StatusForbidden, errors.New("not a conversation participant")
	}
	return conv, 0, nil
}

// appendAndBroadcast persists a message with server-assigned role and
// timestamp, then fans it out. Broadcast never happens on a failed write.
func (h *ChatHandlers) appendAndBroadcast(c *gin.Context, conv *store.Conversation, uid int64, text string) (*store.Message, int, error) {
	role, ok := conv.RoleOf(uid)
	if !ok {
		return nil, http.StatusForbidden, errors.New("not a conversation participant")
	}

	msg := &store.Message{
		ConversationID: conv.ID,
		SenderID:       uid,
		SenderRole:     role,
		Body:           text,
		SentAt:         time.Now().UTC(),
	}
	if err := h.store.AppendMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("failed to append message")
		return nil, http.StatusInternalServerError, errors.New("failed to save message")
	}

	h.hub.BroadcastMessage(core.Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     c.GetString(ContextKeyDisplayName),
		SenderRole:     string(msg.SenderRole),
		Text:           msg.Body,
		SentAt:         msg.SentAt,
	})

	return msg, 0, nil
}

func toMessageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Role:           string(msg.SenderRole),
		Text:           msg.Body,
		SentAt:         msg.SentAt.Format(time.RFC3339Nano),
	}
}
