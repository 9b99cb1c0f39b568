package core

import (
	"context"
	"errors"
	"time"

	"github.com/mushycosmas/kariakooshop/internal/store"
)

// Hub is the room registry and message router. All membership state is
// owned by the Run goroutine; the only suspension points are store calls.
//
// The hub persists a message before fanning it out: a broadcast is never
// emitted for a message the store rejected, and room members never see a
// live message that will be missing from the history on reload.
type Hub struct {
	chat store.ChatStore // optional; nil makes the hub a pure relay

	register   chan *Client
	unregister chan *Client
	inbox      chan clientCommand
	broadcasts chan *Event

	rooms   map[int64]*Room
	members map[*Client]map[int64]struct{}
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// NewHub creates a new chat hub. chat may be nil, in which case messages
// are relayed without persistence or participant checks (used in tests).
func NewHub(chat store.ChatStore) *Hub {
	return &Hub{
		chat:       chat,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan clientCommand),
		broadcasts: make(chan *Event, 16),
		rooms:      make(map[int64]*Room),
		members:    make(map[*Client]map[int64]struct{}),
	}
}

// RegisterClient attaches a client to the hub and starts pumping its
// commands into the hub loop until the client disconnects.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c

	go func() {
		for {
			select {
			case cmd := <-c.Commands:
				select {
				case h.inbox <- clientCommand{client: c, cmd: cmd}:
				case <-c.Done():
					return
				}
			case <-c.Done():
				return
			}
		}
	}()
}

// UnregisterClient detaches a disconnected client and removes it from
// every room it joined.
func (h *Hub) UnregisterClient(c *Client) {
	c.Close()
	h.unregister <- c
}

// BroadcastMessage fans out an already-persisted message to the members
// of its conversation room. Used by the HTTP write path so messages sent
// over REST still reach open sockets.
func (h *Hub) BroadcastMessage(msg Message) {
	h.broadcasts <- &Event{
		Kind:           EventMessage,
		ConversationID: msg.ConversationID,
		User:           msg.SenderName,
		Message:        msg,
	}
}

// Run processes hub traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.members[c] = make(map[int64]struct{})
		case c := <-h.unregister:
			h.disconnect(c)
		case cc := <-h.inbox:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case ev := <-h.broadcasts:
			if room, ok := h.rooms[ev.ConversationID]; ok {
				room.Broadcast(ev)
			}
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinConversation:
		h.handleJoin(ctx, c, cmd.ConversationID)
	case CommandLeaveConversation:
		h.handleLeave(c, cmd.ConversationID)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	default:
		h.sendError(c, ErrCodeBadRequest, "unknown command")
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, conversationID int64) {
	if _, joined := h.members[c][conversationID]; joined {
		// Joining twice has no additional effect.
		return
	}

	var history []Message
	if h.chat != nil {
		conv, err := h.chat.GetConversationByID(ctx, conversationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.sendError(c, ErrCodeConversationNotFound, "conversation not found")
			} else {
				h.sendError(c, ErrCodeMessageRejected, "storage unavailable")
			}
			return
		}
		if _, ok := conv.RoleOf(c.UserID); !ok {
			h.sendError(c, ErrCodeNotParticipant, "not a conversation participant")
			return
		}

		stored, err := h.chat.ListMessages(ctx, conversationID, 0, nil)
		if err != nil {
			h.sendError(c, ErrCodeMessageRejected, "failed to load history")
			return
		}
		history = make([]Message, 0, len(stored))
		for _, m := range stored {
			history = append(history, fromStoreMessage(m))
		}
	}

	room, ok := h.rooms[conversationID]
	if !ok {
		room = NewRoom(conversationID)
		h.rooms[conversationID] = room
	}
	room.AddClient(c)
	if h.members[c] == nil {
		h.members[c] = make(map[int64]struct{})
	}
	h.members[c][conversationID] = struct{}{}

	room.Broadcast(&Event{
		Kind:           EventUserJoined,
		ConversationID: conversationID,
		User:           c.Name,
	})

	h.sendEvent(c, &Event{
		Kind:           EventHistory,
		ConversationID: conversationID,
		Messages:       history,
	})
}

func (h *Hub) handleLeave(c *Client, conversationID int64) {
	room, ok := h.rooms[conversationID]
	if !ok || !room.Contains(c) {
		// Leaving a room the client never joined is a no-op.
		return
	}

	room.RemoveClient(c)
	delete(h.members[c], conversationID)
	if room.Empty() {
		delete(h.rooms, conversationID)
		return
	}

	room.Broadcast(&Event{
		Kind:           EventUserLeft,
		ConversationID: conversationID,
		User:           c.Name,
	})
}

func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Text == "" {
		h.sendError(c, ErrCodeBadRequest, "text is required")
		return
	}

	room, ok := h.rooms[cmd.ConversationID]
	if !ok || !room.Contains(c) {
		h.sendError(c, ErrCodeNotInConversation, "join the conversation first")
		return
	}

	msg := Message{
		ConversationID: cmd.ConversationID,
		SenderID:       c.UserID,
		SenderName:     c.Name,
		Text:           cmd.Text,
		SentAt:         time.Now().UTC(),
	}

	if h.chat != nil {
		conv, err := h.chat.GetConversationByID(ctx, cmd.ConversationID)
		if err != nil {
			h.sendError(c, ErrCodeConversationNotFound, "conversation not found")
			return
		}
		role, ok := conv.RoleOf(c.UserID)
		if !ok {
			h.sendError(c, ErrCodeNotParticipant, "not a conversation participant")
			return
		}
		msg.SenderRole = string(role)

		stored := &store.Message{
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			SenderRole:     role,
			Body:           msg.Text,
			SentAt:         msg.SentAt,
		}
		if err := h.chat.AppendMessage(ctx, stored); err != nil {
			h.sendError(c, ErrCodeMessageRejected, "failed to save message")
			return
		}
		msg.ID = stored.ID
	}

	room.Broadcast(&Event{
		Kind:           EventMessage,
		ConversationID: msg.ConversationID,
		User:           c.Name,
		Message:        msg,
	})
}

func (h *Hub) disconnect(c *Client) {
	for conversationID := range h.members[c] {
		if room, ok := h.rooms[conversationID]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, conversationID)
				continue
			}
			room.Broadcast(&Event{
				Kind:           EventUserLeft,
				ConversationID: conversationID,
				User:           c.Name,
			})
		}
	}
	delete(h.members, c)
}

func (h *Hub) sendError(c *Client, code, msg string) {
	h.sendEvent(c, &Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) sendEvent(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
	}
}

func fromStoreMessage(m *store.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderRole:     string(m.SenderRole),
		Text:           m.Body,
		SentAt:         m.SentAt,
	}
}
