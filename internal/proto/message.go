package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin  = "join"
	InboundTypeLeave = "leave"
	InboundTypeSend  = "send"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage    = "message"
	EventNameHistory    = "history"
	EventNameUserJoined = "user_joined"
	EventNameUserLeft   = "user_left"
)

// JoinData subscribes the client to a conversation room. Leave uses the
// same shape.
type JoinData struct {
	ConversationID int64 `json:"conversation_id"`
}

// SendData is a chat message from the client. Sender identity, role and
// timestamp are assigned server-side from the authenticated session.
type SendData struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries one chat message to room members.
type EventMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Sender         string `json:"sender"`
	Role           string `json:"role"`
	Text           string `json:"text"`
	SentAt         int64  `json:"sent_at"`
}

// EventHistory delivers stored messages on room entry, oldest first.
type EventHistory struct {
	ConversationID int64          `json:"conversation_id"`
	Messages       []EventMessage `json:"messages"`
}

// EventUserJoined notifies that a user joined a conversation room.
type EventUserJoined struct {
	ConversationID int64  `json:"conversation_id"`
	User           string `json:"user"`
}

// EventUserLeft notifies that a user left a conversation room.
type EventUserLeft struct {
	ConversationID int64  `json:"conversation_id"`
	User           string `json:"user"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
