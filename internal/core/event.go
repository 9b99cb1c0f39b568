package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage notifies room members about a new chat message.
	EventMessage EventKind = iota
	// EventUserJoined notifies room members about a user joining.
	EventUserJoined
	// EventUserLeft notifies room members about a user leaving.
	EventUserLeft
	// EventHistory delivers message history to a client upon joining.
	EventHistory
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind           EventKind
	ConversationID int64
	User           string
	Message        Message
	Messages       []Message // For EventHistory
	Error          *CoreError
}
