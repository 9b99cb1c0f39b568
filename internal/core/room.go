package core

// Room groups the clients currently viewing the same conversation.
type Room struct {
	ConversationID int64
	clients        map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(conversationID int64) *Room {
	return &Room{
		ConversationID: conversationID,
		clients:        make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Contains reports whether the client is in the room.
func (r *Room) Contains(c *Client) bool {
	_, exists := r.clients[c]
	return exists
}

// Broadcast sends an event to all clients in the room, the sender included.
func (r *Room) Broadcast(event *Event) {
	for client := range r.clients {
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer; the store is the source of truth.
		}
	}
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
