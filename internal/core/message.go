package core

import "time"

// Message is the domain model for a chat message as seen by the router.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderName     string
	SenderRole     string
	Text           string
	SentAt         time.Time
}
