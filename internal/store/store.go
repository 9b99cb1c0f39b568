package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User represents a marketplace account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	CreatedAt    time.Time
}

// Listing is the slice of an ad the chat layer needs: who sells it and
// how to present it in the inbox.
type Listing struct {
	ID        int64
	SellerID  int64
	Name      string
	Brand     string
	Price     string
	ImagePath string
	CreatedAt time.Time
}

// Role identifies which side of a conversation a sender is on.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Conversation is the durable buyer-seller thread about one listing.
// At most one conversation exists per (listing, buyer, seller) triple.
type Conversation struct {
	ID        int64
	ListingID int64
	BuyerID   int64
	SellerID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleOf reports whether userID is the buyer or seller of the conversation.
// ok is false when the user is not a participant.
func (c *Conversation) RoleOf(userID int64) (Role, bool) {
	switch userID {
	case c.BuyerID:
		return RoleBuyer, true
	case c.SellerID:
		return RoleSeller, true
	default:
		return "", false
	}
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderRole     Role
	Body           string
	SentAt         time.Time
}

// ConversationView is a conversation annotated with the denormalized
// listing and participant data the inbox renders.
type ConversationView struct {
	Conversation
	ListingName  string
	ListingBrand string
	ListingPrice string
	ListingImage string
	BuyerName    string
	BuyerAvatar  string
	SellerName   string
	SellerAvatar string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash, displayName string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ListingStore handles listing persistence.
type ListingStore interface {
	// CreateListing inserts a listing and sets its ID.
	CreateListing(ctx context.Context, listing *Listing) error

	// GetListingByID retrieves a listing by ID.
	GetListingByID(ctx context.Context, id int64) (*Listing, error)
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// FindOrCreateConversation returns the conversation for the
	// (listing, buyer, seller) triple, creating it if absent. Safe under
	// concurrent first contact: two racing calls yield the same row.
	FindOrCreateConversation(ctx context.Context, listingID, buyerID, sellerID int64) (*Conversation, error)

	// GetConversationByID retrieves a conversation by ID.
	GetConversationByID(ctx context.Context, id int64) (*Conversation, error)

	// ListConversationsForUser lists conversations where the user is buyer
	// or seller, newest activity first, with inbox annotations.
	ListConversationsForUser(ctx context.Context, userID int64) ([]*ConversationView, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message, sets its ID, and bumps the owning
	// conversation's updated_at. It does not broadcast.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages for a conversation in ascending
	// sent_at order. limit <= 0 returns the full history; beforeID, when
	// set, returns only messages older than that ID.
	ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*Message, error)
}

// ChatStore is the persistence gateway the chat core depends on.
type ChatStore interface {
	ConversationStore
	MessageStore
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ListingStore
	ChatStore

	// Close closes the underlying database connection.
	Close() error
}
