package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mushycosmas/kariakooshop/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, displayName string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, display_name)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, displayName)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, COALESCE(avatar_url, ''), created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, COALESCE(avatar_url, ''), created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ListingStore implementation ====

// CreateListing inserts a listing and sets its ID.
func (s *SQLiteStore) CreateListing(ctx context.Context, listing *store.Listing) error {
	query := `
		INSERT INTO listings (seller_id, name, brand, price, image_path)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		listing.SellerID, listing.Name, listing.Brand, listing.Price, listing.ImagePath)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	listing.ID = id
	return nil
}

// GetListingByID retrieves a listing by ID.
func (s *SQLiteStore) GetListingByID(ctx context.Context, id int64) (*store.Listing, error) {
	query := `
		SELECT id, seller_id, name, brand, price, COALESCE(image_path, ''), created_at
		FROM listings
		WHERE id = ?
	`
	var listing store.Listing
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Name,
		&listing.Brand,
		&listing.Price,
		&listing.ImagePath,
		&listing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query listing: %w", err)
	}

	return &listing, nil
}

// ==== ConversationStore implementation ====

// FindOrCreateConversation returns the conversation for the triple,
// creating it if absent. INSERT OR IGNORE against the unique index makes
// concurrent first-contact sends converge on one row.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, listingID, buyerID, sellerID int64) (*store.Conversation, error) {
	insert := `
		INSERT OR IGNORE INTO conversations (listing_id, buyer_id, seller_id)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, insert, listingID, buyerID, sellerID); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	query := `
		SELECT id, listing_id, buyer_id, seller_id, created_at, updated_at
		FROM conversations
		WHERE listing_id = ? AND buyer_id = ? AND seller_id = ?
	`
	return s.scanConversation(s.db.QueryRowContext(ctx, query, listingID, buyerID, sellerID))
}

// GetConversationByID retrieves a conversation by ID.
func (s *SQLiteStore) GetConversationByID(ctx context.Context, id int64) (*store.Conversation, error) {
	query := `
		SELECT id, listing_id, buyer_id, seller_id, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`
	return s.scanConversation(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*store.Conversation, error) {
	var conv store.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.ListingID,
		&conv.BuyerID,
		&conv.SellerID,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	return &conv, nil
}

// ListConversationsForUser lists conversations where the user is buyer or
// seller, newest activity first, annotated for the inbox.
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID int64) ([]*store.ConversationView, error) {
	query := `
		SELECT
			c.id, c.listing_id, c.buyer_id, c.seller_id, c.created_at, c.updated_at,
			l.name, l.brand, l.price, COALESCE(l.image_path, ''),
			buyer.display_name, COALESCE(buyer.avatar_url, ''),
			seller.display_name, COALESCE(seller.avatar_url, '')
		FROM conversations c
		JOIN listings l ON l.id = c.listing_id
		JOIN users buyer ON buyer.id = c.buyer_id
		JOIN users seller ON seller.id = c.seller_id
		WHERE c.buyer_id = ? OR c.seller_id = ?
		ORDER BY c.updated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var views []*store.ConversationView
	for rows.Next() {
		var v store.ConversationView
		if err := rows.Scan(
			&v.ID, &v.ListingID, &v.BuyerID, &v.SellerID, &v.CreatedAt, &v.UpdatedAt,
			&v.ListingName, &v.ListingBrand, &v.ListingPrice, &v.ListingImage,
			&v.BuyerName, &v.BuyerAvatar,
			&v.SellerName, &v.SellerAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		views = append(views, &v)
	}

	return views, rows.Err()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and bumps the conversation's
// updated_at in the same transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insert := `
		INSERT INTO messages (conversation_id, sender_id, sender_role, body, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insert,
		msg.ConversationID, msg.SenderID, string(msg.SenderRole), msg.Body, msg.SentAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	touch := `
		UPDATE conversations
		SET updated_at = ?
		WHERE id = ?
	`
	touched, err := tx.ExecContext(ctx, touch, msg.SentAt, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	affected, err := touched.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation: %w", store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages retrieves messages in ascending sent_at order.
// limit <= 0 returns the full history.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	var (
		query string
		args  []interface{}
	)

	switch {
	case limit <= 0:
		query = `
			SELECT id, conversation_id, sender_id, sender_role, body, sent_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY sent_at ASC, id ASC
		`
		args = []interface{}{conversationID}
	case beforeID != nil:
		query = `
			SELECT id, conversation_id, sender_id, sender_role, body, sent_at
			FROM messages
			WHERE conversation_id = ? AND id < ?
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		`
		args = []interface{}{conversationID, *beforeID, limit}
	default:
		query = `
			SELECT id, conversation_id, sender_id, sender_role, body, sent_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		`
		args = []interface{}{conversationID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &role, &msg.Body, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SenderRole = store.Role(role)
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Limited queries read newest-first; flip back to chronological order.
	if limit > 0 {
		for i := range len(messages) / 2 {
			messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
		}
	}

	return messages, nil
}
