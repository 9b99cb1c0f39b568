package sqlite

// Schema creates all tables used by the chat service. Statements are
// idempotent so New can apply them on every start.
//
// The UNIQUE index on (listing_id, buyer_id, seller_id) is what makes
// FindOrCreateConversation race-free: concurrent first-contact sends
// collapse onto a single conversation row.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	avatar_url    TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS listings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	seller_id  INTEGER NOT NULL,
	name       TEXT NOT NULL,
	brand      TEXT NOT NULL DEFAULT '',
	price      TEXT NOT NULL DEFAULT '',
	image_path TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (seller_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id INTEGER NOT NULL,
	buyer_id   INTEGER NOT NULL,
	seller_id  INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (listing_id, buyer_id, seller_id),
	FOREIGN KEY (listing_id) REFERENCES listings(id),
	FOREIGN KEY (buyer_id)  REFERENCES users(id),
	FOREIGN KEY (seller_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	sender_id       INTEGER NOT NULL,
	sender_role     TEXT NOT NULL CHECK (sender_role IN ('buyer', 'seller')),
	body            TEXT NOT NULL,
	sent_at         DATETIME NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sent_at);
CREATE INDEX IF NOT EXISTS idx_conversations_buyer  ON conversations(buyer_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_seller ON conversations(seller_id, updated_at DESC);
`
