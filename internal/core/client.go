package core

import "sync"

// Client is a connected chat participant as seen by the core layer.
// One client corresponds to one live connection; the same user may hold
// several clients (two browser tabs are two clients).
type Client struct {
	ID       string
	UserID   int64
	Name     string
	Commands chan *Command
	Events   chan *Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, userID int64, name string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		done:     make(chan struct{}),
	}
}

// Close marks the client as disconnected. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client has disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
