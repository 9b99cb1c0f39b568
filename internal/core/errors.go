package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeConversationNotFound = "conversation_not_found"
	ErrCodeNotParticipant       = "not_participant"
	ErrCodeNotInConversation    = "not_in_conversation"
	ErrCodeMessageRejected      = "message_rejected"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeUnauthorized         = "unauthorized"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a conversation participant")
	ErrNotInConversation    = errors.New("not in conversation")
	ErrBadRequest           = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
