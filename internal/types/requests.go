// Package types provides type definitions for structured data used throughout the youtube-talker system.
package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ChatRequest represents a chat message sent to the backend.
type ChatRequest struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Message string    `json:"message" validate:"required,min=1,max=4000"`
	// Channel restricts the search scope to a shared channel instead of the
	// user's own library.
	Channel        string    `json:"channel,omitempty"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
}

// IngestRequest represents a request to ingest a video transcript.
type IngestRequest struct {
	URL     string    `json:"url" validate:"required,url"`
	OwnerID uuid.UUID `json:"owner_id" validate:"required"`
	Channel string    `json:"channel,omitempty"`
}

// Validate validates the ChatRequest using the validator.
func (r *ChatRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the IngestRequest using the validator.
func (r *IngestRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
