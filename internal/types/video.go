// Package types provides type definitions for structured data used throughout the youtube-talker system.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VideoRecord is the persisted metadata for one ingested video transcript.
type VideoRecord struct {
	ID        uuid.UUID `json:"id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Channel   string    `json:"channel,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope is the set of videos eligible for a query: either everything a user
// owns, or everything in a named shared channel. Exactly one of the two
// selectors must be set.
type Scope struct {
	OwnerID uuid.UUID `json:"owner_id,omitempty"`
	Channel string    `json:"channel,omitempty"`
}

// UserScope returns a scope covering all videos owned by the given user.
func UserScope(ownerID uuid.UUID) Scope {
	return Scope{OwnerID: ownerID}
}

// ChannelScope returns a scope covering all videos in a named channel.
func ChannelScope(channel string) Scope {
	return Scope{Channel: channel}
}

// Validate checks that exactly one selector is set.
func (s Scope) Validate() error {
	hasOwner := s.OwnerID != uuid.Nil
	hasChannel := s.Channel != ""
	if hasOwner == hasChannel {
		return fmt.Errorf("scope requires exactly one of owner_id or channel")
	}
	return nil
}

// ConversationTurn is a single prior message supplied to the query analyzer
// as conversational context.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
