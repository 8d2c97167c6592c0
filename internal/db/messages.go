package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// Message roles stored in chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SaveMessage appends one turn to a conversation.
func (db *DB) SaveMessage(ctx context.Context, conversationID, userID uuid.UUID, role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("invalid message role: %q", role)
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO chat_messages (conversation_id, user_id, role, content)
		 VALUES ($1, $2, $3, $4)`,
		conversationID, userID, role, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetConversation returns the most recent turns of a conversation in
// chronological order, capped at limit.
func (db *DB) GetConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]types.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT role, content FROM (
		     SELECT role, content, created_at FROM chat_messages
		     WHERE conversation_id = $1
		     ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	defer rows.Close()

	var turns []types.ConversationTurn
	for rows.Next() {
		var turn types.ConversationTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
