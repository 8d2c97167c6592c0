package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

const videoColumns = `id, video_id, title, owner_id, COALESCE(channel, ''), COALESCE(url, ''), created_at`

// SaveVideo inserts or updates a video record, keyed by (video_id, owner_id).
// Re-ingesting the same video refreshes its title, channel and URL.
func (db *DB) SaveVideo(ctx context.Context, record types.VideoRecord) (*types.VideoRecord, error) {
	if record.VideoID == "" {
		return nil, fmt.Errorf("video_id cannot be empty")
	}
	if record.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("owner_id cannot be empty")
	}

	var saved types.VideoRecord
	err := db.pool.QueryRow(ctx,
		`INSERT INTO videos (video_id, title, owner_id, channel, url)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		 ON CONFLICT (video_id, owner_id)
		 DO UPDATE SET title = $2, channel = NULLIF($4, ''), url = NULLIF($5, '')
		 RETURNING `+videoColumns,
		record.VideoID, record.Title, record.OwnerID, record.Channel, record.URL,
	).Scan(&saved.ID, &saved.VideoID, &saved.Title, &saved.OwnerID, &saved.Channel, &saved.URL, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save video %s: %w", record.VideoID, err)
	}
	return &saved, nil
}

// GetVideo retrieves one video by its external ID within a scope.
func (db *DB) GetVideo(ctx context.Context, videoID string, scope types.Scope) (*types.VideoRecord, error) {
	clause, arg, err := scopeClause(scope, 2)
	if err != nil {
		return nil, err
	}

	var v types.VideoRecord
	err = db.pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE video_id = $1 AND `+clause,
		videoID, arg,
	).Scan(&v.ID, &v.VideoID, &v.Title, &v.OwnerID, &v.Channel, &v.URL, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, err)
	}
	return &v, nil
}

// ListVideos returns every video record in scope, newest first. This is the
// corpus scanned by fuzzy title matching.
func (db *DB) ListVideos(ctx context.Context, scope types.Scope) ([]types.VideoRecord, error) {
	clause, arg, err := scopeClause(scope, 1)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE `+clause+` ORDER BY created_at DESC`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// ResolveVideos returns records for the given external video IDs in one
// batched query. IDs with no record in scope are silently absent from the
// result.
func (db *DB) ResolveVideos(ctx context.Context, videoIDs []string, scope types.Scope) ([]types.VideoRecord, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	clause, arg, err := scopeClause(scope, 2)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE video_id = ANY($1) AND `+clause,
		videoIDs, arg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// DeleteVideo removes a video record within a scope.
func (db *DB) DeleteVideo(ctx context.Context, videoID string, scope types.Scope) error {
	clause, arg, err := scopeClause(scope, 2)
	if err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx,
		`DELETE FROM videos WHERE video_id = $1 AND `+clause,
		videoID, arg,
	)
	if err != nil {
		return fmt.Errorf("failed to delete video %s: %w", videoID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("video not found: %s", videoID)
	}
	return nil
}

// scopeClause renders the WHERE fragment selecting a scope. argNum is the
// positional parameter index the clause should use.
func scopeClause(scope types.Scope, argNum int) (string, any, error) {
	if err := scope.Validate(); err != nil {
		return "", nil, err
	}
	if scope.Channel != "" {
		return fmt.Sprintf("channel = $%d", argNum), scope.Channel, nil
	}
	return fmt.Sprintf("owner_id = $%d", argNum), scope.OwnerID, nil
}

func scanVideos(rows pgx.Rows) ([]types.VideoRecord, error) {
	var videos []types.VideoRecord
	for rows.Next() {
		var v types.VideoRecord
		if err := rows.Scan(&v.ID, &v.VideoID, &v.Title, &v.OwnerID, &v.Channel, &v.URL, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read videos: %w", err)
	}
	return videos, nil
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

// ExtractVideoID pulls the YouTube video ID out of the common URL shapes
// (watch?v=, youtu.be/, shorts/, embed/). A bare ID passes through unchanged.
func ExtractVideoID(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	// Bare ID with no URL structure.
	if !strings.ContainsAny(s, "/?.") && youtubeIDPattern.MatchString(s) {
		return s, nil
	}

	if idx := strings.Index(s, "v="); idx != -1 {
		id := s[idx+2:]
		if amp := strings.IndexAny(id, "&#"); amp != -1 {
			id = id[:amp]
		}
		if youtubeIDPattern.MatchString(id) {
			return id, nil
		}
	}

	for _, marker := range []string{"youtu.be/", "/shorts/", "/embed/", "/live/"} {
		if idx := strings.Index(s, marker); idx != -1 {
			id := s[idx+len(marker):]
			if cut := strings.IndexAny(id, "?&#/"); cut != -1 {
				id = id[:cut]
			}
			if youtubeIDPattern.MatchString(id) {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("could not extract video id from %q", rawURL)
}
