package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bartek-filipiuk/youtube-talker/internal/db"
	"github.com/bartek-filipiuk/youtube-talker/internal/embedding"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
)

// VideoSaver persists video metadata. Implemented by the db package.
type VideoSaver interface {
	SaveVideo(ctx context.Context, record types.VideoRecord) (*types.VideoRecord, error)
}

// VectorWriter is the write side of the vector store.
type VectorWriter interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []vectorstore.Point) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// Result summarizes one completed ingestion.
type Result struct {
	Video      *types.VideoRecord `json:"video"`
	ChunkCount int                `json:"chunk_count"`
}

// Ingestor runs the full pipeline for one video: fetch the transcript page,
// chunk it, embed all chunks in one batched call, and store vectors plus
// metadata.
type Ingestor struct {
	fetcher  *Fetcher
	embedder embedding.Embedder
	vectors  VectorWriter
	videos   VideoSaver
	chunkCfg ChunkConfig
}

// NewIngestor creates an ingestor over the given collaborators.
func NewIngestor(fetcher *Fetcher, embedder embedding.Embedder, vectors VectorWriter, videos VideoSaver) *Ingestor {
	return &Ingestor{
		fetcher:  fetcher,
		embedder: embedder,
		vectors:  vectors,
		videos:   videos,
		chunkCfg: DefaultChunkConfig(),
	}
}

// Ingest processes one video URL for an owner. Re-ingesting the same video
// replaces its vectors and refreshes its metadata.
func (in *Ingestor) Ingest(ctx context.Context, req types.IngestRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest request: %w", err)
	}

	videoID, err := db.ExtractVideoID(req.URL)
	if err != nil {
		return nil, err
	}

	page, err := in.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	chunks := ChunkTranscript(page.Transcript, in.chunkCfg)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("transcript for %s produced no chunks", videoID)
	}

	vectors, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed transcript chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := in.vectors.EnsureCollection(ctx, in.embedder.Dimension()); err != nil {
		return nil, err
	}

	// Drop stale vectors first so a shorter re-ingested transcript leaves no
	// orphaned chunks behind.
	if err := in.vectors.DeleteVideo(ctx, videoID); err != nil {
		return nil, err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%s/%d", req.OwnerID, videoID, i))).String(),
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				VideoID:    videoID,
				OwnerID:    req.OwnerID.String(),
				Channel:    req.Channel,
				ChunkIndex: i,
				ChunkText:  chunk,
			},
		}
	}
	if err := in.vectors.Upsert(ctx, points); err != nil {
		return nil, err
	}

	record, err := in.videos.SaveVideo(ctx, types.VideoRecord{
		VideoID: videoID,
		Title:   page.Title,
		OwnerID: req.OwnerID,
		Channel: req.Channel,
		URL:     req.URL,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Video: record, ChunkCount: len(chunks)}, nil
}
