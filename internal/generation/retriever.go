package generation

import (
	"context"
	"fmt"

	"github.com/bartek-filipiuk/youtube-talker/internal/embedding"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
)

// retrieveTopK is deeper than the search executor's depth: the excerpts here
// feed the answer prompt, so recall matters more than latency.
const retrieveTopK = 12

// Retriever fetches the transcript excerpts that ground an answer, pairing
// one more embedding call with one vector search.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Searcher
}

// NewRetriever creates a retriever over the given embedder and store.
func NewRetriever(embedder embedding.Embedder, store vectorstore.Searcher) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns per-candidate contexts built from the
// best-matching transcript chunks in scope.
func (r *Retriever) Retrieve(ctx context.Context, query string, candidates []types.RankedCandidate, scope types.Scope) ([]VideoContext, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to retrieve context for")
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding returned %d vectors for one query", len(vectors))
	}

	hits, err := r.store.Search(ctx, vectors[0], scope, retrieveTopK)
	if err != nil {
		return nil, fmt.Errorf("context retrieval failed: %w", err)
	}

	return BuildContexts(candidates, hits), nil
}
