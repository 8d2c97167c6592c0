// Package generation produces the user-facing reply once routing has decided
// between a grounded answer and the conversational fallback.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/bartek-filipiuk/youtube-talker/internal/llm"
	"github.com/bartek-filipiuk/youtube-talker/internal/prompts"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
	"github.com/bartek-filipiuk/youtube-talker/internal/vectorstore"
)

// maxExcerptsPerVideo caps how many transcript chunks are quoted per video in
// the grounding context.
const maxExcerptsPerVideo = 4

// VideoContext is the grounding material for one video: its title plus the
// transcript excerpts that matched the query.
type VideoContext struct {
	VideoID  string
	Title    string
	Excerpts []string
}

// Generator renders LLM answers from the routing outcome.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a generator backed by the given LLM client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// GroundedAnswer answers the query using only the supplied transcript
// contexts. At least one context is required; callers reach this path only
// after routing decided enough relevant content exists.
func (g *Generator) GroundedAnswer(ctx context.Context, query string, contexts []VideoContext) (string, error) {
	if len(contexts) == 0 {
		return "", fmt.Errorf("grounded answer requires at least one video context")
	}

	template := prompts.MustGet("generation.json", "grounded-answer")
	prompt := prompts.Format(template, map[string]string{
		"Query":   query,
		"Context": renderContexts(contexts),
	})

	answer, err := g.client.GenerateContent(ctx, prompt, llm.TierStandard, llm.GenerationTemperature)
	if err != nil {
		return "", fmt.Errorf("grounded answer generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Chitchat produces the conversational fallback reply for queries that
// matched no ingested content.
func (g *Generator) Chitchat(ctx context.Context, message string) (string, error) {
	template := prompts.MustGet("generation.json", "chitchat")
	prompt := prompts.Format(template, map[string]string{
		"Message": message,
	})

	reply, err := g.client.GenerateContent(ctx, prompt, llm.TierLite, llm.GenerationTemperature)
	if err != nil {
		return "", fmt.Errorf("fallback generation failed: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// BuildContexts pairs ranked candidates with the transcript chunks that
// retrieved them. Candidates without any matching chunk are kept with their
// title only; candidate order is preserved so the strongest video leads the
// prompt.
func BuildContexts(candidates []types.RankedCandidate, hits []vectorstore.Hit) []VideoContext {
	excerpts := make(map[string][]string, len(candidates))
	for _, hit := range hits {
		id := hit.Payload.VideoID
		if len(excerpts[id]) >= maxExcerptsPerVideo {
			continue
		}
		if text := strings.TrimSpace(hit.Payload.ChunkText); text != "" {
			excerpts[id] = append(excerpts[id], text)
		}
	}

	contexts := make([]VideoContext, 0, len(candidates))
	for _, c := range candidates {
		contexts = append(contexts, VideoContext{
			VideoID:  c.VideoID,
			Title:    c.Title,
			Excerpts: excerpts[c.VideoID],
		})
	}
	return contexts
}

func renderContexts(contexts []VideoContext) string {
	var b strings.Builder
	for i, vc := range contexts {
		title := vc.Title
		if title == "" {
			title = vc.VideoID
		}
		fmt.Fprintf(&b, "%d. %q (video_id=%s)\n", i+1, title, vc.VideoID)
		if len(vc.Excerpts) == 0 {
			b.WriteString("   (no transcript excerpts retrieved)\n")
			continue
		}
		for _, excerpt := range vc.Excerpts {
			fmt.Fprintf(&b, "   - %s\n", excerpt)
		}
	}
	return b.String()
}
