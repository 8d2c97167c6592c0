package ingestion

import (
	"strings"
	"unicode"
)

// Chunking defaults: windows large enough for embedding context, with one
// sentence of overlap so no statement is cut off at a boundary.
const (
	DefaultChunkChars       = 1200
	DefaultOverlapSentences = 1
)

// ChunkConfig holds chunking tunables.
type ChunkConfig struct {
	MaxChars         int
	OverlapSentences int
}

// DefaultChunkConfig returns the standard chunking parameters.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:         DefaultChunkChars,
		OverlapSentences: DefaultOverlapSentences,
	}
}

// ChunkTranscript splits a transcript into sentence-aligned windows of at
// most MaxChars characters, overlapping by OverlapSentences sentences. A
// single sentence longer than MaxChars becomes its own chunk rather than
// being split mid-sentence.
func ChunkTranscript(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultChunkChars
	}
	if cfg.OverlapSentences < 0 {
		cfg.OverlapSentences = 0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var window []string
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(window, " "))
		overlap := cfg.OverlapSentences
		if overlap > len(window) {
			overlap = len(window)
		}
		window = append([]string(nil), window[len(window)-overlap:]...)
		windowLen = 0
		for _, s := range window {
			windowLen += len(s) + 1
		}
	}

	for _, sentence := range sentences {
		if windowLen > 0 && windowLen+len(sentence) > cfg.MaxChars {
			flush()
			// Overlap alone may already exceed the budget for very long
			// sentences; drop it rather than loop forever.
			if windowLen+len(sentence) > cfg.MaxChars {
				window = nil
				windowLen = 0
			}
		}
		window = append(window, sentence)
		windowLen += len(sentence) + 1
	}
	if len(window) > 0 {
		last := strings.Join(window, " ")
		// Avoid emitting a trailing chunk that is pure overlap of the previous one.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], last) {
			chunks = append(chunks, last)
		}
	}
	return chunks
}

// splitSentences breaks text on sentence-final punctuation followed by
// whitespace and an upper-case or digit start. Transcript text rarely has
// perfect punctuation, so this stays deliberately simple.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// Consume trailing punctuation runs like "..." or "?!".
		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
			j++
		}
		if j >= len(runes) {
			i = j - 1
			continue
		}
		if !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		sentence := strings.TrimSpace(string(runes[start:j]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = j
		i = j - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
