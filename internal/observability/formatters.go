// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintQueryAnalysis outputs a human-readable summary of the analyzed query.
func (p *Printer) PrintQueryAnalysis(analysis *types.QueryAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Intent:     %s\n", analysis.QueryIntent))
	sb.WriteString(fmt.Sprintf("Confidence: %.2f\n", analysis.Confidence))

	if len(analysis.TitleKeywords) > 0 {
		sb.WriteString(fmt.Sprintf("Titles:     %s\n", joinCapped(analysis.TitleKeywords, 3)))
	}
	if len(analysis.TopicKeywords) > 0 {
		sb.WriteString(fmt.Sprintf("Topics:     %s\n", joinCapped(analysis.TopicKeywords, 3)))
	}
	if len(analysis.AlternativePhrasings) > 0 {
		sb.WriteString("Phrasings:\n")
		for _, phrasing := range analysis.AlternativePhrasings {
			sb.WriteString(fmt.Sprintf("  • %s\n", phrasing))
		}
	}

	p.printBox("QUERY ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidates outputs the ranked candidate list with scores and strategies.
func (p *Printer) PrintCandidates(candidates []types.RankedCandidate, search types.SearchMetadata) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total candidates: %d", len(candidates)))
	if search.SearchError != "" {
		sb.WriteString(fmt.Sprintf("\nSearch degraded: %s", search.SearchError))
	}
	sb.WriteString("\n\n")

	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := candidates[i]
		title := c.Title
		if title == "" {
			title = c.VideoID
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    Score: %.2f", c.Score))
		if c.Score != c.OriginalScore {
			sb.WriteString(fmt.Sprintf(" (was %.2f)", c.OriginalScore))
		}
		sb.WriteString(fmt.Sprintf("  [%s]\n", c.Strategy))
		if len(c.LLMKeyMatches) > 0 {
			matches := strings.Join(c.LLMKeyMatches, ", ")
			if len(matches) > 40 {
				matches = matches[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("    Matches: %s\n", matches))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(candidates)-maxItemsToShow))
	}

	p.printBox("SEARCH CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRoutingDecision outputs the terminal routing decision.
func (p *Printer) PrintRoutingDecision(decision types.RoutingDecision) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:    %s\n", decision.Outcome))
	sb.WriteString(fmt.Sprintf("Top score:  %.2f\n", decision.TopScore))
	sb.WriteString(fmt.Sprintf("Candidates: %d", decision.CandidateCount))

	p.printBox("ROUTING DECISION", sb.String())
}

// joinCapped joins up to n items, noting how many were omitted.
func joinCapped(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(items[:n], ", "), len(items)-n)
}
