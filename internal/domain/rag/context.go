package rag

import (
	"fmt"
	"strings"
)

const (
	// maxContextPerSource caps how much of each document enters the prompt.
	maxContextPerSource = 1000

	groundedSystemPrompt = `You are a research assistant. Answer the question using ONLY the numbered sources below.
Cite sources inline as [Source N]. If the sources do not contain the answer, say so plainly instead of guessing.

%s`

	storedSystemPrompt = `You are a helpful assistant. The numbered sources below were saved from earlier research.
Use them where they are relevant, citing [Source N], and your own knowledge otherwise.

%s`

	generalSystemPrompt = `You are a helpful assistant. Answer clearly and concisely.
Use the available tools when a question requires calculation, dates, conversions or other exact operations.`
)

// contextEntry is one source as it appears in the prompt.
type contextEntry struct {
	Title   string
	URL     string
	Content string
}

// buildContextBlock renders the numbered source list fed to the LLM.
func buildContextBlock(entries []contextEntry) string {
	var b strings.Builder
	b.WriteString("Sources:\n\n")
	for i, e := range entries {
		content := strings.TrimSpace(e.Content)
		if runes := []rune(content); len(runes) > maxContextPerSource {
			content = string(runes[:maxContextPerSource]) + "..."
		}
		fmt.Fprintf(&b, "[Source %d] %s (%s)\n%s\n\n", i+1, e.Title, e.URL, content)
	}
	return b.String()
}

// systemPrompt picks the prompt for the gathered sources: strict grounding
// when live search ran, a softer wording for stored-only sources, and the
// general prompt when there are none.
func systemPrompt(entries []contextEntry, liveSearch bool) string {
	if len(entries) == 0 {
		return generalSystemPrompt
	}
	if liveSearch {
		return fmt.Sprintf(groundedSystemPrompt, buildContextBlock(entries))
	}
	return fmt.Sprintf(storedSystemPrompt, buildContextBlock(entries))
}
