package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSystemPromptSelection(t *testing.T) {
	entries := []contextEntry{{Title: "Doc", URL: "https://example.com", Content: "body"}}

	assert.Equal(t, generalSystemPrompt, systemPrompt(nil, true))
	assert.Contains(t, systemPrompt(entries, true), "ONLY the numbered sources")
	assert.Contains(t, systemPrompt(entries, false), "saved from earlier research")
}

func TestBuildContextBlockTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("é", maxContextPerSource+50)
	block := buildContextBlock([]contextEntry{{Title: "Doc", URL: "https://example.com", Content: long}})

	assert.True(t, utf8.ValidString(block))
	assert.Contains(t, block, "...")
	assert.Equal(t, maxContextPerSource, strings.Count(block, "é"))
}
