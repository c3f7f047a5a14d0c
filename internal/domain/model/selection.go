package model

import "strings"

// autoSelectPatterns ranks model families from most to least preferred.
// Matching is case insensitive on the model id.
var autoSelectPatterns = []string{
	"deepseek-r1",
	"llama-3.3-70b",
	"qwen-2.5-72b",
	"mixtral-8x22b",
	"claude-3-opus",
	"gpt-4",
}

// Selection is the outcome of resolving a requested model id against the
// catalog.
type Selection struct {
	Model    Model
	Fallback bool // requested id was unknown and a default was substituted
}

// Select resolves the model to use for a request. An empty requested id runs
// auto-selection over the catalog; an unknown explicit id falls back the same
// way with Fallback set so callers can surface a warning.
func (c *Catalog) Select(requested, configuredDefault string) Selection {
	requested = strings.TrimSpace(requested)
	if requested != "" && !strings.EqualFold(requested, "auto") {
		if m, ok := c.Find(requested); ok {
			return Selection{Model: m}
		}
		sel := c.autoSelect(configuredDefault)
		sel.Fallback = true
		return sel
	}
	return c.autoSelect(configuredDefault)
}

func (c *Catalog) autoSelect(configuredDefault string) Selection {
	models := c.Models()
	if len(models) == 0 {
		return Selection{Model: Model{ID: FallbackModelID}}
	}

	for _, pattern := range autoSelectPatterns {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.ID), pattern) {
				return Selection{Model: m}
			}
		}
	}

	if configuredDefault != "" {
		if m, ok := c.Find(configuredDefault); ok {
			return Selection{Model: m}
		}
	}

	// Nothing matched the preference list; take the first advertised model.
	return Selection{Model: models[0]}
}
