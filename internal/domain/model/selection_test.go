package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"w9-search/internal/domain/provider"
)

func catalogWith(ids ...string) *Catalog {
	c := NewCatalog()
	models := make([]Model, 0, len(ids))
	for _, id := range ids {
		models = append(models, Model{ID: id, Provider: provider.OpenRouter})
	}
	c.Replace(models)
	return c
}

func TestSelectPrefersPriorityPatterns(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		want   string
	}{
		{
			name:   "deepseek beats llama",
			models: []string{"meta/llama-3.3-70b-instruct", "deepseek/deepseek-r1:free"},
			want:   "deepseek/deepseek-r1:free",
		},
		{
			name:   "llama beats qwen",
			models: []string{"qwen/qwen-2.5-72b", "meta/llama-3.3-70b-versatile"},
			want:   "meta/llama-3.3-70b-versatile",
		},
		{
			name:   "case insensitive matching",
			models: []string{"OpenAI/GPT-4-Turbo"},
			want:   "OpenAI/GPT-4-Turbo",
		},
		{
			name:   "no pattern match takes first",
			models: []string{"mistral-small", "gemma-7b"},
			want:   "mistral-small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := catalogWith(tt.models...).Select("", "")
			assert.Equal(t, tt.want, sel.Model.ID)
			assert.False(t, sel.Fallback)
		})
	}
}

func TestSelectExplicitKnownModel(t *testing.T) {
	c := catalogWith("deepseek/deepseek-r1", "gemma-7b")

	sel := c.Select("gemma-7b", "")
	assert.Equal(t, "gemma-7b", sel.Model.ID)
	assert.False(t, sel.Fallback)
}

func TestSelectAutoRunsAutoSelection(t *testing.T) {
	c := catalogWith("gemma-7b", "deepseek/deepseek-r1")

	sel := c.Select("auto", "")
	assert.Equal(t, "deepseek/deepseek-r1", sel.Model.ID)
	assert.False(t, sel.Fallback)
}

func TestSelectUnknownModelFallsBackWithFlag(t *testing.T) {
	c := catalogWith("deepseek/deepseek-r1", "gemma-7b")

	sel := c.Select("gpt-5-ultra", "")
	assert.Equal(t, "deepseek/deepseek-r1", sel.Model.ID)
	assert.True(t, sel.Fallback)
}

func TestSelectConfiguredDefaultBeforeFirst(t *testing.T) {
	c := catalogWith("mistral-small", "gemma-7b")

	sel := c.Select("", "gemma-7b")
	assert.Equal(t, "gemma-7b", sel.Model.ID)
}

func TestSelectEmptyCatalogReturnsFallbackID(t *testing.T) {
	sel := NewCatalog().Select("", "")
	assert.Equal(t, FallbackModelID, sel.Model.ID)
}

func TestCatalogReplaceIsolatesSnapshot(t *testing.T) {
	c := catalogWith("a")
	before := c.Models()
	c.Replace([]Model{{ID: "b"}})

	assert.Equal(t, "a", before[0].ID)
	assert.Equal(t, "b", c.Models()[0].ID)
}
