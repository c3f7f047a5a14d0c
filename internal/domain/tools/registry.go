package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"

	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/infrastructure/metrics"
)

// Handler executes one tool call with decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs a function definition advertised to the LLM with its handler.
type Tool struct {
	Definition openai.Tool
	Handler    Handler
}

// Registry holds every tool the engine exposes to the LLM.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns a registry preloaded with the builtin tools.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	registerBuiltins(r)
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Definition.Function.Name] = t
}

// Definitions returns every tool definition in stable name order.
func (r *Registry) Definitions() []openai.Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Execute runs a named tool with raw JSON arguments. Arguments that fail to
// decode are treated as an empty object rather than rejected, so a model
// emitting malformed JSON still gets a tool response.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			log := logger.GetLogger()
			log.Warn().Str("tool", name).Str("args", argsJSON).Msg("malformed tool arguments, using empty object")
			args = map[string]any{}
		}
	}

	start := time.Now()
	result, err := tool.Handler(ctx, args)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordToolCall(name, status, time.Since(start).Seconds())
	return result, err
}

// def is a shorthand for building a function tool definition.
func def(name, description string, params map[string]any) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
