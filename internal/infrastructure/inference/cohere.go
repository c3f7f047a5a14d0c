package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"w9-search/internal/utils/platformerrors"
)

const cohereBaseURL = "https://api.cohere.com/v1"

// CohereClient translates between the OpenAI chat shape the engine speaks
// and Cohere's v1 chat API.
type CohereClient struct {
	http            *resty.Client
	apiKey          string
	metadataTimeout time.Duration
}

type cohereHistoryEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereTool struct {
	Name                 string                         `json:"name"`
	Description          string                         `json:"description"`
	ParameterDefinitions map[string]cohereParameterSpec `json:"parameter_definitions,omitempty"`
}

type cohereParameterSpec struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

type cohereToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

type cohereToolResult struct {
	Call    cohereToolCall   `json:"call"`
	Outputs []map[string]any `json:"outputs"`
}

type cohereChatRequest struct {
	Model       string               `json:"model"`
	Message     string               `json:"message,omitempty"`
	Preamble    string               `json:"preamble,omitempty"`
	ChatHistory []cohereHistoryEntry `json:"chat_history,omitempty"`
	Tools       []cohereTool         `json:"tools,omitempty"`
	ToolResults []cohereToolResult   `json:"tool_results,omitempty"`
}

type cohereChatResponse struct {
	Text         string           `json:"text"`
	FinishReason string           `json:"finish_reason"`
	ToolCalls    []cohereToolCall `json:"tool_calls"`
	Meta         *struct {
		BilledUnits struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"billed_units"`
	} `json:"meta"`
}

func NewCohereClient(apiKey string, timeout, metadataTimeout time.Duration) *CohereClient {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		})

	return &CohereClient{http: httpClient, apiKey: apiKey, metadataTimeout: metadataTimeout}
}

func (c *CohereClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, http.Header, error) {
	body := translateToCohere(request)

	var respBody cohereChatResponse
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetBody(body).
		SetResult(&respBody).
		Post(cohereBaseURL + "/chat")
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"cohere chat request failed", err, "")
	}
	if resp.IsError() {
		trimmed := strings.TrimSpace(resp.String())
		if trimmed == "" {
			trimmed = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return nil, resp.Header(), platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"cohere chat request failed: "+trimmed, nil, "")
	}

	return translateFromCohere(request.Model, respBody), resp.Header(), nil
}

// ListModels fetches Cohere's model catalog, which uses name instead of id.
func (c *CohereClient) ListModels(ctx context.Context) ([]modelEntry, error) {
	if c.metadataTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.metadataTimeout)
		defer cancel()
	}

	var respBody struct {
		Models []struct {
			Name          string   `json:"name"`
			ContextLength float64  `json:"context_length"`
			Endpoints     []string `json:"endpoints"`
		} `json:"models"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetQueryParam("page_size", "100").
		SetResult(&respBody).
		Get(cohereBaseURL + "/models")
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"cohere list models failed", err, "")
	}
	if resp.IsError() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"cohere list models failed: "+strings.TrimSpace(resp.String()), nil, "")
	}

	entries := make([]modelEntry, 0, len(respBody.Models))
	for _, m := range respBody.Models {
		chatCapable := len(m.Endpoints) == 0
		for _, ep := range m.Endpoints {
			if ep == "chat" {
				chatCapable = true
				break
			}
		}
		if !chatCapable {
			continue
		}
		entries = append(entries, modelEntry{ID: m.Name, ContextLength: int(m.ContextLength)})
	}
	return entries, nil
}

// translateToCohere maps OpenAI-shaped messages onto Cohere's preamble,
// chat_history, message and tool_results fields. The last user message
// becomes the prompt; everything before it becomes history.
func translateToCohere(request openai.ChatCompletionRequest) cohereChatRequest {
	out := cohereChatRequest{Model: request.Model}

	// Tool results reference the call that produced them, so remember the
	// arguments of every assistant tool call seen so far.
	callsByID := make(map[string]cohereToolCall)

	lastUserIdx := -1
	for i, msg := range request.Messages {
		if msg.Role == openai.ChatMessageRoleUser {
			lastUserIdx = i
		}
	}

	var history []cohereHistoryEntry

	for i, msg := range request.Messages {
		switch msg.Role {
		case openai.ChatMessageRoleSystem:
			if out.Preamble == "" {
				out.Preamble = msg.Content
			} else {
				history = append(history, cohereHistoryEntry{Role: "SYSTEM", Message: msg.Content})
			}
		case openai.ChatMessageRoleUser:
			if i == lastUserIdx {
				out.Message = msg.Content
			} else {
				history = append(history, cohereHistoryEntry{Role: "USER", Message: msg.Content})
			}
		case openai.ChatMessageRoleAssistant:
			for _, tc := range msg.ToolCalls {
				params := map[string]any{}
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &params)
				callsByID[tc.ID] = cohereToolCall{Name: tc.Function.Name, Parameters: params}
			}
			if msg.Content != "" {
				history = append(history, cohereHistoryEntry{Role: "CHATBOT", Message: msg.Content})
			}
		case openai.ChatMessageRoleTool:
			call, ok := callsByID[msg.ToolCallID]
			if !ok {
				call = cohereToolCall{Name: "unknown", Parameters: map[string]any{}}
			}
			out.ToolResults = append(out.ToolResults, cohereToolResult{
				Call:    call,
				Outputs: []map[string]any{{"text": msg.Content}},
			})
		}
	}

	out.ChatHistory = history

	for _, tool := range request.Tools {
		if tool.Function == nil {
			continue
		}
		out.Tools = append(out.Tools, cohereTool{
			Name:                 tool.Function.Name,
			Description:          tool.Function.Description,
			ParameterDefinitions: parameterDefinitions(tool.Function.Parameters),
		})
	}

	return out
}

// parameterDefinitions flattens a JSON schema object into Cohere's
// per-parameter definition map.
func parameterDefinitions(schema any) map[string]cohereParameterSpec {
	obj, ok := schema.(map[string]any)
	if !ok {
		return nil
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}

	required := map[string]bool{}
	if reqList, ok := obj["required"].([]string); ok {
		for _, name := range reqList {
			required[name] = true
		}
	} else if reqList, ok := obj["required"].([]any); ok {
		for _, name := range reqList {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	defs := make(map[string]cohereParameterSpec, len(props))
	for name, raw := range props {
		spec := cohereParameterSpec{Type: "str", Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			if desc, ok := prop["description"].(string); ok {
				spec.Description = desc
			}
			switch prop["type"] {
			case "number", "integer":
				spec.Type = "float"
			case "boolean":
				spec.Type = "bool"
			}
		}
		defs[name] = spec
	}
	return defs
}

// translateFromCohere rebuilds an OpenAI-shaped response so the engine's
// tool loop works unchanged.
func translateFromCohere(modelID string, resp cohereChatResponse) *openai.ChatCompletionResponse {
	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: resp.Text,
	}

	finish := openai.FinishReasonStop
	for _, call := range resp.ToolCalls {
		args, err := json.Marshal(call.Parameters)
		if err != nil {
			args = []byte("{}")
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   "cohere-" + uuid.NewString(),
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	if len(msg.ToolCalls) > 0 {
		finish = openai.FinishReasonToolCalls
	}

	out := &openai.ChatCompletionResponse{
		Model: modelID,
		Choices: []openai.ChatCompletionChoice{{
			Message:      msg,
			FinishReason: finish,
		}},
	}
	if resp.Meta != nil {
		out.Usage = openai.Usage{
			PromptTokens:     resp.Meta.BilledUnits.InputTokens,
			CompletionTokens: resp.Meta.BilledUnits.OutputTokens,
			TotalTokens:      resp.Meta.BilledUnits.InputTokens + resp.Meta.BilledUnits.OutputTokens,
		}
	}
	return out
}
