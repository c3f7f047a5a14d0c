package inference

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateToCohere(t *testing.T) {
	req := openai.ChatCompletionRequest{
		Model: "command-r",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "be brief"},
			{Role: openai.ChatMessageRoleUser, Content: "first question"},
			{Role: openai.ChatMessageRoleAssistant, Content: "first answer"},
			{Role: openai.ChatMessageRoleUser, Content: "second question"},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        "calculate",
					Description: "evaluate an expression",
					Parameters: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"expression": map[string]any{"type": "string", "description": "math expression"},
							"precision":  map[string]any{"type": "number"},
						},
						"required": []string{"expression"},
					},
				},
			},
		},
	}

	out := translateToCohere(req)

	assert.Equal(t, "be brief", out.Preamble)
	assert.Equal(t, "second question", out.Message)
	require.Len(t, out.ChatHistory, 2)
	assert.Equal(t, "USER", out.ChatHistory[0].Role)
	assert.Equal(t, "first question", out.ChatHistory[0].Message)
	assert.Equal(t, "CHATBOT", out.ChatHistory[1].Role)

	require.Len(t, out.Tools, 1)
	defs := out.Tools[0].ParameterDefinitions
	require.Contains(t, defs, "expression")
	assert.Equal(t, "str", defs["expression"].Type)
	assert.True(t, defs["expression"].Required)
	assert.Equal(t, "float", defs["precision"].Type)
	assert.False(t, defs["precision"].Required)
}

func TestTranslateToCohereToolResults(t *testing.T) {
	req := openai.ChatCompletionRequest{
		Model: "command-r",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "what is 2+2"},
			{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call-1",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      "calculate",
						Arguments: `{"expression":"2+2"}`,
					},
				}},
			},
			{Role: openai.ChatMessageRoleTool, ToolCallID: "call-1", Content: "4"},
		},
	}

	out := translateToCohere(req)

	require.Len(t, out.ToolResults, 1)
	assert.Equal(t, "calculate", out.ToolResults[0].Call.Name)
	assert.Equal(t, "2+2", out.ToolResults[0].Call.Parameters["expression"])
	assert.Equal(t, "4", out.ToolResults[0].Outputs[0]["text"])
}

func TestTranslateFromCohere(t *testing.T) {
	resp := translateFromCohere("command-r", cohereChatResponse{
		Text: "done",
		ToolCalls: []cohereToolCall{
			{Name: "get_current_date", Parameters: map[string]any{"format": "iso"}},
		},
	})

	require.Len(t, resp.Choices, 1)
	msg := resp.Choices[0].Message
	assert.Equal(t, openai.ChatMessageRoleAssistant, msg.Role)
	assert.Equal(t, "done", msg.Content)
	assert.Equal(t, openai.FinishReasonToolCalls, resp.Choices[0].FinishReason)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "get_current_date", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"format":"iso"}`, msg.ToolCalls[0].Function.Arguments)
	assert.NotEmpty(t, msg.ToolCalls[0].ID)

	plain := translateFromCohere("command-r", cohereChatResponse{Text: "just text"})
	assert.Equal(t, openai.FinishReasonStop, plain.Choices[0].FinishReason)
	assert.Empty(t, plain.Choices[0].Message.ToolCalls)
}
