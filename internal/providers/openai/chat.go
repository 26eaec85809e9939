package openai

import (
	"context"
	"errors"

	"github.com/yoockh/bookbot/internal/providers/llm"
)

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, msgs []llm.Message, tools []llm.Tool) (llm.Message, error) {
	req := chatRequest{
		Model:       c.chatModel,
		Messages:    make([]chatMessage, 0, len(msgs)),
		Temperature: c.temperature,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, toChatMessage(m))
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
		for _, t := range tools {
			req.Tools = append(req.Tools, chatTool{
				Type:     "function",
				Function: chatFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
			})
		}
	}

	var resp chatResponse
	if err := c.doJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return llm.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Message{}, errors.New("empty response from openai chat api")
	}
	return fromChatMessage(resp.Choices[0].Message), nil
}

func toChatMessage(m llm.Message) chatMessage {
	content := m.Content
	out := chatMessage{
		Role:       m.Role,
		Content:    &content,
		ToolCallID: m.ToolCallID,
	}
	if m.Role == llm.RoleTool {
		out.Name = m.Name
	}
	for _, tc := range m.ToolCalls {
		call := chatToolCall{ID: tc.ID, Type: "function"}
		call.Function.Name = tc.Name
		call.Function.Arguments = tc.Arguments
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out
}

func fromChatMessage(m chatMessage) llm.Message {
	out := llm.Message{Role: llm.RoleAssistant}
	if m.Content != nil {
		out.Content = *m.Content
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
