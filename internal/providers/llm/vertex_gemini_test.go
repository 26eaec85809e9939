package llm

import (
	"testing"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

func TestToContentsGroupsToolResults(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "a sad book"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "c1", Name: "search_books", Arguments: `{"query":"sad","k":2}`},
			{ID: "c2", Name: "get_book_summary", Arguments: `{"title":"Dune"}`},
		}},
		{Role: RoleTool, ToolCallID: "c1", Name: "search_books", Content: `{"results":[]}`},
		{Role: RoleTool, ToolCallID: "c2", Name: "get_book_summary", Content: `{"title":"Dune","summary":null}`},
	}

	system, history, err := toContents(msgs)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if system == nil || len(system.Parts) != 1 {
		t.Fatalf("expected one system part, got %+v", system)
	}
	if len(history) != 3 {
		t.Fatalf("history len = %d, want 3", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" || history[2].Role != "user" {
		t.Fatalf("unexpected roles %q %q %q", history[0].Role, history[1].Role, history[2].Role)
	}

	call, ok := history[1].Parts[0].(vertexgenai.FunctionCall)
	if !ok || call.Name != "search_books" || call.Args["query"] != "sad" {
		t.Fatalf("unexpected function call part %#v", history[1].Parts[0])
	}
	if len(history[2].Parts) != 2 {
		t.Fatalf("tool results should share one turn, got %d parts", len(history[2].Parts))
	}
	fr, ok := history[2].Parts[1].(vertexgenai.FunctionResponse)
	if !ok || fr.Name != "get_book_summary" || fr.Response["title"] != "Dune" {
		t.Fatalf("unexpected function response part %#v", history[2].Parts[1])
	}
}

func TestToContentsRejectsBadArguments(t *testing.T) {
	_, _, err := toContents([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "search_books", Arguments: "{not json"}}},
	})
	if err == nil {
		t.Fatalf("expected argument decode error")
	}
}

func TestFromResponseCollectsTextAndCalls(t *testing.T) {
	resp := &vertexgenai.GenerateContentResponse{Candidates: []*vertexgenai.Candidate{{
		Content: &vertexgenai.Content{Role: "model", Parts: []vertexgenai.Part{
			vertexgenai.Text("Looking that up."),
			vertexgenai.FunctionCall{Name: "search_books", Args: map[string]any{"query": "space"}},
		}},
	}}}

	msg, err := fromResponse(resp)
	if err != nil {
		t.Fatalf("fromResponse: %v", err)
	}
	if msg.Content != "Looking that up." {
		t.Fatalf("content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "search_books" || msg.ToolCalls[0].ID == "" {
		t.Fatalf("unexpected tool calls %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Arguments != `{"query":"space"}` {
		t.Fatalf("arguments = %s", msg.ToolCalls[0].Arguments)
	}
}

func TestSchemaFromMap(t *testing.T) {
	s := schemaFromMap(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "what to look for"},
			"k":     map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	})
	if s.Type != vertexgenai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	if s.Properties["query"].Type != vertexgenai.TypeString || s.Properties["query"].Description != "what to look for" {
		t.Fatalf("query schema = %+v", s.Properties["query"])
	}
	if s.Properties["k"].Type != vertexgenai.TypeInteger {
		t.Fatalf("k schema = %+v", s.Properties["k"])
	}
	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Fatalf("required = %v", s.Required)
	}
}
