package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// VertexGemini drives Gemini on Vertex AI with function calling. Gemini has
// no tool call ids, so ids are minted here and calls are paired with their
// results by function name.
type VertexGemini struct {
	client      *vertexgenai.Client
	modelName   string
	temperature float32
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName, credentialsFile string) (*VertexGemini, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := vertexgenai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexGemini{client: c, modelName: modelName, temperature: 0.7}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Complete(ctx context.Context, msgs []Message, tools []Tool) (Message, error) {
	system, history, err := toContents(msgs)
	if err != nil {
		return Message{}, err
	}
	if len(history) == 0 {
		return Message{}, errors.New("vertex: empty transcript")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return Message{}, fmt.Errorf("vertex: transcript must end with a user turn, got %q", last.Role)
	}

	// a fresh model handle per call keeps tool and system settings request local
	m := v.client.GenerativeModel(v.modelName)
	m.SetTemperature(v.temperature)
	m.SystemInstruction = system
	if len(tools) > 0 {
		m.Tools = toGenaiTools(tools)
	}

	cs := m.StartChat()
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return Message{}, err
	}
	return fromResponse(resp)
}

func toContents(msgs []Message) (*vertexgenai.Content, []*vertexgenai.Content, error) {
	var system *vertexgenai.Content
	var out []*vertexgenai.Content

	appendParts := func(role string, parts ...vertexgenai.Part) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &vertexgenai.Content{Role: role, Parts: parts})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			if system == nil {
				system = &vertexgenai.Content{}
			}
			system.Parts = append(system.Parts, vertexgenai.Text(msg.Content))
		case RoleUser:
			appendParts("user", vertexgenai.Text(msg.Content))
		case RoleAssistant:
			var parts []vertexgenai.Part
			if msg.Content != "" {
				parts = append(parts, vertexgenai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := decodeArgs(tc.Arguments)
				if err != nil {
					return nil, nil, fmt.Errorf("vertex: tool call %s: %w", tc.Name, err)
				}
				parts = append(parts, vertexgenai.FunctionCall{Name: tc.Name, Args: args})
			}
			if len(parts) > 0 {
				appendParts("model", parts...)
			}
		case RoleTool:
			var payload map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
				payload = map[string]any{"content": msg.Content}
			}
			appendParts("user", vertexgenai.FunctionResponse{Name: msg.Name, Response: payload})
		default:
			return nil, nil, fmt.Errorf("vertex: unknown role %q", msg.Role)
		}
	}
	return system, out, nil
}

func fromResponse(resp *vertexgenai.GenerateContentResponse) (Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Message{}, errors.New("vertex: empty response")
	}
	out := Message{Role: RoleAssistant}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case vertexgenai.Text:
			text.WriteString(string(p))
		case vertexgenai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return Message{}, err
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      p.Name,
				Arguments: string(args),
			})
		}
	}
	out.Content = text.String()
	return out, nil
}

func decodeArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func toGenaiTools(tools []Tool) []*vertexgenai.Tool {
	decls := make([]*vertexgenai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &vertexgenai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFromMap(t.Parameters),
		})
	}
	return []*vertexgenai.Tool{{FunctionDeclarations: decls}}
}

// schemaFromMap converts the JSON schema subset used by tool declarations.
func schemaFromMap(m map[string]any) *vertexgenai.Schema {
	if m == nil {
		return nil
	}
	s := &vertexgenai.Schema{}
	switch m["type"] {
	case "object":
		s.Type = vertexgenai.TypeObject
	case "string":
		s.Type = vertexgenai.TypeString
	case "integer":
		s.Type = vertexgenai.TypeInteger
	case "number":
		s.Type = vertexgenai.TypeNumber
	case "boolean":
		s.Type = vertexgenai.TypeBoolean
	case "array":
		s.Type = vertexgenai.TypeArray
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*vertexgenai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = schemaFromMap(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = schemaFromMap(items)
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}
