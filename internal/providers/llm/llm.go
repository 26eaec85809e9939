package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a chat transcript. Assistant turns may carry tool
// calls; tool turns answer one call via ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// Tool declares a callable function. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Provider interface {
	// Complete sends the transcript and returns the next assistant message.
	// With no tools declared the model must answer in text.
	Complete(ctx context.Context, msgs []Message, tools []Tool) (Message, error)
	Close() error
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type ImageGenerator interface {
	// GenerateImage returns the image as base64.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
