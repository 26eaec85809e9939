package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/metrics"
	"github.com/yoockh/bookbot/internal/models"
	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/utils"
)

// scriptedModel replays canned replies and records every transcript.
type scriptedModel struct {
	mu      sync.Mutex
	replies []llm.Message
	// fallback is returned once replies run out
	fallback llm.Message
	err      error
	calls    [][]llm.Message
	tools    [][]llm.Tool
}

func (m *scriptedModel) Complete(ctx context.Context, msgs []llm.Message, tools []llm.Tool) (llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]llm.Message(nil), msgs...))
	m.tools = append(m.tools, tools)
	if m.err != nil {
		return llm.Message{}, m.err
	}
	if len(m.replies) == 0 {
		return m.fallback, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *scriptedModel) Close() error { return nil }

type stubTools struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (t *stubTools) Definitions() []llm.Tool {
	return []llm.Tool{{Name: "search_books"}, {Name: "get_book_summary"}}
}

func (t *stubTools) Call(ctx context.Context, name, arguments string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, name)
	if t.fail[name] {
		return `{"error":"boom"}`, true
	}
	return `{"results":[]}`, false
}

type stubImages struct {
	b64    string
	err    error
	prompt string
}

func (s *stubImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.b64, s.err
}

type stubCovers struct {
	saved [][]byte
	err   error
}

func (s *stubCovers) SaveCover(ctx context.Context, png []byte) ([]string, error) {
	s.saved = append(s.saved, png)
	if s.err != nil {
		return nil, s.err
	}
	return []string{"static/cover.png"}, nil
}

type stubChatLogs struct {
	mu        sync.Mutex
	logs      []models.ChatLog
	lastLimit int64
	err       error
}

func (s *stubChatLogs) Insert(ctx context.Context, l *models.ChatLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *l)
	return nil
}

// RecentByUser returns the user's entries newest first.
func (s *stubChatLogs) RecentByUser(ctx context.Context, username string, limit int64) ([]models.ChatLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	var out []models.ChatLog
	for i := len(s.logs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if s.logs[i].Username == username {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Book{
		{ID: "1", Title: "Dune", Summary: "A desert planet and a prophecy."},
		{ID: "2", Title: "Emma", Summary: "A matchmaker in Highbury."},
	})
}

func toolCall(id, name, args string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func answer(text string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: text}
}

func boolPtr(b bool) *bool { return &b }

func TestChatRunsToolsThenAnswers(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolCall("c1", "search_books", `{"query":"desert"}`),
		toolCall("c2", "get_book_summary", `{"title":"Dune"}`),
		answer("  You should read Dune.  "),
	}}
	tools := &stubTools{}
	images := &stubImages{b64: base64.StdEncoding.EncodeToString([]byte("png-bytes"))}
	covers := &stubCovers{}
	logs := &stubChatLogs{}

	svc := NewChatService(ChatConfig{
		Model: model, Tools: tools, Titles: testCatalog(),
		Images: images, Covers: covers, Logs: logs, Metrics: metrics.New(),
	})
	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "  something with sand  ", Username: "reader"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if resp.Message != "You should read Dune." {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.Title == nil || *resp.Title != "Dune" {
		t.Fatalf("title = %v", resp.Title)
	}
	if resp.Summary == nil || *resp.Summary != "A desert planet and a prophecy." {
		t.Fatalf("summary = %v", resp.Summary)
	}
	if resp.ImageB64 == nil || *resp.ImageB64 != images.b64 {
		t.Fatalf("image not returned")
	}
	if images.prompt != "An artistic book cover style illustration for 'Dune'" {
		t.Fatalf("image prompt = %q", images.prompt)
	}
	if len(covers.saved) != 1 || string(covers.saved[0]) != "png-bytes" {
		t.Fatalf("cover not saved decoded: %v", covers.saved)
	}
	if resp.Rounds != 2 || len(model.calls) != 3 {
		t.Fatalf("rounds = %d, model calls = %d", resp.Rounds, len(model.calls))
	}

	first := model.calls[0]
	if len(first) != 2 || first[0].Role != llm.RoleSystem || first[0].Content != SystemPrompt {
		t.Fatalf("first transcript = %+v", first)
	}
	if first[1].Role != llm.RoleUser || first[1].Content != "something with sand" {
		t.Fatalf("user turn = %+v", first[1])
	}

	last := model.calls[2]
	if len(last) != 6 {
		t.Fatalf("final transcript length = %d, want 6", len(last))
	}
	if last[2].Role != llm.RoleAssistant || last[2].ToolCalls[0].ID != "c1" {
		t.Fatalf("assistant tool turn = %+v", last[2])
	}
	if last[3].Role != llm.RoleTool || last[3].ToolCallID != "c1" || last[3].Name != "search_books" || last[3].Content != `{"results":[]}` {
		t.Fatalf("tool turn = %+v", last[3])
	}

	if len(logs.logs) != 1 || logs.logs[0].Username != "reader" || len(logs.logs[0].ToolCalls) != 2 || logs.logs[0].Source != "text" {
		t.Fatalf("chat log = %+v", logs.logs)
	}
}

func TestChatProfanityNeverReachesModel(t *testing.T) {
	model := &scriptedModel{fallback: answer("should not happen")}
	svc := NewChatService(ChatConfig{
		Model: model, Tools: &stubTools{}, Titles: testCatalog(),
		IsProfane: func(s string) bool { return strings.Contains(s, "darn") },
	})

	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "darn books"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !resp.Blocked || resp.Message != "Please speak respectfully 🙂." {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(model.calls) != 0 {
		t.Fatalf("model was called %d times", len(model.calls))
	}
}

func TestChatDefaultProfanityFilter(t *testing.T) {
	model := &scriptedModel{fallback: answer("nope")}
	svc := NewChatService(ChatConfig{Model: model, Tools: &stubTools{}, Titles: testCatalog()})

	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "recommend a fucking book"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !resp.Blocked || len(model.calls) != 0 {
		t.Fatalf("profanity not blocked: %+v, calls=%d", resp, len(model.calls))
	}
}

func TestChatAuthorNamesReachModel(t *testing.T) {
	for _, prompt := range []string{
		"recommend something by Charles Dickens",
		"Cockney london novels",
		"books like Great Expectations by Dickens",
	} {
		model := &scriptedModel{fallback: answer("Try Oliver Twist.")}
		svc := NewChatService(ChatConfig{Model: model, Tools: &stubTools{}, Titles: testCatalog()})

		resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: prompt})
		if err != nil {
			t.Fatalf("%q: chat: %v", prompt, err)
		}
		if resp.Blocked || len(model.calls) != 1 {
			t.Fatalf("%q was blocked: %+v, calls=%d", prompt, resp, len(model.calls))
		}
	}
}

func TestChatLoopIsBounded(t *testing.T) {
	model := &scriptedModel{fallback: toolCall("again", "search_books", `{"query":"x"}`)}
	tools := &stubTools{}
	svc := NewChatService(ChatConfig{Model: model, Tools: tools, Titles: testCatalog(), MaxToolRounds: 3})

	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "loop forever"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(model.calls) != 4 {
		t.Fatalf("model calls = %d, want rounds+1 = 4", len(model.calls))
	}
	if len(tools.calls) != 3 {
		t.Fatalf("tool calls = %d, want 3", len(tools.calls))
	}
	if model.tools[3] != nil {
		t.Fatalf("final call must not declare tools")
	}
	if resp.Message != MsgNoMatch {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.Title != nil || resp.ImageB64 != nil {
		t.Fatalf("no title expected: %+v", resp)
	}
}

func TestChatToolFailureIsFedBackToModel(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolCall("c1", "search_books", `{"query":"x"}`),
		answer("Sorry, search is down."),
	}}
	tools := &stubTools{fail: map[string]bool{"search_books": true}}
	svc := NewChatService(ChatConfig{Model: model, Tools: tools, Titles: testCatalog()})

	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "anything"})
	if err != nil {
		t.Fatalf("tool failure must not surface: %v", err)
	}
	if resp.Message != "Sorry, search is down." {
		t.Fatalf("message = %q", resp.Message)
	}
	toolTurn := model.calls[1][3]
	if toolTurn.Role != llm.RoleTool || toolTurn.Content != `{"error":"boom"}` {
		t.Fatalf("tool turn = %+v", toolTurn)
	}
}

func TestChatImageFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name   string
		images *stubImages
		covers *stubCovers
		want   bool
	}{
		{"generation error", &stubImages{err: errors.New("quota")}, &stubCovers{}, false},
		{"bad base64", &stubImages{b64: "%%%not-base64"}, &stubCovers{}, false},
		{"sink error keeps image", &stubImages{b64: base64.StdEncoding.EncodeToString([]byte("x"))}, &stubCovers{err: errors.New("disk full")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{fallback: answer("Try Emma.")}
			svc := NewChatService(ChatConfig{
				Model: model, Tools: &stubTools{}, Titles: testCatalog(),
				Images: tc.images, Covers: tc.covers,
			})
			resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "romance"})
			if err != nil {
				t.Fatalf("chat: %v", err)
			}
			if resp.Title == nil || *resp.Title != "Emma" {
				t.Fatalf("title = %v", resp.Title)
			}
			if got := resp.ImageB64 != nil; got != tc.want {
				t.Fatalf("image present = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChatSkipsImageWhenNotRequested(t *testing.T) {
	images := &stubImages{b64: "eA=="}
	svc := NewChatService(ChatConfig{
		Model: &scriptedModel{fallback: answer("Dune it is.")}, Tools: &stubTools{},
		Titles: testCatalog(), Images: images,
	})
	resp, err := svc.Chat(context.Background(), ChatRequest{Prompt: "sci-fi", GenerateImage: boolPtr(false)})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.ImageB64 != nil || images.prompt != "" {
		t.Fatalf("image generated although disabled")
	}
	if resp.Title == nil || *resp.Title != "Dune" {
		t.Fatalf("title should still be matched")
	}
}

func TestChatModelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code utils.Code
	}{
		{"upstream", errors.New("502 from provider"), utils.CodeUpstream},
		{"timeout", context.DeadlineExceeded, utils.CodeTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewChatService(ChatConfig{
				Model: &scriptedModel{err: tc.err}, Tools: &stubTools{}, Titles: testCatalog(),
				ModelTimeout: time.Second,
			})
			_, err := svc.Chat(context.Background(), ChatRequest{Prompt: "hello"})
			if !utils.IsCode(err, tc.code) {
				t.Fatalf("err = %v, want code %s", err, tc.code)
			}
		})
	}
}

func TestChatRejectsEmptyPrompt(t *testing.T) {
	svc := NewChatService(ChatConfig{Model: &scriptedModel{}, Tools: &stubTools{}, Titles: testCatalog()})
	if _, err := svc.Chat(context.Background(), ChatRequest{Prompt: "   "}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
