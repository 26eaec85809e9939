package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/metrics"
	"github.com/yoockh/bookbot/internal/models"
	"github.com/yoockh/bookbot/internal/providers/llm"
	mongorepo "github.com/yoockh/bookbot/internal/repositories/mongo"
	"github.com/yoockh/bookbot/internal/utils"
)

const (
	SystemPrompt = `You are a virtual librarian and book consultant.
Style: concise, friendly, clear. Do not reveal reasoning steps.
Goal: respond to fit user's request.
When relevant, take into account: Genre, Tone, Audience, Rating, Year.
Do not invent information: use only the provided context.`

	MsgRespectful = "Please speak respectfully 🙂."
	MsgNoMatch    = "I couldn't find a good match."

	DefaultMaxToolRounds = 5
	DefaultModelTimeout  = 60 * time.Second
)

type ToolRunner interface {
	Definitions() []llm.Tool
	Call(ctx context.Context, name, arguments string) (payload string, failed bool)
}

type TitleIndex interface {
	MatchTitle(text string) (string, bool)
	Summary(title string) (string, bool)
}

type CoverSaver interface {
	SaveCover(ctx context.Context, png []byte) ([]string, error)
}

type ChatRequest struct {
	Prompt        string
	GenerateImage *bool
	Username      string
	RequestID     string
	Source        string
}

func (r ChatRequest) wantsImage() bool {
	return r.GenerateImage == nil || *r.GenerateImage
}

type ChatResponse struct {
	Message  string  `json:"message"`
	Summary  *string `json:"summary"`
	Title    *string `json:"title"`
	ImageB64 *string `json:"image_b64"`

	// Blocked is set when the prompt never reached the model.
	Blocked bool `json:"-"`
	Rounds  int  `json:"-"`
}

type ChatService interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatConfig struct {
	Model   llm.Provider
	Tools   ToolRunner
	Titles  TitleIndex
	Images  llm.ImageGenerator
	Covers  CoverSaver
	Logs    mongorepo.ChatLogRepository
	Metrics *metrics.Metrics
	Log     *logrus.Logger

	MaxToolRounds int
	ModelTimeout  time.Duration
	// IsProfane defaults to the package IsProfane.
	IsProfane func(string) bool
}

type chatService struct {
	cfg ChatConfig
}

func NewChatService(cfg ChatConfig) ChatService {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	if cfg.IsProfane == nil {
		cfg.IsProfane = IsProfane
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	return &chatService{cfg: cfg}
}

func (s *chatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	const op = "ChatService.Chat"

	query := strings.TrimSpace(req.Prompt)
	if query == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "prompt is required", nil)
	}
	if s.cfg.IsProfane(query) {
		s.cfg.Metrics.Profanity()
		return &ChatResponse{Message: MsgRespectful, Blocked: true}, nil
	}

	entry := s.cfg.Log.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"username":   req.Username,
	})

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: query},
	}
	defs := s.cfg.Tools.Definitions()

	var (
		reply  llm.Message
		rounds int
		calls  []models.ToolCallLog
	)
	for {
		declared := defs
		if rounds >= s.cfg.MaxToolRounds {
			// out of rounds: ask once more with no tools so the model has to answer
			declared = nil
		}
		var err error
		reply, err = s.complete(ctx, msgs, declared)
		if err != nil {
			return nil, s.modelError(op, err)
		}
		if len(reply.ToolCalls) == 0 || declared == nil {
			break
		}

		rounds++
		msgs = append(msgs, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, tc := range reply.ToolCalls {
			payload, failed := s.cfg.Tools.Call(ctx, tc.Name, tc.Arguments)
			s.cfg.Metrics.ToolCall(tc.Name, failed)
			if failed {
				entry.WithFields(logrus.Fields{"tool": tc.Name, "result": payload}).Warn("tool call failed")
			}
			calls = append(calls, models.ToolCallLog{Name: tc.Name, Arguments: tc.Arguments, Failed: failed})
			msgs = append(msgs, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Content:    payload,
			})
		}
	}
	s.cfg.Metrics.ObserveRounds(rounds)

	text := strings.TrimSpace(reply.Content)
	resp := &ChatResponse{Message: text, Rounds: rounds}
	if text == "" {
		resp.Message = MsgNoMatch
	}

	if title, ok := s.cfg.Titles.MatchTitle(text); ok {
		resp.Title = &title
		if summary, ok := s.cfg.Titles.Summary(title); ok {
			resp.Summary = &summary
		}
		if req.wantsImage() {
			resp.ImageB64 = s.cover(ctx, entry, title)
		}
	}

	s.record(ctx, entry, req, query, resp, calls)
	return resp, nil
}

func (s *chatService) complete(ctx context.Context, msgs []llm.Message, tools []llm.Tool) (llm.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	reply, err := s.cfg.Model.Complete(ctx, msgs, tools)
	if err != nil {
		s.cfg.Metrics.ModelCall("error")
		return llm.Message{}, err
	}
	s.cfg.Metrics.ModelCall("ok")
	return reply, nil
}

func (s *chatService) modelError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return utils.E(utils.CodeTimeout, op, "model request timed out", err)
	case errors.Is(err, context.Canceled):
		return utils.E(utils.CodeUnavailable, op, "request cancelled", err)
	default:
		return utils.E(utils.CodeUpstream, op, "model request failed", err)
	}
}

// cover generates and stores an illustration for title. Every failure is
// logged and yields nil so the answer itself is never lost.
func (s *chatService) cover(ctx context.Context, entry *logrus.Entry, title string) *string {
	if s.cfg.Images == nil {
		return nil
	}
	entry = entry.WithField("title", title)

	prompt := fmt.Sprintf("An artistic book cover style illustration for '%s'", title)
	b64, err := s.cfg.Images.GenerateImage(ctx, prompt)
	if err != nil {
		s.cfg.Metrics.Image("error")
		entry.WithError(err).Warn("cover generation failed")
		return nil
	}
	png, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		s.cfg.Metrics.Image("error")
		entry.WithError(err).Warn("cover image is not valid base64")
		return nil
	}
	s.cfg.Metrics.Image("ok")

	if s.cfg.Covers != nil {
		stored, err := s.cfg.Covers.SaveCover(ctx, png)
		if err != nil {
			entry.WithError(err).Warn("cover not stored")
		}
		if len(stored) > 0 {
			entry.WithField("stored", stored).Debug("cover stored")
		}
	}
	return &b64
}

func (s *chatService) record(ctx context.Context, entry *logrus.Entry, req ChatRequest, query string, resp *ChatResponse, calls []models.ToolCallLog) {
	entry.WithFields(logrus.Fields{
		"rounds":     resp.Rounds,
		"tool_calls": len(calls),
		"title":      deref(resp.Title),
		"image":      resp.ImageB64 != nil,
	}).Info("chat answered")

	if s.cfg.Logs == nil {
		return
	}
	source := req.Source
	if source == "" {
		source = "text"
	}
	// detached from client cancellation, bounded by its own timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.cfg.Logs.Insert(ctx, &models.ChatLog{
		RequestID: req.RequestID,
		Username:  req.Username,
		Prompt:    query,
		Message:   resp.Message,
		Title:     resp.Title,
		ToolCalls: calls,
		Rounds:    resp.Rounds,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		entry.WithError(err).Warn("chat log not stored")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
