package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/providers/stt"
	"github.com/yoockh/bookbot/internal/utils"
)

const MsgNotUnderstood = "Could not understand the audio"

type SpeechRequest struct {
	Audio     []byte
	Language  string
	Username  string
	RequestID string
}

type SpeechResponse struct {
	Message    string  `json:"message"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type SpeechService interface {
	Chat(ctx context.Context, req SpeechRequest) (*SpeechResponse, error)
}

type speechService struct {
	stt     stt.Provider
	chat    ChatService
	timeout time.Duration
	log     *logrus.Logger
}

func NewSpeechService(p stt.Provider, chat ChatService, timeout time.Duration, log *logrus.Logger) SpeechService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &speechService{stt: p, chat: chat, timeout: timeout, log: log}
}

func (s *speechService) Chat(ctx context.Context, req SpeechRequest) (*SpeechResponse, error) {
	const op = "SpeechService.Chat"

	if s.stt == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition is not configured", nil)
	}
	if len(req.Audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	text, conf, err := s.stt.Transcribe(sctx, req.Audio, req.Language)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, utils.E(utils.CodeTimeout, op, "speech recognition timed out", err)
		}
		return nil, utils.E(utils.CodeUpstream, op, "speech recognition failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, MsgNotUnderstood, nil)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"username":   req.Username,
		"confidence": conf,
	}).Debug("speech transcribed")

	noImage := false
	resp, err := s.chat.Chat(ctx, ChatRequest{
		Prompt:        text,
		GenerateImage: &noImage,
		Username:      req.Username,
		RequestID:     req.RequestID,
		Source:        "speech",
	})
	if err != nil {
		return nil, err
	}
	return &SpeechResponse{Message: resp.Message, Transcript: text, Confidence: conf}, nil
}
