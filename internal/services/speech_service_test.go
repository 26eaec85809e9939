package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/utils"
)

type stubSTT struct {
	text     string
	conf     float64
	err      error
	language string
}

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	s.language = language
	return s.text, s.conf, s.err
}

func (s *stubSTT) Close() error { return nil }

func TestSpeechChatUsesTranscriptWithoutImage(t *testing.T) {
	images := &stubImages{b64: "eA=="}
	model := &scriptedModel{fallback: answer("Dune is a great pick.")}
	chat := NewChatService(ChatConfig{Model: model, Tools: &stubTools{}, Titles: testCatalog(), Images: images})
	recognizer := &stubSTT{text: " a book about deserts ", conf: 0.91}

	svc := NewSpeechService(recognizer, chat, 0, nil)
	resp, err := svc.Chat(context.Background(), SpeechRequest{Audio: []byte{1, 2, 3}, Language: "en-GB"})
	if err != nil {
		t.Fatalf("speech chat: %v", err)
	}
	if resp.Message != "Dune is a great pick." || resp.Transcript != "a book about deserts" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if recognizer.language != "en-GB" {
		t.Fatalf("language = %q", recognizer.language)
	}
	if images.prompt != "" {
		t.Fatalf("speech chat must not generate images")
	}
	if model.calls[0][1].Content != "a book about deserts" {
		t.Fatalf("prompt = %q", model.calls[0][1].Content)
	}
}

func TestSpeechChatErrors(t *testing.T) {
	chat := NewChatService(ChatConfig{Model: &scriptedModel{}, Tools: &stubTools{}, Titles: testCatalog()})
	tests := []struct {
		name  string
		stt   *stubSTT
		audio []byte
		code  utils.Code
		msg   string
	}{
		{"empty transcript", &stubSTT{text: "  "}, []byte{1}, utils.CodeInvalidArgument, MsgNotUnderstood},
		{"no audio", &stubSTT{text: "hi"}, nil, utils.CodeInvalidArgument, "audio is required"},
		{"engine failure", &stubSTT{err: errors.New("quota")}, []byte{1}, utils.CodeUpstream, "speech recognition failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSpeechService(tc.stt, chat, 0, nil)
			_, err := svc.Chat(context.Background(), SpeechRequest{Audio: tc.audio})
			var ae *utils.AppError
			if !errors.As(err, &ae) || ae.Code != tc.code || ae.Message != tc.msg {
				t.Fatalf("err = %v, want %s %q", err, tc.code, tc.msg)
			}
		})
	}
}

func TestSpeechChatWithoutRecognizer(t *testing.T) {
	svc := NewSpeechService(nil, nil, 0, nil)
	_, err := svc.Chat(context.Background(), SpeechRequest{Audio: []byte{1}})
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

var _ llm.Provider = (*scriptedModel)(nil)
