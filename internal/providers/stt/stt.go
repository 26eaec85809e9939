package stt

import "context"

const (
	DefaultLanguage     = "en-US"
	DefaultSampleRateHz = 16000
)

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
