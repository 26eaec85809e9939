package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleSpeech transcribes whole clips with Cloud Speech-to-Text
// synchronous recognition (clips up to about one minute).
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: DefaultSampleRateHz,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	resp, err := g.c.Recognize(ctx, g.request(audio, language))
	if err != nil {
		return "", 0, err
	}
	text, conf := joinResults(resp)
	return text, conf, nil
}

func (g *GoogleSpeech) request(audio []byte, language string) *speechpb.RecognizeRequest {
	if language == "" {
		language = DefaultLanguage
	}
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// joinResults stitches the clip back together. Each result covers the next
// stretch of audio, so the top alternative of every result is kept in
// order. Confidence is the mean over the segments that produced text.
func joinResults(resp *speechpb.RecognizeResponse) (string, float64) {
	if resp == nil {
		return "", 0
	}
	var (
		parts []string
		sum   float64
	)
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		seg := strings.TrimSpace(alts[0].GetTranscript())
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
		sum += float64(alts[0].GetConfidence())
	}
	if len(parts) == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), sum / float64(len(parts))
}
