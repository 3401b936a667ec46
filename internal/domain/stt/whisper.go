package stt

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"avatar-server-go/internal/platform/config"
	platformerrors "avatar-server-go/internal/platform/errors"
)

// Transcription is the recognized text plus the language the model heard.
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Backend runs speech recognition on an audio file.
type Backend interface {
	Transcribe(ctx context.Context, path, language string) (Transcription, error)
}

type whisperBackend struct {
	client *openai.Client
	model  string
}

// NewWhisperBackend transcribes via a Whisper-compatible endpoint. An empty
// language lets the model detect it.
func NewWhisperBackend(cfg config.STTConfig) Backend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &whisperBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ModelName,
	}
}

func (w *whisperBackend) Transcribe(ctx context.Context, path, language string) (Transcription, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return Transcription{}, platformerrors.Wrap(platformerrors.KindUpstream, "stt.transcribe", "transcription request failed", err)
	}

	lang := resp.Language
	if lang == "" {
		lang = language
	}
	return Transcription{Text: resp.Text, Language: lang}, nil
}
