package tts

import (
	"context"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
)

// Engine produces encoded audio for a text in a given voice.
type Engine interface {
	Generate(ctx context.Context, text, voice string) ([]byte, error)
}

type edgeEngine struct {
	logger *logging.Logger
}

// NewEdgeEngine synthesizes speech through the Edge TTS service.
func NewEdgeEngine(logger *logging.Logger) Engine {
	return &edgeEngine{logger: logger}
}

func (e *edgeEngine) Generate(ctx context.Context, text, voice string) ([]byte, error) {
	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voice))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransient, "tts.engine", "failed to create communicator", err)
	}

	start := time.Now()
	audio, err := communicate.Stream()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransient, "tts.engine", "synthesis failed", err)
	}

	e.logger.DebugTag("tts", "engine produced %d bytes in %s (voice %s)",
		len(audio), time.Since(start).Round(time.Millisecond), voice)
	return audio, nil
}
