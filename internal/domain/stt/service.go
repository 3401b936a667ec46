package stt

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
)

// ErrArtifactNotFound reports a transcription request for an audio id with
// no file behind it.
var ErrArtifactNotFound = platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "audio file not found")

// Service validates uploads and stored artifacts before handing them to the
// recognition backend.
type Service struct {
	backend  Backend
	audioDir string
	logger   *logging.Logger
}

func NewService(backend Backend, audioDir string, logger *logging.Logger) *Service {
	return &Service{backend: backend, audioDir: audioDir, logger: logger}
}

// Transcribe recognizes an uploaded audio file. The upload is staged to a
// temp file for the backend and removed afterwards.
func (s *Service) Transcribe(ctx context.Context, filename, contentType string, audio []byte, language string) (Transcription, error) {
	if filename == "" {
		return Transcription{}, platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "audio file required")
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return Transcription{}, platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "file must be an audio file")
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}
	tmp, err := os.CreateTemp("", "upload.*"+ext)
	if err != nil {
		return Transcription{}, platformerrors.Wrap(platformerrors.KindInternal, "stt.transcribe", "failed to stage upload", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return Transcription{}, platformerrors.Wrap(platformerrors.KindInternal, "stt.transcribe", "failed to stage upload", err)
	}
	if err := tmp.Close(); err != nil {
		return Transcription{}, platformerrors.Wrap(platformerrors.KindInternal, "stt.transcribe", "failed to stage upload", err)
	}

	return s.run(ctx, tmp.Name(), language)
}

// TranscribeStored recognizes an artifact already present in the shared
// audio directory.
func (s *Service) TranscribeStored(ctx context.Context, audioID, language string) (Transcription, error) {
	if audioID == "" {
		return Transcription{}, platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "audio_id required")
	}
	if !validAudioID(audioID) {
		return Transcription{}, platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "invalid audio_id")
	}

	path := filepath.Join(s.audioDir, audioID+".wav")
	if _, err := os.Stat(path); err != nil {
		return Transcription{}, ErrArtifactNotFound
	}

	s.logger.InfoTag("stt", "transcribing stored artifact %s", audioID)
	return s.run(ctx, path, language)
}

func (s *Service) run(ctx context.Context, path, language string) (Transcription, error) {
	result, err := s.backend.Transcribe(ctx, path, language)
	if err != nil {
		return Transcription{}, err
	}

	result.Text = strings.TrimSpace(result.Text)
	if result.Text == "" {
		return Transcription{}, platformerrors.New(platformerrors.KindValidation, "stt.transcribe", "no transcribed text detected")
	}
	if result.Language == "" {
		result.Language = "en"
	}

	s.logger.InfoTag("stt", "transcription succeeded: %q (lang %s)", head(result.Text, 50), result.Language)
	return result, nil
}

// validAudioID accepts only content-hash ids, so the id can never name a
// path outside the artifact directory.
func validAudioID(id string) bool {
	if len(id) != 32 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
