package tts

import (
	"context"
	"strings"

	"avatar-server-go/internal/platform/config"
	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
	"avatar-server-go/internal/resilience"
)

// Request is one synthesis job. AudioID and Speaker are optional; a missing
// AudioID is derived from the content.
type Request struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	AudioID string `json:"audio_id"`
	Speaker string `json:"speaker"`
}

var supportedLanguages = map[string]string{
	"fr":    "fr",
	"en":    "en",
	"ar":    "ar",
	"fr-fr": "fr",
	"en-us": "en",
	"ar-ma": "ar",
}

// Pipeline runs synthesis requests through the content-addressed store,
// bounding concurrent engine work with a limiter.
type Pipeline struct {
	engine  Engine
	store   *Store
	limiter *resilience.Limiter
	speech  *config.Speech
	voices  map[string]string
	policy  resilience.Policy
	logger  *logging.Logger
}

func NewPipeline(engine Engine, store *Store, limiter *resilience.Limiter, speech *config.Speech, cfg config.SynthesisConfig, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		engine:  engine,
		store:   store,
		limiter: limiter,
		speech:  speech,
		voices:  cfg.Voices,
		policy:  resilience.Policy{MaxAttempts: cfg.RetryAttempts, Backoff: cfg.Backoff()},
		logger:  logger,
	}
}

func (p *Pipeline) Store() *Store {
	return p.store
}

func (p *Pipeline) InFlight() int64 {
	return p.limiter.InFlight()
}

func normalizeLanguage(lang string) (string, bool) {
	code, ok := supportedLanguages[strings.ToLower(strings.TrimSpace(lang))]
	return code, ok
}

// Synthesize resolves a request to an audio artifact, generating one only
// when no artifact exists for its content hash. The cache-hit fast path does
// not consume a limiter slot.
func (p *Pipeline) Synthesize(ctx context.Context, req Request) (Artifact, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Artifact{}, platformerrors.New(platformerrors.KindValidation, "tts.synthesize", "text cannot be empty")
	}

	lang, ok := normalizeLanguage(req.Lang)
	if !ok {
		return Artifact{}, platformerrors.New(platformerrors.KindValidation, "tts.synthesize",
			"unsupported language "+req.Lang+" (expected fr, en, ar)")
	}

	if req.Speaker != "" && !p.speech.SupportsSpeaker(req.Speaker) {
		return Artifact{}, platformerrors.New(platformerrors.KindValidation, "tts.synthesize",
			"unsupported speaker "+req.Speaker)
	}

	id := Fingerprint(req.Text, lang)
	if artifact, ok := p.store.Lookup(id); ok {
		p.logger.InfoTag("tts", "artifact cache hit for %s", id)
		return artifact, nil
	}

	// Callers may pin their own id; it addresses the same content when both
	// sides derive it the same way.
	if req.AudioID != "" && req.AudioID != id {
		if artifact, ok := p.store.Lookup(req.AudioID); ok {
			p.logger.InfoTag("tts", "artifact cache hit for %s", req.AudioID)
			return artifact, nil
		}
		id = req.AudioID
	}

	voice, ok := p.voices[lang]
	if !ok {
		return Artifact{}, platformerrors.New(platformerrors.KindConfig, "tts.synthesize",
			"no voice configured for language "+lang)
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return Artifact{}, err
	}
	defer p.limiter.Release()

	p.logger.InfoTag("tts", "generating audio for %q (lang %s, id %s)", head(req.Text, 50), lang, id)

	var audio []byte
	err := resilience.Retry(ctx, p.policy, func(ctx context.Context) error {
		data, err := p.engine.Generate(ctx, req.Text, voice)
		if err != nil {
			return err
		}
		audio = data
		return nil
	})
	if err != nil {
		return Artifact{}, err
	}

	artifact, err := p.store.Write(id, audio)
	if err != nil {
		return Artifact{}, err
	}
	p.logger.InfoTag("tts", "generated %s (%d bytes, %.1fs)", artifact.ID, len(audio), artifact.Duration.Seconds())
	return artifact, nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
