package llm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
	"avatar-server-go/internal/resilience"
)

// historyWindow bounds how much conversation context is forwarded upstream.
const historyWindow = 5

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Reply struct {
	Text string
	Lang string
}

// Service turns a conversation history into an avatar reply. Results are
// cached by conversation fingerprint and upstream calls are retried.
type Service struct {
	backend  Backend
	detector Detector
	cache    *resilience.Cache
	policy   resilience.Policy
	timeout  time.Duration
	logger   *logging.Logger
}

func NewService(backend Backend, detector Detector, cache *resilience.Cache, policy resilience.Policy, timeout time.Duration, logger *logging.Logger) *Service {
	return &Service{
		backend:  backend,
		detector: detector,
		cache:    cache,
		policy:   policy,
		timeout:  timeout,
		logger:   logger,
	}
}

// Fingerprint derives the cache key for a rendered conversation in a
// resolved language. NUL keeps the two parts from colliding.
func Fingerprint(conversation, lang string) string {
	sum := md5.Sum([]byte(conversation + "\x00" + lang))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Generate(ctx context.Context, history []Message) (Reply, error) {
	if len(history) == 0 {
		return Reply{}, platformerrors.New(platformerrors.KindValidation, "llm.generate", "conversation history cannot be empty")
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	conversation := strings.Join(lines, "\n")

	userMessage := ""
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == "user" {
			userMessage = recent[i].Content
			break
		}
	}
	if strings.TrimSpace(userMessage) == "" {
		return Reply{}, platformerrors.New(platformerrors.KindValidation, "llm.generate", "no user message found in history")
	}

	lang := "en"
	if detected, ok := s.detector.Detect(userMessage); ok {
		lang = NormalizeLanguage(detected)
		s.logger.InfoTag("llm", "detected language %s for message %q", lang, truncate(userMessage, 50))
	} else {
		s.logger.WarnTag("llm", "language detection inconclusive, defaulting to english")
	}

	systemPrompt := SystemPrompt(lang)

	fingerprint := Fingerprint(conversation, lang)
	if cached, ok := s.cache.Get(fingerprint); ok {
		s.logger.InfoTag("llm", "cache hit for fingerprint %s", fingerprint)
		return Reply{Text: cached, Lang: lang}, nil
	}

	var response string
	err := resilience.Retry(ctx, s.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		text, err := s.backend.Chat(callCtx, systemPrompt, conversation)
		if err != nil {
			return err
		}
		s.logger.InfoTag("llm", "upstream call took %s", time.Since(start).Round(time.Millisecond))
		response = text
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	if len(strings.TrimSpace(response)) < 5 {
		s.logger.WarnTag("llm", "response too short, falling back to persona prompt")
		response = systemPrompt
	}
	response = normalizeGreeting(strings.TrimSpace(response))

	s.cache.Put(fingerprint, response)
	s.logger.InfoTag("llm", "generated reply in %s: %s", lang, truncate(response, 80))

	return Reply{Text: response, Lang: lang}, nil
}

// CacheStats exposes the underlying cache counters for the stats report.
func (s *Service) CacheStats() resilience.CacheStats {
	return s.cache.Stats()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
