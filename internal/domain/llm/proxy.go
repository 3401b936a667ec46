package llm

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
	"avatar-server-go/internal/resilience"
)

// proxyTimeout covers a full synthesis round trip, which can take a while
// for long passages.
const proxyTimeout = 180 * time.Second

type synthesisRequest struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	AudioID string `json:"audio_id"`
}

type SynthesisResult struct {
	AudioPath string `json:"audioPath"`
}

// TTSProxy forwards synthesis requests to the TTS service with retries.
type TTSProxy struct {
	client  *http.Client
	baseURL string
	policy  resilience.Policy
	logger  *logging.Logger
}

func NewTTSProxy(baseURL string, policy resilience.Policy, logger *logging.Logger) *TTSProxy {
	return &TTSProxy{
		client:  &http.Client{Timeout: proxyTimeout},
		baseURL: baseURL,
		policy:  policy,
		logger:  logger,
	}
}

// AudioFingerprint is the content address shared with the TTS service. Both
// sides must derive the same id for the same text and language.
func AudioFingerprint(text, lang string) string {
	sum := md5.Sum([]byte(text + "_" + lang))
	return hex.EncodeToString(sum[:])
}

func (p *TTSProxy) Synthesize(ctx context.Context, text, lang string) (*SynthesisResult, error) {
	audioID := AudioFingerprint(text, lang)
	p.logger.InfoTag("tts-proxy", "requesting audio for %q (lang %s, id %s)", truncate(text, 50), lang, audioID)

	payload, err := sonic.Marshal(synthesisRequest{Text: text, Lang: lang, AudioID: audioID})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindInternal, "tts.proxy", "failed to encode request", err)
	}

	var result SynthesisResult
	err = resilience.Retry(ctx, p.policy, func(ctx context.Context) error {
		start := time.Now()
		defer func() {
			p.logger.InfoTag("tts-proxy", "synthesis request took %s", time.Since(start).Round(time.Millisecond))
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate-tts/", bytes.NewReader(payload))
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindInternal, "tts.proxy", "failed to build request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransient, "tts.proxy", "synthesis request failed", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransient, "tts.proxy", "failed to read response", err)
		}
		if resp.StatusCode != http.StatusOK {
			return platformerrors.New(platformerrors.KindUpstream, "tts.proxy",
				"synthesis service returned "+resp.Status)
		}
		if err := sonic.Unmarshal(body, &result); err != nil {
			return platformerrors.Wrap(platformerrors.KindUpstream, "tts.proxy", "malformed synthesis response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.InfoTag("tts-proxy", "audio ready at %s", result.AudioPath)
	return &result, nil
}

// TimedOut reports whether the failure chain ends in a timeout, which maps
// to a gateway timeout at the HTTP boundary.
func TimedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
