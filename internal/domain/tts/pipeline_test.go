package tts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"avatar-server-go/internal/platform/config"
	platformerrors "avatar-server-go/internal/platform/errors"
	platformtesting "avatar-server-go/internal/platform/testing"
	"avatar-server-go/internal/resilience"
)

type fakeEngine struct {
	calls     atomic.Int64
	inFlight  atomic.Int64
	maxSeen   atomic.Int64
	failures  int64
	delay     time.Duration
	mu        sync.Mutex
	lastVoice string
}

func (f *fakeEngine) Generate(ctx context.Context, text, voice string) ([]byte, error) {
	call := f.calls.Add(1)
	f.mu.Lock()
	f.lastVoice = voice
	f.mu.Unlock()

	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if current <= max || f.maxSeen.CompareAndSwap(max, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if call <= f.failures {
		return nil, platformerrors.New(platformerrors.KindTransient, "tts.engine", "synthesis failed")
	}
	return []byte("audio:" + text + ":" + voice), nil
}

func newTestPipeline(t *testing.T, engine Engine, capacity int) *Pipeline {
	t.Helper()

	store, err := NewStore(t.TempDir(), "/audios")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cfg := config.SynthesisConfig{
		RetryAttempts: 3,
		RetryBackoff:  0,
		Voices: map[string]string{
			"fr": "fr-FR-DeniseNeural",
			"en": "en-US-AriaNeural",
			"ar": "ar-SA-ZariyahNeural",
		},
	}

	return NewPipeline(engine, store, resilience.NewLimiter(capacity), config.DefaultSpeech(), cfg,
		platformtesting.SetupTestLogger(t))
}

func TestPipeline_GeneratesAndCaches(t *testing.T) {
	engine := &fakeEngine{}
	pipeline := newTestPipeline(t, engine, 5)

	first, err := pipeline.Synthesize(context.Background(), Request{Text: "Bonjour", Lang: "fr"})
	if err != nil {
		t.Fatalf("first synthesis failed: %v", err)
	}
	second, err := pipeline.Synthesize(context.Background(), Request{Text: "Bonjour", Lang: "fr"})
	if err != nil {
		t.Fatalf("second synthesis failed: %v", err)
	}

	if engine.calls.Load() != 1 {
		t.Errorf("expected 1 engine call, got %d", engine.calls.Load())
	}
	if first.Path != second.Path {
		t.Errorf("identical inputs resolved to different artifacts: %s vs %s", first.Path, second.Path)
	}
	if engine.lastVoice != "fr-FR-DeniseNeural" {
		t.Errorf("expected french voice, got %s", engine.lastVoice)
	}
}

func TestPipeline_RegionalVariantNormalized(t *testing.T) {
	engine := &fakeEngine{}
	pipeline := newTestPipeline(t, engine, 5)

	first, err := pipeline.Synthesize(context.Background(), Request{Text: "Bonjour", Lang: "fr-fr"})
	if err != nil {
		t.Fatalf("synthesis failed: %v", err)
	}
	second, err := pipeline.Synthesize(context.Background(), Request{Text: "Bonjour", Lang: "fr"})
	if err != nil {
		t.Fatalf("synthesis failed: %v", err)
	}

	if first.ID != Fingerprint("Bonjour", "fr") {
		t.Errorf("regional variant did not normalize into the base address: %s", first.ID)
	}
	if first.Path != second.Path || engine.calls.Load() != 1 {
		t.Error("fr-fr and fr must share one artifact")
	}
}

func TestPipeline_RejectsUnsupportedLanguage(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEngine{}, 5)

	_, err := pipeline.Synthesize(context.Background(), Request{Text: "Hallo", Lang: "de"})
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPipeline_RejectsEmptyText(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEngine{}, 5)

	_, err := pipeline.Synthesize(context.Background(), Request{Text: "   ", Lang: "fr"})
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPipeline_RejectsUnknownSpeaker(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEngine{}, 5)

	_, err := pipeline.Synthesize(context.Background(), Request{Text: "Hello", Lang: "en", Speaker: "robot-9000"})
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPipeline_RetriesEngineFailures(t *testing.T) {
	engine := &fakeEngine{failures: 2}
	pipeline := newTestPipeline(t, engine, 5)

	_, err := pipeline.Synthesize(context.Background(), Request{Text: "Hello", Lang: "en"})
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if engine.calls.Load() != 3 {
		t.Errorf("expected 3 engine attempts, got %d", engine.calls.Load())
	}
}

func TestPipeline_LimitsConcurrentGeneration(t *testing.T) {
	engine := &fakeEngine{delay: 20 * time.Millisecond}
	pipeline := newTestPipeline(t, engine, 2)

	var wg sync.WaitGroup
	texts := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if _, err := pipeline.Synthesize(context.Background(), Request{Text: text, Lang: "en"}); err != nil {
				t.Errorf("synthesis of %q failed: %v", text, err)
			}
		}(text)
	}
	wg.Wait()

	if max := engine.maxSeen.Load(); max > 2 {
		t.Errorf("engine saw %d concurrent jobs, limit is 2", max)
	}
}
