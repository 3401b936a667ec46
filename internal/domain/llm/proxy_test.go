package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	platformerrors "avatar-server-go/internal/platform/errors"
	platformtesting "avatar-server-go/internal/platform/testing"
	"avatar-server-go/internal/resilience"
)

func testPolicy() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestTTSProxy_Synthesize(t *testing.T) {
	var captured synthesisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate-tts/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write([]byte(`{"audioPath":"/audios/` + captured.AudioID + `.mp3"}`))
	}))
	defer server.Close()

	proxy := NewTTSProxy(server.URL, testPolicy(), platformtesting.SetupTestLogger(t))

	result, err := proxy.Synthesize(context.Background(), "Bonjour tout le monde", "fr")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	wantID := AudioFingerprint("Bonjour tout le monde", "fr")
	if captured.AudioID != wantID {
		t.Errorf("expected audio id %s, got %s", wantID, captured.AudioID)
	}
	if result.AudioPath != "/audios/"+wantID+".mp3" {
		t.Errorf("unexpected audio path %s", result.AudioPath)
	}
}

func TestTTSProxy_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "synthesis engine busy", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"audioPath":"/audios/abc.mp3"}`))
	}))
	defer server.Close()

	proxy := NewTTSProxy(server.URL, testPolicy(), platformtesting.SetupTestLogger(t))

	result, err := proxy.Synthesize(context.Background(), "hello there", "en")
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if result.AudioPath != "/audios/abc.mp3" {
		t.Errorf("unexpected audio path %s", result.AudioPath)
	}
}

func TestTTSProxy_UnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	proxy := NewTTSProxy(server.URL, testPolicy(), platformtesting.SetupTestLogger(t))

	_, err := proxy.Synthesize(context.Background(), "hello there", "en")
	if err == nil {
		t.Fatal("expected an error against a closed server")
	}
	if !platformerrors.IsKind(err, platformerrors.KindTransient) {
		t.Errorf("expected transient kind in chain, got %v", err)
	}
}

func TestAudioFingerprint_Stable(t *testing.T) {
	a := AudioFingerprint("Bonjour", "fr")
	if a != AudioFingerprint("Bonjour", "fr") {
		t.Error("identical inputs must address the same artifact")
	}
	if a == AudioFingerprint("Bonjour", "en") {
		t.Error("language must contribute to the artifact address")
	}
	if len(a) != 32 {
		t.Errorf("expected a 32-char hex digest, got %q", a)
	}
}
