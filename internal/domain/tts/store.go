package tts

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/go-mp3"

	platformerrors "avatar-server-go/internal/platform/errors"
)

// Artifact is a persisted, content-addressed audio file. Once written it is
// never modified; the file's presence at its derived path is the cache.
type Artifact struct {
	ID         string
	Path       string
	PublicPath string
	Duration   time.Duration
}

// Store keeps audio artifacts in a shared directory, named by content hash.
type Store struct {
	dir          string
	publicPrefix string
}

func NewStore(dir, publicPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "tts.store", "failed to create output directory", err)
	}
	return &Store{dir: dir, publicPrefix: publicPrefix}, nil
}

// Fingerprint addresses an artifact by its text and resolved language.
func Fingerprint(text, lang string) string {
	sum := md5.Sum([]byte(text + "_" + lang))
	return hex.EncodeToString(sum[:])
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) artifact(id string) Artifact {
	path := filepath.Join(s.dir, id+".mp3")
	return Artifact{
		ID:         id,
		Path:       path,
		PublicPath: s.publicPrefix + "/" + id + ".mp3",
		Duration:   probeDuration(path),
	}
}

// Lookup reports whether an artifact already exists for the given id.
func (s *Store) Lookup(id string) (Artifact, bool) {
	path := filepath.Join(s.dir, id+".mp3")
	if _, err := os.Stat(path); err != nil {
		return Artifact{}, false
	}
	return s.artifact(id), true
}

// Write persists audio under its content address. The write goes through a
// temp file and a rename so readers never observe a partial artifact.
func (s *Store) Write(id string, audio []byte) (Artifact, error) {
	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return Artifact{}, platformerrors.Wrap(platformerrors.KindInternal, "tts.store", "failed to create temp file", err)
	}

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, platformerrors.Wrap(platformerrors.KindInternal, "tts.store", "failed to write audio", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, platformerrors.Wrap(platformerrors.KindInternal, "tts.store", "failed to close temp file", err)
	}

	path := filepath.Join(s.dir, id+".mp3")
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, platformerrors.Wrap(platformerrors.KindInternal, "tts.store", "failed to publish artifact", err)
	}

	return s.artifact(id), nil
}

// Writable verifies the output directory accepts writes, for health checks.
func (s *Store) Writable() error {
	probe, err := os.CreateTemp(s.dir, "probe.*.tmp")
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindInternal, "tts.store", "output directory not writable", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// probeDuration decodes just enough of the file to report its length.
// Failures yield zero rather than an error; duration is advisory.
func probeDuration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0
	}

	// Length reports decoded PCM bytes: 16-bit stereo, 4 bytes per sample.
	samples := decoder.Length() / 4
	if decoder.SampleRate() <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(decoder.SampleRate())
}
