package llm

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector identifies the language of a user message. The boolean reports
// whether detection produced a usable result.
type Detector interface {
	Detect(text string) (string, bool)
}

var regionAliases = map[string]string{
	"en":    "en",
	"fr":    "fr",
	"ar":    "ar",
	"ar-ma": "ar",
	"fr-fr": "fr",
	"en-us": "en",
	"en-gb": "en",
}

// NormalizeLanguage folds regional variants onto the supported base codes.
// Anything unrecognised falls back to English.
func NormalizeLanguage(lang string) string {
	if code, ok := regionAliases[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return code
	}
	return "en"
}

type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to the languages the avatar
// speaks. Restricting the set keeps short-message detection reliable.
func NewDetector() Detector {
	languages := []lingua.Language{
		lingua.French,
		lingua.English,
		lingua.Arabic,
	}

	return &linguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

func (d *linguaDetector) Detect(text string) (string, bool) {
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
