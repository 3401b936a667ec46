package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Speech holds the static language/speaker inventory shared by the synthesis
// and transcription services.
type Speech struct {
	Languages []string `yaml:"languages"`
	Speakers  []string `yaml:"speakers"`
}

// DefaultSpeech is the hard-coded fallback used when the speech file is
// absent or unreadable.
func DefaultSpeech() *Speech {
	return &Speech{
		Languages: []string{"fr", "en", "ar"},
		Speakers:  []string{"female-pt-4", "male-en-1"},
	}
}

// LoadSpeech reads the speech inventory file. Any failure falls back to the
// built-in inventory; the returned error reports why, but is not fatal.
func LoadSpeech(path string) (*Speech, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultSpeech(), err
	}

	speech := &Speech{}
	if err := yaml.Unmarshal(raw, speech); err != nil {
		return DefaultSpeech(), err
	}
	if len(speech.Languages) == 0 {
		speech.Languages = DefaultSpeech().Languages
	}
	if len(speech.Speakers) == 0 {
		speech.Speakers = DefaultSpeech().Speakers
	}

	return speech, nil
}

// SupportsLanguage reports whether lang is in the inventory.
func (s *Speech) SupportsLanguage(lang string) bool {
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// SupportsSpeaker reports whether speaker is in the inventory.
func (s *Speech) SupportsSpeaker(speaker string) bool {
	for _, sp := range s.Speakers {
		if sp == speaker {
			return true
		}
	}
	return false
}
