package config

// Default returns the built-in configuration. The service fleet mirrors the
// deployment this system replaces: synthesis on :5000, transcription on
// :5002 (longer startup, the speech model has to load), the public API on
// :5001.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "INFO",
			Dir:   "logs",
			File:  "server.log",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKey:      "${GROQ_API_KEY}",
			ModelName:   "meta-llama/llama-4-scout-17b-16e-instruct",
			MaxTokens:   200,
			Temperature: 0.5,
			TimeoutSec:  30,
		},
		STT: STTConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKey:    "${GROQ_API_KEY}",
			ModelName: "whisper-large-v3",
		},
		Cache: CacheConfig{
			MaxEntries: 500,
			TTLSec:     86400,
		},
		Synthesis: SynthesisConfig{
			OutputDir:     "audios",
			PublicPrefix:  "/audios",
			MaxConcurrent: 5,
			RetryAttempts: 3,
			RetryBackoff:  2,
			Voices: map[string]string{
				"fr": "fr-FR-DeniseNeural",
				"en": "en-US-AriaNeural",
				"ar": "ar-SA-ZariyahNeural",
			},
		},
		Speech: SpeechConfig{
			Path: "speech.yaml",
		},
		Services: []ServiceConfig{
			{
				Name:           "tts",
				Command:        "./avatar-tts",
				Port:           5000,
				HealthPath:     "/health",
				StartupSec:     30,
				ExpectedStatus: "healthy",
			},
			{
				Name:           "stt",
				Command:        "./avatar-stt",
				Port:           5002,
				HealthPath:     "/health",
				StartupSec:     45,
				ExpectedStatus: "healthy",
			},
			{
				Name:           "api",
				Command:        "./avatar-api",
				Port:           5001,
				HealthPath:     "/health",
				StartupSec:     20,
				ExpectedStatus: "healthy",
			},
		},
	}
}
