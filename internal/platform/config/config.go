package config

import "time"

type Config struct {
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	STT       STTConfig       `yaml:"stt"`
	Cache     CacheConfig     `yaml:"cache"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Speech    SpeechConfig    `yaml:"speech"`
	Services  []ServiceConfig `yaml:"services"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	ModelName   string  `yaml:"model_name"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type STTConfig struct {
	BaseURL   string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	ModelName string `yaml:"model_name"`
}

type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSec     int `yaml:"ttl"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

type SynthesisConfig struct {
	OutputDir     string            `yaml:"output_dir"`
	PublicPrefix  string            `yaml:"public_prefix"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	RetryAttempts int               `yaml:"retry_attempts"`
	RetryBackoff  int               `yaml:"retry_backoff"`
	Voices        map[string]string `yaml:"voices"`
}

func (c SynthesisConfig) Backoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Second
}

// SpeechConfig points at the static languages/speakers file shared by the
// synthesis and transcription services.
type SpeechConfig struct {
	Path string `yaml:"path"`
}

// ServiceConfig describes one supervised service. Never mutated after load.
type ServiceConfig struct {
	Name           string   `yaml:"name"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	Port           int      `yaml:"port"`
	HealthPath     string   `yaml:"health_path"`
	StartupSec     int      `yaml:"startup_timeout"`
	ExpectedStatus string   `yaml:"expected_status"`
}

func (c ServiceConfig) StartupTimeout() time.Duration {
	return time.Duration(c.StartupSec) * time.Second
}

// Service returns the service entry with the given name, or nil.
func (c *Config) Service(name string) *ServiceConfig {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i]
		}
	}
	return nil
}
