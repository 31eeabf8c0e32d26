package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig points at one model endpoint. Provider selects the client
// flavor ("ollama" or "openai") where a config slot supports both.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// DatabaseConfig holds the postgres connection for the pgvector-backed
// retriever.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// RetrieverConfig selects and tunes the text retriever.
type RetrieverConfig struct {
	// Backend is "chromem" or "postgres".
	Backend        string  `yaml:"backend"`
	DBPath         string  `yaml:"db_path"`
	CollectionName string  `yaml:"collection_name"`
	TopK           int     `yaml:"top_k"`
	MinSimilarity  float32 `yaml:"min_similarity"`
}

// ImageConfig tunes the image corpus index and matcher.
type ImageConfig struct {
	CorpusPath string  `yaml:"corpus_path"`
	TopK       int     `yaml:"top_k"`
	Threshold  float32 `yaml:"threshold"`
}

// TimeoutConfig bounds the two network-bound pipeline stages.
// Retrieval is a quick vector lookup; generation is dominated by model
// inference and needs far more headroom.
type TimeoutConfig struct {
	RetrievalSeconds  int `yaml:"retrieval_seconds"`
	GenerationSeconds int `yaml:"generation_seconds"`
}

func (t TimeoutConfig) Retrieval() time.Duration {
	return time.Duration(t.RetrievalSeconds) * time.Second
}

func (t TimeoutConfig) Generation() time.Duration {
	return time.Duration(t.GenerationSeconds) * time.Second
}

type Config struct {
	EmbedLLM    LLMConfig       `yaml:"embed_llm"`
	LocalLLM    LLMConfig       `yaml:"local_llm"`
	CloudLLM    LLMConfig       `yaml:"cloud_llm"`
	Database    DatabaseConfig  `yaml:"database"`
	Retriever   RetrieverConfig `yaml:"retriever"`
	Images      ImageConfig     `yaml:"images"`
	Timeouts    TimeoutConfig   `yaml:"timeouts"`
	DefaultMode string          `yaml:"default_mode"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Retriever.Backend == "" {
		c.Retriever.Backend = "chromem"
	}
	if c.Retriever.TopK <= 0 {
		c.Retriever.TopK = 5
	}
	if c.Images.TopK <= 0 {
		c.Images.TopK = 3
	}
	if c.Images.Threshold <= 0 {
		c.Images.Threshold = 0.35
	}
	if c.Timeouts.RetrievalSeconds <= 0 {
		c.Timeouts.RetrievalSeconds = 10
	}
	if c.Timeouts.GenerationSeconds <= 0 {
		c.Timeouts.GenerationSeconds = 60
	}
	if c.DefaultMode == "" {
		c.DefaultMode = "CLOUD"
	}
}

func (c *Config) Validate() error {
	switch c.Retriever.Backend {
	case "chromem", "postgres":
	default:
		return fmt.Errorf("unknown retriever backend %q", c.Retriever.Backend)
	}
	if c.Retriever.TopK < 1 || c.Retriever.TopK > 10 {
		return fmt.Errorf("retriever top_k %d out of range [1,10]", c.Retriever.TopK)
	}
	return nil
}
