package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// ScorerWeights are the relative weights of the similarity signals. They do
// not need to sum to one; the scorer renormalizes over available signals.
type ScorerWeights struct {
	String    float64 `toml:"string"`
	Phonetic  float64 `toml:"phonetic"`
	Alias     float64 `toml:"alias"`
	Embedding float64 `toml:"embedding"`
}

type ResolutionConfig struct {
	UpperThreshold float64       `toml:"upper_threshold"`
	LowerThreshold float64       `toml:"lower_threshold"`
	TieEpsilon     float64       `toml:"tie_epsilon"`
	TopK           int           `toml:"top_k"`
	Weights        ScorerWeights `toml:"weights"`
}

type AdjudicatorConfig struct {
	MergeFloor     float64 `toml:"merge_floor"`
	DistinctFloor  float64 `toml:"distinct_floor"`
	RetryCount     int     `toml:"retry_count"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxInFlight    int64   `toml:"max_in_flight"`
}

func (a AdjudicatorConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type MergeConfig struct {
	LeaseTimeoutMs      int `toml:"lease_timeout_ms"`
	WriteRetryCount     int `toml:"write_retry_count"`
	WriteRetryBackoffMs int `toml:"write_retry_backoff_ms"`
}

func (m MergeConfig) LeaseTimeout() time.Duration {
	return time.Duration(m.LeaseTimeoutMs) * time.Millisecond
}

func (m MergeConfig) WriteRetryBackoff() time.Duration {
	return time.Duration(m.WriteRetryBackoffMs) * time.Millisecond
}

type ReviewConfig struct {
	DBPath            string  `toml:"db_path"`
	ReattachThreshold float64 `toml:"reattach_threshold"`
}

type PipelineConfig struct {
	Workers    int `toml:"workers"`
	BufferSize int `toml:"buffer_size"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Neo4j       Neo4jConfig       `toml:"neo4j"`
	Resolution  ResolutionConfig  `toml:"resolution"`
	Adjudicator AdjudicatorConfig `toml:"adjudicator"`
	Merge       MergeConfig       `toml:"merge"`
	Review      ReviewConfig      `toml:"review"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Server      ServerConfig      `toml:"server"`
}

// Default returns the deployment defaults. Threshold and weight values are
// configuration, not contract; tests pass their own.
func Default() *Config {
	return &Config{
		Resolution: ResolutionConfig{
			UpperThreshold: 0.9,
			LowerThreshold: 0.5,
			TieEpsilon:     0.05,
			TopK:           3,
			Weights: ScorerWeights{
				String:    0.4,
				Phonetic:  0.2,
				Alias:     0.2,
				Embedding: 0.2,
			},
		},
		Adjudicator: AdjudicatorConfig{
			MergeFloor:     0.85,
			DistinctFloor:  0.7,
			RetryCount:     2,
			TimeoutSeconds: 30,
			MaxInFlight:    4,
		},
		Merge: MergeConfig{
			LeaseTimeoutMs:      5000,
			WriteRetryCount:     3,
			WriteRetryBackoffMs: 200,
		},
		Review: ReviewConfig{
			DBPath:            "nexus-review.db",
			ReattachThreshold: 0.4,
		},
		Pipeline: PipelineConfig{
			Workers:    4,
			BufferSize: 64,
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects threshold configurations the decision policy cannot work
// with.
func (c *Config) Validate() error {
	r := c.Resolution
	if r.UpperThreshold <= 0 || r.UpperThreshold >= 1 {
		return fmt.Errorf("upper_threshold must be in (0,1), got %v", r.UpperThreshold)
	}
	if r.LowerThreshold <= 0 || r.LowerThreshold >= 1 {
		return fmt.Errorf("lower_threshold must be in (0,1), got %v", r.LowerThreshold)
	}
	if r.UpperThreshold <= r.LowerThreshold {
		return fmt.Errorf("upper_threshold (%v) must exceed lower_threshold (%v)",
			r.UpperThreshold, r.LowerThreshold)
	}
	if r.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", r.TopK)
	}
	a := c.Adjudicator
	if a.MergeFloor < 0 || a.MergeFloor > 1 || a.DistinctFloor < 0 || a.DistinctFloor > 1 {
		return fmt.Errorf("adjudicator confidence floors must be in [0,1]")
	}
	return nil
}

// ApplyEnv overlays environment variables onto the loaded configuration.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("REVIEW_DB_PATH"); v != "" {
		c.Review.DBPath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}
