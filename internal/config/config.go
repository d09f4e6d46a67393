// Package config loads server and CLI settings from an optional YAML file overlaid with
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Load when the merged settings fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	BackendQdrant   = "qdrant"
	BackendPgVector = "pgvector"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Store struct {
		Backend     string `yaml:"backend"`
		QdrantHost  string `yaml:"qdrant_host"`
		QdrantPort  int    `yaml:"qdrant_port"`
		Collection  string `yaml:"collection"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`

	Embedding struct {
		Provider      string  `yaml:"provider"`
		Model         string  `yaml:"model"`
		Dimension     int     `yaml:"dimension"`
		BatchSize     int     `yaml:"batch_size"`
		RateLimit     float64 `yaml:"rate_limit"`
		OllamaBaseURL string  `yaml:"ollama_base_url"`
		OpenAIAPIKey  string  `yaml:"-"`
	} `yaml:"embedding"`

	TOC struct {
		CachePath string `yaml:"cache_path"`
		MaxItems  int    `yaml:"max_items"`
		MaxDepth  int    `yaml:"max_depth"`
	} `yaml:"toc"`

	Server struct {
		Port       string `yaml:"port"`
		ServerMode bool   `yaml:"server_mode"`
		Stateless  bool   `yaml:"stateless"`
	} `yaml:"server"`

	GitHub struct {
		Token string `yaml:"-"`
	} `yaml:"-"`
}

// DefaultLocations are searched, in order, when Load is given an empty path.
var DefaultLocations = []string{
	"config.yaml",
	"config.yml",
	filepath.Join(os.Getenv("HOME"), ".config/idea-toc/config.yaml"),
}

// Load reads the YAML file at path (or the first of DefaultLocations that exists), overlays
// environment variables, fills defaults and validates the result. No file at all is fine.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TOC_CONFIG")
	}
	if path == "" {
		for _, loc := range DefaultLocations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendQdrant
	}
	if cfg.Store.QdrantHost == "" {
		cfg.Store.QdrantHost = "localhost"
	}
	if cfg.Store.QdrantPort == 0 {
		cfg.Store.QdrantPort = 6334
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "ideas"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		if cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.Model = "nomic-embed-text"
		} else {
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}
	if cfg.Embedding.Dimension == 0 {
		if cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.Dimension = 768
		} else {
			cfg.Embedding.Dimension = 1536
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.RateLimit == 0 {
		cfg.Embedding.RateLimit = 5
	}
	if cfg.Embedding.OllamaBaseURL == "" {
		cfg.Embedding.OllamaBaseURL = "http://localhost:11434"
	}

	if cfg.TOC.CachePath == "" {
		cfg.TOC.CachePath = "toc_cache.json"
	}
	if cfg.TOC.MaxItems == 0 {
		cfg.TOC.MaxItems = 500
	}
	if cfg.TOC.MaxDepth == 0 {
		cfg.TOC.MaxDepth = 3
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
}

func mergeWithEnv(cfg *Config) {
	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.QdrantHost, "QDRANT_HOST")
	setInt(&cfg.Store.QdrantPort, "QDRANT_PORT")
	setString(&cfg.Store.Collection, "QDRANT_COLLECTION")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimension, "EMBEDDING_DIMENSION")
	setString(&cfg.Embedding.OllamaBaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.Embedding.OpenAIAPIKey, "OPENAI_API_KEY")

	setString(&cfg.TOC.CachePath, "TOC_CACHE_PATH")
	setInt(&cfg.TOC.MaxItems, "TOC_MAX_ITEMS")
	setInt(&cfg.TOC.MaxDepth, "TOC_MAX_DEPTH")

	setString(&cfg.Server.Port, "PORT")
	if v := os.Getenv("SERVER_MODE"); v != "" {
		cfg.Server.ServerMode = v == "true"
	}
	if v := os.Getenv("MCP_STATELESS"); v != "" {
		cfg.Server.Stateless = v == "true"
	}

	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse, keeping whatever the file or default says.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
