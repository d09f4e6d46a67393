package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every invalid field. Credentials are checked by the components that use
// them, so a CLI command that never embeds does not need an API key.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	switch c.Store.Backend {
	case BackendQdrant:
		if c.Store.QdrantPort < 1 || c.Store.QdrantPort > 65535 {
			errs = append(errs, ValidationError{
				Field:   "store.qdrant_port",
				Message: "qdrant_port must be between 1 and 65535",
			})
		}
	case BackendPgVector:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, ValidationError{
				Field:   "store.database_url",
				Message: "database_url is required for the pgvector backend",
			})
		} else if _, err := url.Parse(c.Store.DatabaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "store.database_url",
				Message: "invalid database URL",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (want qdrant or pgvector)", c.Store.Backend),
		})
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
	case ProviderOllama:
		if _, err := url.ParseRequestURI(c.Embedding.OllamaBaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "embedding.ollama_base_url",
				Message: "invalid Ollama base URL",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q (want openai or ollama)", c.Embedding.Provider),
		})
	}

	if c.Embedding.Dimension < 1 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}
	if c.Embedding.RateLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.TOC.MaxItems < 1 {
		errs = append(errs, ValidationError{
			Field:   "toc.max_items",
			Message: "max_items must be positive",
		})
	}
	if c.TOC.MaxDepth < 1 {
		errs = append(errs, ValidationError{
			Field:   "toc.max_depth",
			Message: "max_depth must be positive",
		})
	}

	return errs
}
