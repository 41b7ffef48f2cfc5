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

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "OPENAI_API_KEY is required for the openai provider",
			})
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.BaseURL != "" && !isHTTPURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 16384 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 16384",
		})
	}

	temperatures := []struct {
		field string
		value float64
	}{
		{"llm.generate_temperature", c.LLM.GenerateTemperature},
		{"llm.refine_temperature", c.LLM.RefineTemperature},
	}
	for _, temp := range temperatures {
		if temp.value < 0 || temp.value > 2 {
			errors = append(errors, ValidationError{
				Field:   temp.field,
				Message: "temperature must be between 0 and 2",
			})
		}
	}

	// Validate Sources config
	urls := []struct {
		field string
		value string
	}{
		{"sources.reference_url", c.Sources.ReferenceURL},
		{"sources.filing_search_url", c.Sources.FilingSearchURL},
		{"sources.filing_base_url", c.Sources.FilingBaseURL},
	}
	for _, u := range urls {
		if !isHTTPURL(u.value) {
			errors = append(errors, ValidationError{
				Field:   u.field,
				Message: fmt.Sprintf("invalid URL: %q", u.value),
			})
		}
	}

	if c.Sources.ReferenceLimit < 1 || c.Sources.ParagraphLimit < 1 || c.Sources.FilingLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources",
			Message: "result limits must be positive",
		})
	}

	if c.Sources.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sources.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Extractor.MaxChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "extractor.max_chars",
			Message: "max_chars must be positive",
		})
	}

	// Validate Library config, only relevant when enabled
	if c.Library.URL != "" {
		if _, err := url.Parse(c.Library.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "library.url",
				Message: "invalid database URL",
			})
		}

		if c.Library.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "library.vector_dim",
				Message: "vector_dim must be positive",
			})
		}

		if c.Library.ChunkOverlap < 0 || c.Library.ChunkOverlap >= c.Library.ChunkSize {
			errors = append(errors, ValidationError{
				Field:   "library.chunk_overlap",
				Message: "chunk_overlap must be non-negative and less than chunk_size",
			})
		}
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
