package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultReferenceURL      = "https://www.lawinsider.com/clause/scope-of-work"
	DefaultReferenceSelector = ".clause-body"
	DefaultFilingSearchURL   = "https://www.sec.gov/cgi-bin/srch-edgar"
	DefaultFilingBaseURL     = "https://www.sec.gov"
	DefaultEmbeddingModel    = "text-embedding-3-small"

	DefaultOllamaEmbeddingModel = "nomic-embed-text:latest"
)

type Config struct {
	LLM struct {
		Provider            string  `yaml:"provider"`
		BaseURL             string  `yaml:"base_url"`
		APIKey              string  `yaml:"api_key"`
		Model               string  `yaml:"model"`
		MaxTokens           int     `yaml:"max_tokens"`
		GenerateTemperature float64 `yaml:"generate_temperature"`
		RefineTemperature   float64 `yaml:"refine_temperature"`
	} `yaml:"llm"`

	Sources struct {
		ReferenceURL       string        `yaml:"reference_url"`
		ReferenceSelector  string        `yaml:"reference_selector"`
		ReferenceLimit     int           `yaml:"reference_limit"`
		ParagraphLimit     int           `yaml:"paragraph_limit"`
		FilingSearchURL    string        `yaml:"filing_search_url"`
		FilingBaseURL      string        `yaml:"filing_base_url"`
		FilingLimit        int           `yaml:"filing_limit"`
		FilingSnippetChars int           `yaml:"filing_snippet_chars"`
		Timeout            time.Duration `yaml:"timeout"`
		RateLimit          float64       `yaml:"rate_limit"`
		UserAgent          string        `yaml:"user_agent"`
	} `yaml:"sources"`

	Extractor struct {
		MaxChars int `yaml:"max_chars"`
	} `yaml:"extractor"`

	Library struct {
		URL            string `yaml:"url"`
		TableName      string `yaml:"table_name"`
		VectorDim      int    `yaml:"vector_dim"`
		EmbeddingModel string `yaml:"embedding_model"`
		SearchLimit    int    `yaml:"search_limit"`
		ChunkSize      int    `yaml:"chunk_size"`
		ChunkOverlap   int    `yaml:"chunk_overlap"`
	} `yaml:"library"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/sowgen/config.yaml"),
			"/etc/sowgen/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Apply defaults for unset values, then let the environment win
	applyDefaults(&config)
	mergeWithEnv(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4096
	}
	if config.LLM.GenerateTemperature == 0 {
		config.LLM.GenerateTemperature = 0.5
	}
	if config.LLM.RefineTemperature == 0 {
		config.LLM.RefineTemperature = 0.3
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Sources.ReferenceURL == "" {
		config.Sources.ReferenceURL = DefaultReferenceURL
	}
	if config.Sources.ReferenceSelector == "" {
		config.Sources.ReferenceSelector = DefaultReferenceSelector
	}
	if config.Sources.ReferenceLimit == 0 {
		config.Sources.ReferenceLimit = 5
	}
	if config.Sources.ParagraphLimit == 0 {
		config.Sources.ParagraphLimit = 10
	}
	if config.Sources.FilingSearchURL == "" {
		config.Sources.FilingSearchURL = DefaultFilingSearchURL
	}
	if config.Sources.FilingBaseURL == "" {
		config.Sources.FilingBaseURL = DefaultFilingBaseURL
	}
	if config.Sources.FilingLimit == 0 {
		config.Sources.FilingLimit = 2
	}
	if config.Sources.FilingSnippetChars == 0 {
		config.Sources.FilingSnippetChars = 1500
	}
	if config.Sources.Timeout == 0 {
		config.Sources.Timeout = 10 * time.Second
	}
	if config.Sources.RateLimit == 0 {
		config.Sources.RateLimit = 2.0
	}
	if config.Sources.UserAgent == "" {
		config.Sources.UserAgent = "sowgen/1.0 (scope-of-work generator)"
	}

	if config.Extractor.MaxChars == 0 {
		config.Extractor.MaxChars = 8000
	}

	if config.Library.TableName == "" {
		config.Library.TableName = "clauses"
	}
	// the embedding model fixes the vector width, so both follow the provider
	if config.Library.EmbeddingModel == "" {
		config.Library.EmbeddingModel = DefaultEmbeddingModel
		if config.LLM.Provider == "ollama" {
			config.Library.EmbeddingModel = DefaultOllamaEmbeddingModel
		}
	}
	if config.Library.VectorDim == 0 {
		config.Library.VectorDim = 1536
		if config.LLM.Provider == "ollama" {
			config.Library.VectorDim = 768
		}
	}
	if config.Library.SearchLimit == 0 {
		config.Library.SearchLimit = 3
	}
	if config.Library.ChunkSize == 0 {
		config.Library.ChunkSize = 1000
	}
	if config.Library.ChunkOverlap == 0 {
		config.Library.ChunkOverlap = 200
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("SOWGEN_DATABASE_URL"); dbURL != "" {
		config.Library.URL = dbURL
	}
}
