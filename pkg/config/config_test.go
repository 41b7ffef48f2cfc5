package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("SOWGEN_DATABASE_URL", "")

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  generate_temperature: 0.6

sources:
  reference_limit: 3
  timeout: 5s
  rate_limit: 1.5

extractor:
  max_chars: 4000

library:
  url: "postgres://localhost:5432/clauses"
  table_name: "test_clauses"
  vector_dim: 768

server:
  addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.6, config.LLM.GenerateTemperature)
	assert.Equal(t, 0.3, config.LLM.RefineTemperature)
	assert.Equal(t, 3, config.Sources.ReferenceLimit)
	assert.Equal(t, 10, config.Sources.ParagraphLimit)
	assert.Equal(t, 5*time.Second, config.Sources.Timeout)
	assert.Equal(t, 1.5, config.Sources.RateLimit)
	assert.Equal(t, DefaultReferenceURL, config.Sources.ReferenceURL)
	assert.Equal(t, 4000, config.Extractor.MaxChars)
	assert.Equal(t, "test_clauses", config.Library.TableName)
	assert.Equal(t, 768, config.Library.VectorDim)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SOWGEN_DATABASE_URL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o", config.LLM.Model)
	assert.Equal(t, 0.5, config.LLM.GenerateTemperature)
	assert.Equal(t, 0.3, config.LLM.RefineTemperature)
	assert.Equal(t, "sk-test", config.LLM.APIKey)
	assert.Equal(t, 5, config.Sources.ReferenceLimit)
	assert.Equal(t, 2, config.Sources.FilingLimit)
	assert.Equal(t, 1500, config.Sources.FilingSnippetChars)
	assert.Equal(t, 10*time.Second, config.Sources.Timeout)
	assert.Equal(t, 8000, config.Extractor.MaxChars)
	assert.Empty(t, config.Library.URL)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SOWGEN_DATABASE_URL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.LLM.MaxTokens = 0
	config.LLM.RefineTemperature = 3.0
	config.Sources.ReferenceURL = "not a url"
	config.Library.URL = "postgres://localhost/clauses"
	config.Library.VectorDim = -1

	errors := config.Validate()

	var messages []string
	for _, e := range errors {
		messages = append(messages, e.Error())
	}

	assert.Equal(t, []string{
		"llm.api_key: OPENAI_API_KEY is required for the openai provider",
		"llm.max_tokens: max_tokens must be between 1 and 16384",
		"llm.refine_temperature: temperature must be between 0 and 2",
		`sources.reference_url: invalid URL: "not a url"`,
		"library.vector_dim: vector_dim must be positive",
	}, messages)
}

func TestValidationOrderIsStable(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.LLM.APIKey = "sk-test"
	config.LLM.GenerateTemperature = -1
	config.LLM.RefineTemperature = 5
	config.Sources.ReferenceURL = "a"
	config.Sources.FilingSearchURL = "b"
	config.Sources.FilingBaseURL = "c"

	want := []string{
		"llm.generate_temperature",
		"llm.refine_temperature",
		"sources.reference_url",
		"sources.filing_search_url",
		"sources.filing_base_url",
	}
	for i := 0; i < 20; i++ {
		var fields []string
		for _, e := range config.Validate() {
			fields = append(fields, e.Field)
		}
		require.Equal(t, want, fields)
	}
}

func TestLibraryDefaultsFollowProvider(t *testing.T) {
	openai := &Config{}
	applyDefaults(openai)
	assert.Equal(t, DefaultEmbeddingModel, openai.Library.EmbeddingModel)
	assert.Equal(t, 1536, openai.Library.VectorDim)

	ollama := &Config{}
	ollama.LLM.Provider = "ollama"
	applyDefaults(ollama)
	assert.Equal(t, DefaultOllamaEmbeddingModel, ollama.Library.EmbeddingModel)
	assert.Equal(t, 768, ollama.Library.VectorDim)

	pinned := &Config{}
	pinned.LLM.Provider = "ollama"
	pinned.Library.EmbeddingModel = "mxbai-embed-large"
	pinned.Library.VectorDim = 1024
	applyDefaults(pinned)
	assert.Equal(t, "mxbai-embed-large", pinned.Library.EmbeddingModel)
	assert.Equal(t, 1024, pinned.Library.VectorDim)
}

func TestUnknownProvider(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.LLM.Provider = "carrier-pigeon"

	errors := config.Validate()
	require.Len(t, errors, 1)
	assert.Equal(t, "llm.provider", errors[0].Field)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("SOWGEN_DATABASE_URL", "postgres://env-db:5432/test")

	config := &Config{}
	config.LLM.Provider = "ollama"
	mergeWithEnv(config)

	assert.Equal(t, "sk-env", config.LLM.APIKey)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Library.URL)
}
