package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/xhad/sowgen/internal/types"
	"github.com/xhad/sowgen/pkg/prompt"
)

// Verify interface compliance
var _ types.Completer = (*ChatEngine)(nil)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("no response from LLM")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider       string // "openai" or "ollama"
	Model          string
	APIKey         string
	BaseURL        string
	MaxTokens      int
	SystemTemplate string
	Logger         *zap.Logger
}

// ChatEngine sends a system instruction plus one user prompt to a chat
// model and returns the text of the first choice.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	log    *zap.Logger
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithModel(config.Model),
			openai.WithToken(config.APIKey),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, model)
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	return &ChatEngine{
		config: config,
		llm:    model,
		log:    config.Logger,
	}, nil
}

func withDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = prompt.SystemInstruction
	}
	if config.Provider == "ollama" && config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return config, nil
}

// Complete sends userPrompt at the given temperature.
func (ce *ChatEngine) Complete(ctx context.Context, userPrompt string, temperature float64) (string, error) {
	if temperature < 0 || temperature > 2 {
		return "", fmt.Errorf("temperature must be between 0 and 2, got %v", temperature)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	ce.log.Debug("sending completion",
		zap.String("model", ce.config.Model),
		zap.Float64("temperature", temperature),
		zap.Int("prompt_chars", len(userPrompt)))

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithModel(ce.config.Model),
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	return response.Choices[0].Content, nil
}

// Model returns the configured model name.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}
