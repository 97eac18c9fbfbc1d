package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/portreviewer/internal/apperr"
	"google.golang.org/api/option"
)

const serviceName = "gemini"

// Client generates model output for a prompt at a given tier.
type Client interface {
	// GenerateContent returns free text.
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON requests a JSON response and strips any wrapper around it.
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel reports the model serving tier.
	GetModel(tier ModelTier) string
	Close() error
}

// NewClient builds the client for config.Provider. A nil config means DefaultConfig.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Provider != ProviderGemini {
		return nil, &apperr.ConfigurationError{Key: "LLM_PROVIDER", Message: fmt.Sprintf("unsupported provider %q", config.Provider)}
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient implements Client on the Gemini API.
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient fails with a ConfigurationError when apiKey is empty.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &apperr.ConfigurationError{Key: "GEMINI_API_KEY"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, config: config}, nil
}

func (c *GeminiClient) model(tier ModelTier) (*genai.GenerativeModel, error) {
	name := c.config.GetModel(tier)
	if name == "" {
		return nil, &apperr.ConfigurationError{Key: "GEMINI_MODEL", Message: fmt.Sprintf("no model for tier %s", tier)}
	}
	return c.client.GenerativeModel(name), nil
}

func (c *GeminiClient) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &apperr.ExternalServiceError{Service: serviceName, Message: "generation failed", Cause: err}
	}
	return extractTextFromResponse(resp)
}

// GenerateContent generates free text at temperature 0.3.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, err := c.model(tier)
	if err != nil {
		return "", err
	}
	model.SetTemperature(0.3)
	return c.generate(ctx, model, prompt)
}

// GenerateJSON generates a JSON document at temperature 0.1.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, err := c.model(tier)
	if err != nil {
		return "", err
	}
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	text, err := c.generate(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// extractTextFromResponse joins the text parts of the first candidate.
// An empty answer is an upstream failure.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &apperr.ExternalServiceError{Service: serviceName, Message: "no candidates in response"}
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", &apperr.ExternalServiceError{Service: serviceName, Message: "no content in response"}
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &apperr.ExternalServiceError{Service: serviceName, Message: "no text parts in response"}
	}
	return sb.String(), nil
}
