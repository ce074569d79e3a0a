package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/conversation"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// BuildLLMClient returns the LLM_PROVIDER client, wrapped with the
// LLM_FALLBACK_PROVIDER client when one is configured and constructible.
// Each client fills in its own model id, so the agent can leave the request
// model empty.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	primary, err := BuildProviderClient(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, err
	}
	logger.Info("llm client configured", "provider", providerOrDefault(cfg.LLMProvider))

	if strings.TrimSpace(cfg.LLMFallbackProvider) == "" {
		return primary, nil
	}
	fallback, err := BuildProviderClient(ctx, cfg, cfg.LLMFallbackProvider)
	if err != nil {
		logger.Warn("fallback llm unavailable; continuing with primary only",
			"provider", cfg.LLMFallbackProvider, "error", err)
		return primary, nil
	}
	logger.Info("llm fallback configured", "provider", cfg.LLMFallbackProvider)
	return conversation.NewFallbackLLMClient(primary, fallback, logger), nil
}

// BuildProviderClient constructs the client for one named provider.
func BuildProviderClient(ctx context.Context, cfg *appconfig.Config, provider string) (conversation.LLMClient, error) {
	switch providerOrDefault(provider) {
	case ProviderBedrock:
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" {
			return nil, errors.New("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		return pinnedModel{next: client, model: model}, nil
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		return client, nil
	case ProviderOpenAI:
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}

func providerOrDefault(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return ProviderBedrock
	}
	return p
}

// pinnedModel fixes the model id for clients that have no default of their own.
type pinnedModel struct {
	next  conversation.LLMClient
	model string
}

func (p pinnedModel) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	req.Model = p.model
	return p.next.Complete(ctx, req)
}
