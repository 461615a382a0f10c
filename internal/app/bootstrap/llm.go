package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

var errMissingCredentials = errors.New("bootstrap: llm provider credentials missing")

// BuildLLMClient returns the configured provider, wrapped with a fallback
// provider when one is set. Outside production a provider without
// credentials degrades to the static client.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, err := buildLLMProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if errors.Is(err, errMissingCredentials) && !cfg.IsProduction() {
		logger.Warn("llm provider not configured; using static replies", "provider", cfg.LLMProvider)
		return llm.StaticClient{}, nil
	}
	if err != nil {
		return nil, err
	}

	name := cfg.LLMFallbackProvider
	if name == "" || name == cfg.LLMProvider {
		logger.Info("llm client configured", "provider", cfg.LLMProvider)
		return primary, nil
	}
	fallback, err := buildLLMProvider(ctx, name, cfg, awsCfg)
	if err != nil {
		logger.Warn("fallback llm provider unavailable", "provider", name, "error", err)
		return primary, nil
	}
	logger.Info("llm client configured", "provider", cfg.LLMProvider, "fallback", name)
	return llm.NewFallbackClient(primary, fallback, logger), nil
}

func buildLLMProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", errMissingCredentials)
		}
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("%w: BEDROCK_MODEL_ID", errMissingCredentials)
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY", errMissingCredentials)
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, nil
	case "static", "":
		return llm.StaticClient{}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}
