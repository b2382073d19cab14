package config

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Responder generation backends.
const (
	ProviderAuto   = "auto"
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// ResponderConfig configures the reference responder service.
type ResponderConfig struct {
	Provider      string
	Ark           ArkConfig
	Gemini        GeminiConfig
	RedisURL      string
	RedisPassword string
	SessionTTL    time.Duration
	HistoryLimit  int
	TriageEnabled bool
}

// ArkConfig describes the Volcengine Ark chat model.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// GeminiConfig describes the Google Gemini model.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether the Ark credentials are complete.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// Enabled reports whether a Gemini key is present.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel creates an Ark chat model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	})
}

// ResolveProvider turns "auto" into the first backend with credentials.
func (c ResponderConfig) ResolveProvider() string {
	if c.Provider != ProviderAuto {
		return c.Provider
	}
	switch {
	case c.Ark.Enabled():
		return ProviderArk
	case c.Gemini.Enabled():
		return ProviderGemini
	default:
		return ProviderNone
	}
}

func loadResponderConfig(src source) (ResponderConfig, error) {
	provider := src.getEnvOrDefault("RESPONDER_PROVIDER", ProviderAuto)
	switch provider {
	case ProviderAuto, ProviderArk, ProviderGemini, ProviderNone:
	default:
		return ResponderConfig{}, fmt.Errorf("invalid RESPONDER_PROVIDER value %q", provider)
	}

	temperature, err := src.parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ResponderConfig{}, err
	}

	maxTokens, err := src.parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ResponderConfig{}, err
	}

	ttl, err := src.parseDurationEnv("RESPONDER_SESSION_TTL", time.Hour)
	if err != nil {
		return ResponderConfig{}, err
	}

	historyLimit := 10
	if override, err := src.parseOptionalIntEnv("RESPONDER_HISTORY_LIMIT"); err != nil {
		return ResponderConfig{}, err
	} else if override != nil {
		if *override < 0 {
			historyLimit = 0
		} else {
			historyLimit = *override
		}
	}

	triage, err := src.parseBoolEnv("RESPONDER_TRIAGE_ENABLED", true)
	if err != nil {
		return ResponderConfig{}, err
	}

	return ResponderConfig{
		Provider: provider,
		Ark: ArkConfig{
			APIKey:      src.get("ARK_API_KEY"),
			AccessKey:   src.get("ARK_ACCESS_KEY"),
			SecretKey:   src.get("ARK_SECRET_KEY"),
			Model:       src.get("ARK_MODEL"),
			BaseURL:     src.getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      src.getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		Gemini: GeminiConfig{
			APIKey: src.get("GEMINI_API_KEY"),
			Model:  src.getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		RedisURL:      src.get("REDIS_URL"),
		RedisPassword: src.get("REDIS_PASSWORD"),
		SessionTTL:    ttl,
		HistoryLimit:  historyLimit,
		TriageEnabled: triage,
	}, nil
}
