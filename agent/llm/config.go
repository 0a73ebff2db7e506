package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
	openrouterx "github.com/esencia-cafe/storefront-agent/pkg/openrouter"
)

// Role selects which model settings apply: the conversational assistant or
// the order-extraction helper.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleExtractor Role = "extractor"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	AssistantModel       string  `envconfig:"ASSISTANT_MODEL" split_words:"true"`
	ExtractorModel       string  `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	AssistantTemperature float32 `envconfig:"ASSISTANT_TEMPERATURE" split_words:"true" default:"-1"`
	ExtractorTemperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelFor resolves the model name for a role, falling back to the default.
func (c Config) ModelFor(role Role) string {
	switch role {
	case RoleAssistant:
		if v := strings.TrimSpace(c.AssistantModel); v != "" {
			return v
		}
	case RoleExtractor:
		if v := strings.TrimSpace(c.ExtractorModel); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.Model)
}

// OpenRouterFor maps role-specific overrides onto an OpenRouter client
// configuration.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	temp := c.Temperature
	switch role {
	case RoleAssistant:
		if c.AssistantTemperature >= 0 {
			temp = c.AssistantTemperature
		}
	case RoleExtractor:
		if c.ExtractorTemperature >= 0 {
			temp = c.ExtractorTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              c.ModelFor(role),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
