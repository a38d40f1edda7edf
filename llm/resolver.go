package llm

import (
	"fmt"
	"os"
	"strings"
)

const ollamaBaseURL = "http://localhost:11434/v1"

// Resolve parses a model spec (string or map) and returns a Client plus the
// bare model name. String specs take the form "provider:model"; a spec with
// no known provider prefix is treated as an Ollama model. API keys missing
// from the spec are read from ANTHROPIC_API_KEY / OPENAI_API_KEY.
func Resolve(modelSpec any) (Client, string, error) {
	switch v := modelSpec.(type) {
	case string:
		return resolveString(v)
	case map[string]any:
		return resolveMap(v)
	default:
		return nil, "", fmt.Errorf("unsupported model spec type: %T", modelSpec)
	}
}

func resolveString(spec string) (Client, string, error) {
	provider, model, found := strings.Cut(spec, ":")
	if !found {
		return NewOpenAIClient(ollamaBaseURL, "ollama", spec), spec, nil
	}
	switch provider {
	case "ollama", "openai", "anthropic":
		return resolveMap(map[string]any{"provider": provider, "model": model})
	case "gateway", "proxy":
		return nil, "", fmt.Errorf("%s provider requires map format with base_url or callback_url", provider)
	default:
		// e.g. "llama3.1:8b"
		return NewOpenAIClient(ollamaBaseURL, "ollama", spec), spec, nil
	}
}

func resolveMap(spec map[string]any) (Client, string, error) {
	provider, _ := spec["provider"].(string)
	model, _ := spec["model"].(string)
	baseURL, _ := spec["base_url"].(string)
	apiKey, _ := spec["api_key"].(string)

	switch provider {
	case "ollama":
		if baseURL == "" {
			baseURL = ollamaBaseURL
		}
		return NewOpenAIClient(baseURL, "ollama", model), model, nil
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("openai provider requires api_key in model spec or OPENAI_API_KEY")
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIClient(baseURL, apiKey, model), model, nil
	case "anthropic":
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("anthropic provider requires api_key in model spec or ANTHROPIC_API_KEY")
		}
		return NewAnthropicClient(apiKey, model), model, nil
	case "gateway":
		if baseURL == "" {
			return nil, "", fmt.Errorf("gateway provider requires base_url in model spec")
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("gateway provider requires api_key in model spec")
		}
		return NewOpenAIClient(baseURL, apiKey, model), model, nil
	case "proxy":
		callbackURL, _ := spec["callback_url"].(string)
		if callbackURL == "" {
			return nil, "", fmt.Errorf("proxy provider requires callback_url")
		}
		return NewHTTPProxyClient(callbackURL, model), model, nil
	default:
		return nil, "", fmt.Errorf("unknown provider: %q", provider)
	}
}
