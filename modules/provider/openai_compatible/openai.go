// Package openaicompat provides a generation backend for any server
// that implements the OpenAI chat completions interface (ollama,
// llama.cpp, vLLM, LiteLLM, Groq, etc.) via a configurable base_url.
package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface assertions.
var (
	_ core.Module        = (*Provider)(nil)
	_ core.Configurable  = (*Provider)(nil)
	_ core.Provisioner   = (*Provider)(nil)
	_ core.Validator     = (*Provider)(nil)
	_ provider.Generator = (*Provider)(nil)
)

// Provider is an OpenAI-compatible generation backend registered as
// the "provider.generator" service. One completion per turn, never
// streamed.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai_compatible",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return fmt.Errorf("provider.openai_compatible: decode config: %w", err)
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	if p.config.APIKey == "" && p.config.APIKeyEnv != "" {
		p.config.APIKey = os.Getenv(p.config.APIKeyEnv)
	}

	// Completions are single-shot, never streamed, so a global client
	// timeout is safe; per-request context handles cancellation.
	p.client = &http.Client{Timeout: p.config.Timeout}

	ctx.RegisterService("provider.generator", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Generate implements provider.Generator. The assembled context, tool
// instructions, and user input are rendered into one user message.
func (p *Provider) Generate(ctx context.Context, userInput, contextStr string, tools map[string]string) (string, error) {
	req := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: provider.BuildPrompt(userInput, contextStr, tools)},
		},
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	resp, err := p.doRequest(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return "", handleErrorResponse(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(limitBody(resp)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", provider.ErrGeneration, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", provider.ErrGeneration)
	}

	if out.Usage.TotalTokens > 0 {
		p.logger.Debug("completion finished",
			"model", p.config.Model,
			"prompt_tokens", out.Usage.PromptTokens,
			"completion_tokens", out.Usage.CompletionTokens,
		)
	}

	return out.Choices[0].Message.Content, nil
}

// ModelName implements provider.Generator.
func (p *Provider) ModelName() string {
	return p.config.Model
}
