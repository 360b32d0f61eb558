// Package gemini provides the Gemini generation backend on the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/provider"
	"google.golang.org/genai"
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

// Provider is the Gemini generation backend registered as the
// "provider.generator" service.
type Provider struct {
	config Config
	client *genai.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.gemini",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return fmt.Errorf("provider.gemini: decode config: %w", err)
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The API key falls back to the
// GEMINI_API_KEY environment variable when the config leaves it unset.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	if p.config.APIKey == "" {
		p.config.APIKey = os.Getenv(apiKeyEnv)
	}

	cfg := &genai.ClientConfig{APIKey: p.config.APIKey}
	if p.config.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: p.config.Timeout}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("provider.gemini: create client: %w", err)
	}
	p.client = client

	ctx.RegisterService("provider.generator", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Generate implements provider.Generator. The assembled context, tool
// instructions, and user input are rendered into a single user content.
func (p *Provider) Generate(ctx context.Context, userInput, contextStr string, tools map[string]string) (string, error) {
	prompt := provider.BuildPrompt(userInput, contextStr, tools)

	cfg := &genai.GenerateContentConfig{}
	if p.config.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = p.config.MaxOutputTokens
	}
	if p.config.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*p.config.Temperature))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(prompt), cfg)
	if err != nil {
		// Caller cancellation is not a backend failure.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", provider.ErrGeneration, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: response has no text", provider.ErrGeneration)
	}
	return text, nil
}

// ModelName implements provider.Generator.
func (p *Provider) ModelName() string {
	return p.config.Model
}
