// Package oracle wraps the external text completion capability used for SQL
// generation. All oracle output is untrusted free text and must be parsed
// and validated by the caller.
package oracle

import (
	"context"
	"fmt"

	"genbiapi/config"
	"genbiapi/pkg/logger"

	"github.com/liushuangls/go-anthropic/v2"
)

// CompletionOracle is the external text generation capability.
// Implementations may fail or time out and give no guarantee of well-formed
// output.
type CompletionOracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// anthropicOracle implements CompletionOracle against the Anthropic
// messages API.
type anthropicOracle struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicOracle creates a completion oracle using the configured
// Anthropic API key and model.
func NewAnthropicOracle() (CompletionOracle, error) {
	if config.Cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not configured")
	}
	return &anthropicOracle{
		client:    anthropic.NewClient(config.Cfg.AnthropicAPIKey),
		model:     config.Cfg.OracleModel,
		maxTokens: config.Cfg.OracleMaxTokens,
	}, nil
}

// Complete sends the prompt as a single user message and returns the first
// text block of the response.
func (o *anthropicOracle) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.Cfg.OracleTimeout)
	defer cancel()

	resp, err := o.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(o.model),
		MaxTokens: o.maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		logger.Errorf("Completion request failed: %v", err)
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("completion response contained no text block")
}
