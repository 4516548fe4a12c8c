// Package anthropic provides a Classifier implementation backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// Options configure the Anthropic classifier (model id, max tokens, API key).
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Classifier wraps the Anthropic Messages API behind the oracle contract.
type Classifier struct {
	client *anthropic.Client
	opts   Options
}

// NewClassifier creates a classifier using the official client.
func NewClassifier(optFns ...func(o *Options)) *Classifier {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Classifier{client: &client, opts: opts}
}

// NewClassifierFromClient creates a classifier from an existing client.
func NewClassifierFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Classifier {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{client: client, opts: opts}
}

// Classify asks the model for the single best category id; any answer that is
// not a listed id maps to core.ErrAmbiguous.
func (c *Classifier) Classify(ctx context.Context, text string, categories []taxonomy.Category) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildInstructions(categories)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic classify: %w", err)
	}

	var answer strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			answer.WriteString(block.AsText().Text)
		}
	}
	return mapAnswer(answer.String(), categories)
}

func buildInstructions(categories []taxonomy.Category) string {
	var b strings.Builder
	b.WriteString("You classify customer service requests. Answer with exactly one category id from the list below, or the word ambiguous if no single category fits.\n\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Description)
	}
	return b.String()
}

func mapAnswer(answer string, categories []taxonomy.Category) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, c := range categories {
		if normalized == c.ID {
			return c.ID, nil
		}
	}
	return "", core.ErrAmbiguous
}
