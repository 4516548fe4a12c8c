// Package openai provides a Classifier implementation backed by the OpenAI
// Chat Completions API. It renders the taxonomy into a constrained prompt and
// maps the single-token answer back onto a category id.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// Options configure the OpenAI classifier.
type Options struct {
	Model       string
	Temperature float64
}

// Classifier wraps the OpenAI Chat Completions API behind the oracle contract.
type Classifier struct {
	client *openai.Client
	opts   Options
}

// NewClassifier creates a classifier using the default client (API key from
// the environment).
func NewClassifier(optFns ...func(o *Options)) *Classifier {
	client := openai.NewClient()
	return NewClassifierFromClient(&client, optFns...)
}

// NewClassifierFromClient creates a classifier from an existing client.
func NewClassifierFromClient(client *openai.Client, optFns ...func(o *Options)) *Classifier {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{client: client, opts: opts}
}

// Classify asks the model for the single best category id. The model is
// instructed to answer "ambiguous" when unsure; that answer, or any answer
// that is not a listed id, maps to core.ErrAmbiguous.
func (c *Classifier) Classify(ctx context.Context, text string, categories []taxonomy.Category) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildInstructions(categories)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(c.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai classify: empty response")
	}
	return mapAnswer(resp.Choices[0].Message.Content, categories)
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
