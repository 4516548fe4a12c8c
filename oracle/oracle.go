// Package oracle defines the classification capability used by the
// orchestrator to map free-text requests onto taxonomy categories. The
// reasoning step is deliberately opaque: implementations may call a language
// model or apply a deterministic heuristic, but the contract is always
// text + categories in, a single category id (or core.ErrAmbiguous) out, so
// the surrounding state machine stays deterministic and unit-testable.
package oracle

import (
	"context"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// Classifier assigns a request to one of the given categories. It returns
// core.ErrAmbiguous when no single category fits; any other error is treated
// as an external tool failure by the caller.
type Classifier interface {
	Classify(ctx context.Context, text string, categories []taxonomy.Category) (string, error)
}

// Func adapts a plain function to the Classifier interface. Useful for tests.
type Func func(ctx context.Context, text string, categories []taxonomy.Category) (string, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, text string, categories []taxonomy.Category) (string, error) {
	return f(ctx, text, categories)
}

// KeywordClassifier is a deterministic classifier matching request text
// against per-category keyword lists. It is the default oracle for local
// development and tests; production deployments plug an LLM-backed
// implementation (see the openai and anthropic subpackages).
type KeywordClassifier struct {
	keywords map[string][]string
}

// NewKeywordClassifier builds a classifier from a category id -> keywords map.
func NewKeywordClassifier(keywords map[string][]string) *KeywordClassifier {
	return &KeywordClassifier{keywords: keywords}
}

// DefaultKeywords covers the built-in taxonomy.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		"billing":   {"refund", "charge", "payment", "invoice", "subscription", "billed"},
		"technical": {"error", "crash", "bug", "install", "broken", "not working"},
		"account":   {"password", "login", "account", "profile", "sign in"},
		"product":   {"feature", "compatible", "compatibility", "product", "support for"},
		"shipping":  {"shipping", "delivery", "track", "order", "return", "package"},
	}
}

// Classify returns the first category (in catalog order) with a keyword hit.
// No hit, or hits in more than one category, yields core.ErrAmbiguous.
func (k *KeywordClassifier) Classify(_ context.Context, text string, categories []taxonomy.Category) (string, error) {
	lower := strings.ToLower(text)
	var matches []string
	for _, c := range categories {
		for _, kw := range k.keywords[c.ID] {
			if strings.Contains(lower, kw) {
				matches = append(matches, c.ID)
				break
			}
		}
	}
	if len(matches) != 1 {
		return "", core.ErrAmbiguous
	}
	return matches[0], nil
}
