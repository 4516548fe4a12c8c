package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/knowledge"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// KnowledgeLookup searches the knowledge base for material matching the
// customer's latest message.
type KnowledgeLookup struct {
	searcher knowledge.Searcher
	limit    int
}

// KnowledgeLookupOptions configure the knowledge lookup executor.
type KnowledgeLookupOptions struct {
	// Limit caps the number of documents included in the result payload.
	Limit int
}

// NewKnowledgeLookup constructs the executor over a searcher. Limit defaults
// to 3 results.
func NewKnowledgeLookup(searcher knowledge.Searcher, optFns ...func(o *KnowledgeLookupOptions)) *KnowledgeLookup {
	opts := KnowledgeLookupOptions{Limit: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &KnowledgeLookup{searcher: searcher, limit: opts.Limit}
}

// Capability implements core.Executor.
func (e *KnowledgeLookup) Capability() string { return taxonomy.CapKnowledgeLookup }

// Accept implements core.Holder.
func (e *KnowledgeLookup) Accept(_ context.Context, hc core.HandoffContext) core.Result {
	if r, bad := rejectMismatch(hc, e.Capability()); bad {
		return r
	}
	msg, ok := hc.Conversation.LastUserMessage()
	if !ok {
		return core.ErrorResult(fmt.Errorf("no user message to search for"))
	}
	docs, err := e.searcher.Search(msg.Content, e.limit)
	if err != nil {
		return core.ErrorResult(fmt.Errorf("%w: knowledge search: %v", core.ErrExternalTool, err))
	}
	if len(docs) == 0 {
		return core.CompletedResult("No matching knowledge base entries were found.")
	}
	var b strings.Builder
	b.WriteString("Relevant knowledge base entries:")
	for _, d := range docs {
		fmt.Fprintf(&b, "\n- %s: %s", d.Title, d.Content)
	}
	return core.CompletedResult(b.String())
}
