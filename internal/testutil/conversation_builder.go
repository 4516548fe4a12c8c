// Package testutil provides fluent builders and stub holders shared by tests.
package testutil

import (
	"context"

	"github.com/hupe1980/supportmesh/core"
)

// ConversationBuilder helps construct conversations with fluent chaining.
// Example:
//
//	conv := NewConversationBuilder("disc-1").Category("billing").User("hi").Build()
type ConversationBuilder struct {
	id       string
	category string
	flow     string
	step     int
	holder   string
	waiting  bool
	meta     map[string]string
	messages []core.Message
}

// NewConversationBuilder creates a builder for a conversation with the given id.
func NewConversationBuilder(id string) *ConversationBuilder {
	return &ConversationBuilder{id: id, holder: core.HolderOrchestrator, meta: map[string]string{}}
}

// Category sets the classified category (chainable).
func (b *ConversationBuilder) Category(id string) *ConversationBuilder {
	b.category = id
	return b
}

// Flow sets the active flow and step (chainable).
func (b *ConversationBuilder) Flow(id string, step int) *ConversationBuilder {
	b.flow = id
	b.step = step
	return b
}

// Holder sets the active holder (chainable).
func (b *ConversationBuilder) Holder(name string) *ConversationBuilder {
	b.holder = name
	return b
}

// Waiting marks the conversation as paused for user input (chainable).
func (b *ConversationBuilder) Waiting() *ConversationBuilder {
	b.waiting = true
	return b
}

// Meta sets a metadata key/value pair (chainable).
func (b *ConversationBuilder) Meta(key, value string) *ConversationBuilder {
	b.meta[key] = value
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewUserMessage(content))
	return b
}

// Assistant appends an assistant message (chainable).
func (b *ConversationBuilder) Assistant(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewAssistantMessage(content))
	return b
}

// Build returns a *core.Conversation with the accumulated state.
func (b *ConversationBuilder) Build() *core.Conversation {
	conv := core.NewConversation(b.id)
	conv.CurrentCategory = b.category
	conv.CurrentFlow = b.flow
	conv.FlowStep = b.step
	conv.ActiveHolder = b.holder
	conv.WaitingForUser = b.waiting
	for k, v := range b.meta {
		conv.Metadata[k] = v
	}
	conv.Messages = append(conv.Messages, b.messages...)
	return conv
}

// StubExecutor is a scripted executor returning queued results in order,
// repeating the last one once the script is exhausted. It records every
// handoff context it accepts.
type StubExecutor struct {
	Label    string
	Script   []core.Result
	Accepted []core.HandoffContext
}

// NewStubExecutor creates a stub declaring the given capability.
func NewStubExecutor(label string, script ...core.Result) *StubExecutor {
	return &StubExecutor{Label: label, Script: script}
}

// Capability implements core.Executor.
func (s *StubExecutor) Capability() string { return s.Label }

// Accept implements core.Holder.
func (s *StubExecutor) Accept(_ context.Context, hc core.HandoffContext) core.Result {
	s.Accepted = append(s.Accepted, hc)
	if len(s.Script) == 0 {
		return core.CompletedResult("ok")
	}
	idx := len(s.Accepted) - 1
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	}
	return s.Script[idx]
}
