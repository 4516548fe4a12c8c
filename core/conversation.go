package core

import (
	"sync"
	"time"
)

// Message roles used throughout the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// HolderOrchestrator is the sentinel identifier for the top-level holder.
// A freshly created conversation always starts with the orchestrator active.
const HolderOrchestrator = "orchestrator"

// Message is a single entry in a conversation's append-only history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user-authored message stamped with the current UTC time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant-authored message stamped with the current UTC time.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// Conversation tracks the full resolution state of one customer discussion.
// It is safe for concurrent access.
//
// Contract:
//   - Messages is append-only; it never shrinks or reorders
//   - Exactly one holder (ActiveHolder) owns control at any time
//   - WaitingForUser == true means no holder is invoked until a new inbound
//     message is appended
//   - FlowStep is only meaningful while CurrentFlow is set; it points at the
//     next undispatched step of the active flow
//   - Version increases monotonically, bumped by the driver on every
//     persisted hop; stores use it to reject stale writes
//   - Clone performs deep copies of maps/slices for safe divergence.
type Conversation struct {
	DiscussionID    string            `json:"discussion_id"`
	Messages        []Message         `json:"messages"`
	CurrentCategory string            `json:"current_category,omitempty"`
	CurrentFlow     string            `json:"current_flow,omitempty"`
	FlowStep        int               `json:"flow_step"`
	ActiveHolder    string            `json:"active_holder"`
	WaitingForUser  bool              `json:"waiting_for_user"`
	Metadata        map[string]string `json:"metadata"`
	Version         int64             `json:"version"`
	Created         time.Time         `json:"created"`
	Updated         time.Time         `json:"updated"`
	mu              sync.RWMutex
}

// NewConversation creates a fresh conversation for the given discussion id
// with the orchestrator holding control.
func NewConversation(discussionID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		DiscussionID: discussionID,
		Messages:     []Message{},
		ActiveHolder: HolderOrchestrator,
		Metadata:     map[string]string{},
		Created:      now,
		Updated:      now,
	}
}

// Append adds a message to the history updating the Updated timestamp.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, msg)
	c.Updated = time.Now().UTC()
}

// History returns a defensive copy of the full message slice.
func (c *Conversation) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	return msgs
}

// LastUserMessage returns the most recent user-authored message, if any.
func (c *Conversation) LastUserMessage() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// GetMeta returns the value and existence flag for a metadata key.
func (c *Conversation) GetMeta(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Metadata[key]
	return v, ok
}

// SetMeta sets a metadata key/value pair updating the Updated timestamp.
func (c *Conversation) SetMeta(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
	c.Updated = time.Now().UTC()
}

// MergeMeta merges the provided key/value pairs into Metadata.
func (c *Conversation) MergeMeta(delta map[string]string) {
	if len(delta) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range delta {
		c.Metadata[k] = v
	}
	c.Updated = time.Now().UTC()
}

// DeleteMeta removes a metadata key. Used by the driver to clear transient
// handoff bookkeeping; holders never call it.
func (c *Conversation) DeleteMeta(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Metadata, key)
	c.Updated = time.Now().UTC()
}

// ApplyDelta applies a holder's state delta. Nil pointer fields leave state
// untouched; metadata entries are merged. This is the only path through which
// holder results change routing state.
func (c *Conversation) ApplyDelta(delta StateDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delta.Category != nil {
		c.CurrentCategory = *delta.Category
	}
	if delta.Flow != nil {
		c.CurrentFlow = *delta.Flow
	}
	if delta.FlowStep != nil {
		c.FlowStep = *delta.FlowStep
	}
	for k, v := range delta.Metadata {
		c.Metadata[k] = v
	}
	c.Updated = time.Now().UTC()
}

// Clone returns a deep copy of the conversation safe for independent mutation.
func (c *Conversation) Clone() *Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := &Conversation{
		DiscussionID:    c.DiscussionID,
		Messages:        make([]Message, len(c.Messages)),
		CurrentCategory: c.CurrentCategory,
		CurrentFlow:     c.CurrentFlow,
		FlowStep:        c.FlowStep,
		ActiveHolder:    c.ActiveHolder,
		WaitingForUser:  c.WaitingForUser,
		Metadata:        make(map[string]string, len(c.Metadata)),
		Version:         c.Version,
		Created:         c.Created,
		Updated:         c.Updated,
	}
	copy(clone.Messages, c.Messages)
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// View is a read-only projection of conversation state handed to holders at
// handoff time. Holders never receive the live conversation; state changes
// flow back through the StateDelta of their result.
type View struct {
	DiscussionID    string
	Messages        []Message
	CurrentCategory string
	CurrentFlow     string
	FlowStep        int
	Metadata        map[string]string
}

// Snapshot produces a read-only view of the conversation for a holder.
func (c *Conversation) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	md := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		md[k] = v
	}
	return View{
		DiscussionID:    c.DiscussionID,
		Messages:        msgs,
		CurrentCategory: c.CurrentCategory,
		CurrentFlow:     c.CurrentFlow,
		FlowStep:        c.FlowStep,
		Metadata:        md,
	}
}

// LastUserMessage returns the most recent user-authored message in the view.
func (v View) LastUserMessage() (Message, bool) {
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Role == RoleUser {
			return v.Messages[i], true
		}
	}
	return Message{}, false
}

// Recent returns up to n of the most recent messages.
func (v View) Recent(n int) []Message {
	if n <= 0 || len(v.Messages) <= n {
		return v.Messages
	}
	return v.Messages[len(v.Messages)-n:]
}
