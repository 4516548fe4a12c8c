// Package store provides conversation store implementations. The in-memory
// store suits tests and ephemeral demo servers; the sqlite subpackage offers
// a durable single-node backend.
package store

import (
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// InMemory is a volatile ConversationStore keeping conversations in a process
// local map. It is safe for concurrent access. Each stored and returned
// conversation is cloned to prevent external mutation of internal state.
//
// Conversations live until explicitly deleted; there is no TTL. An optional
// MaxConversations cap turns unbounded growth into an explicit operator
// decision: once reached, new ids are rejected with core.ErrStoreFull.
type InMemory struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
	maxSize       int
}

// InMemoryOptions configure the in-memory store.
type InMemoryOptions struct {
	// MaxConversations caps the number of stored conversations; 0 means
	// unbounded.
	MaxConversations int
}

// NewInMemory constructs an empty in-memory conversation store.
func NewInMemory(optFns ...func(o *InMemoryOptions)) *InMemory {
	opts := InMemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemory{
		conversations: make(map[string]*core.Conversation),
		maxSize:       opts.MaxConversations,
	}
}

// Get returns a clone of the stored conversation or core.ErrNotFound.
func (s *InMemory) Get(discussionID string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[discussionID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return conv.Clone(), nil
}

// Put stores a clone of the snapshot after the optimistic version check: the
// incoming version must be exactly one greater than the stored version, or 1
// for a new id.
func (s *InMemory) Put(conv *core.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.conversations[conv.DiscussionID]
	if !exists {
		if conv.Version != 1 {
			return core.ErrConcurrentModification
		}
		if s.maxSize > 0 && len(s.conversations) >= s.maxSize {
			return core.ErrStoreFull
		}
	} else if conv.Version != stored.Version+1 {
		return core.ErrConcurrentModification
	}
	s.conversations[conv.DiscussionID] = conv.Clone()
	return nil
}

// Delete removes a conversation or returns core.ErrNotFound.
func (s *InMemory) Delete(discussionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[discussionID]; !ok {
		return core.ErrNotFound
	}
	delete(s.conversations, discussionID)
	return nil
}

// List returns the ids of all stored conversations in unspecified order.
func (s *InMemory) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids, nil
}
