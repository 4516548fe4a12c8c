package core

// ConversationStore persists conversations keyed by discussion id.
//
// Implementations must provide atomic per-key read-modify-write and enforce
// optimistic concurrency: Put accepts a conversation whose Version is exactly
// one greater than the stored version (or 1 for a new id) and returns
// ErrConcurrentModification otherwise. Returned conversations are clones;
// mutating them never affects stored state until the next Put.
type ConversationStore interface {
	// Get returns a clone of the stored conversation or ErrNotFound.
	Get(discussionID string) (*Conversation, error)

	// Put stores a clone of the conversation snapshot, subject to the version
	// check described above.
	Put(conv *Conversation) error

	// Delete removes a conversation or returns ErrNotFound. Callers are
	// responsible for serializing deletion against in-flight turns.
	Delete(discussionID string) error

	// List returns the ids of all stored conversations.
	List() ([]string, error)
}
