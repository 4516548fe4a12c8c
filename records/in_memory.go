package records

import "sync"

// InMemoryClient is a volatile Client implementation storing records in a
// process-local map. It is safe for concurrent access. Returned records carry
// copied field maps to prevent external mutation of internal state.
type InMemoryClient struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryClient constructs a client seeded with the given records.
func NewInMemoryClient(seed ...Record) *InMemoryClient {
	c := &InMemoryClient{records: make(map[string]Record, len(seed))}
	for _, r := range seed {
		c.records[r.Ref] = cloneRecord(r)
	}
	return c
}

// GetRecord returns a copy of the record or ErrRecordNotFound.
func (c *InMemoryClient) GetRecord(ref string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[ref]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return cloneRecord(r), nil
}

// SetRecord merges fields into an existing record, creating it when absent.
func (c *InMemoryClient) SetRecord(ref string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[ref]
	if !ok {
		r = Record{Ref: ref, Fields: map[string]string{}}
	}
	for k, v := range fields {
		r.Fields[k] = v
	}
	c.records[ref] = r
	return nil
}

func cloneRecord(r Record) Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Ref: r.Ref, Fields: fields}
}
