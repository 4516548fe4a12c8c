package knowledge

import (
	"strings"
	"sync"
)

// InMemorySearcher is a naive process-local Searcher.
//
// Concurrency: protected by RWMutex.
// Search: linear scan with case-insensitive token matching, scoring by the
// fraction of query tokens present in the document. Suitable only for tests
// and demos; swap for a vector index or search service for production
// retrieval.
type InMemorySearcher struct {
	mu   sync.RWMutex
	docs []Document
}

// NewInMemorySearcher creates a searcher seeded with the given documents.
func NewInMemorySearcher(docs ...Document) *InMemorySearcher {
	s := &InMemorySearcher{}
	s.docs = append(s.docs, docs...)
	return s
}

// Add appends documents to the searchable set.
func (s *InMemorySearcher) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
}

// Search scores every stored document against the query tokens and returns
// hits ordered by insertion, up to limit. An empty query matches nothing.
func (s *InMemorySearcher) Search(query string, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return []Document{}, nil
	}

	results := make([]Document, 0, limit)
	for _, doc := range s.docs {
		if limit > 0 && len(results) >= limit {
			break
		}
		haystack := strings.ToLower(doc.Title + " " + doc.Content)
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		scored := doc
		scored.Score = float64(hits) / float64(len(tokens))
		results = append(results, scored)
	}
	return results, nil
}
