// Package knowledge defines the knowledge-search collaborator contract and a
// process-local implementation suitable for tests and demos.
package knowledge

// Document is a retrieved knowledge base entry with a relevance score and
// arbitrary metadata.
type Document struct {
	ID       string
	Title    string
	Content  string
	Score    float64
	Metadata map[string]string
}

// Searcher retrieves ranked documents for a query. Implementations can back
// search with embeddings, keywords or any heuristic; retry policy is the
// implementation's concern.
type Searcher interface {
	Search(query string, limit int) ([]Document, error)
}
