// Package supportmesh provides a high-level façade over the conversation
// driver and its collaborators, enabling turnkey construction of a customer
// request routing service. Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding default in-memory services)
//  2. Submitting inbound messages (Submit) and inspecting state (Get/List)
//  3. Deleting finished discussions (Delete)
//
// The façade delegates turn processing to driver.Driver while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store, an
// LLM-backed classifier and a structured logger.
package supportmesh

import (
	"context"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/driver"
	"github.com/hupe1980/supportmesh/executor"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/knowledge"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/metrics"
	"github.com/hupe1980/supportmesh/oracle"
	"github.com/hupe1980/supportmesh/orchestrator"
	"github.com/hupe1980/supportmesh/records"
	"github.com/hupe1980/supportmesh/store"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// Options configure the Mesh instance.
type Options struct {
	// Store persists conversation state (defaults to in-memory).
	Store core.ConversationStore
	// Categories is the routing catalog (defaults to the built-in taxonomy).
	Categories []taxonomy.Category
	// Classifier is the classification oracle (defaults to the keyword
	// classifier over the built-in taxonomy).
	Classifier oracle.Classifier
	// Executors replace the default executor set. When nil, in-memory
	// knowledge and record collaborators back the built-in executors.
	Executors []core.Executor
	// Knowledge backs the default knowledge_lookup executor; ignored when
	// Executors is set.
	Knowledge knowledge.Searcher
	// Records backs the default record executors; ignored when Executors is set.
	Records records.Client
	// MaxHops bounds holder invocations per turn.
	MaxHops int
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
	// Metrics (defaults to NoOp recorder if nil).
	Metrics metrics.Recorder
}

// Mesh is the high-level façade aggregating the driver and its services.
type Mesh struct {
	driver   *driver.Driver
	resolver *taxonomy.Resolver
}

// New creates a Mesh with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Mesh, error) {
	opts := Options{
		Store:      store.NewInMemory(),
		Categories: taxonomy.Default(),
		Classifier: oracle.NewKeywordClassifier(oracle.DefaultKeywords()),
		MaxHops:    16,
		Logger:     logging.NoOpLogger{},
		Metrics:    metrics.NoOpRecorder{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	executors := opts.Executors
	if executors == nil {
		searcher := opts.Knowledge
		if searcher == nil {
			searcher = knowledge.NewInMemorySearcher()
		}
		client := opts.Records
		if client == nil {
			client = records.NewInMemoryClient()
		}
		executors = []core.Executor{
			executor.NewLookupCustomer(client),
			executor.NewProcessRefund(client),
			executor.NewUpdateRecord(client),
			executor.NewKnowledgeLookup(searcher),
		}
	}

	registry, err := executor.NewRegistry(executors...)
	if err != nil {
		return nil, err
	}

	resolver := taxonomy.NewResolver(opts.Categories)
	orch := orchestrator.New(resolver, opts.Classifier, registry, func(o *orchestrator.Options) {
		o.Logger = opts.Logger
	})
	drv := driver.New(opts.Store, orch, registry, func(o *driver.Options) {
		o.MaxHops = opts.MaxHops
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &Mesh{driver: drv, resolver: resolver}, nil
}

// SubmitRequest is one inbound customer message. DiscussionID may be empty to
// start a new discussion; Metadata entries are merged into the conversation
// before the turn runs (e.g. executor.MetaCustomerRef to pre-resolve the
// customer record).
type SubmitRequest struct {
	DiscussionID string            `json:"discussion_id,omitempty"`
	Message      string            `json:"message"`
	UserID       string            `json:"user_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Submit drives one turn for the request and returns the updated
// conversation. A core.ErrControlLoopExceeded error still carries the
// persisted conversation.
func (m *Mesh) Submit(ctx context.Context, req SubmitRequest) (*core.Conversation, error) {
	discussionID := req.DiscussionID
	if discussionID == "" {
		discussionID = util.NewID()
	}
	meta := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.UserID != "" {
		meta["user_id"] = req.UserID
	}
	return m.driver.HandleTurn(ctx, discussionID, req.Message, func(o *driver.TurnOptions) {
		o.Metadata = meta
	})
}

// Get returns a clone of the conversation or core.ErrNotFound.
func (m *Mesh) Get(discussionID string) (*core.Conversation, error) {
	return m.driver.Get(discussionID)
}

// Delete removes a discussion, waiting out any in-flight turn on its id.
func (m *Mesh) Delete(discussionID string) error {
	return m.driver.Delete(discussionID)
}

// List returns all stored discussion ids.
func (m *Mesh) List() ([]string, error) {
	return m.driver.List()
}

// Categories exposes the routing catalog, e.g. for transport-layer listings.
func (m *Mesh) Categories() []taxonomy.Category {
	return m.resolver.Categories()
}
