package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/testutil"
	"github.com/hupe1980/supportmesh/knowledge"
	"github.com/hupe1980/supportmesh/records"
	"github.com/hupe1980/supportmesh/taxonomy"
)

func recordsFixture() *records.InMemoryClient {
	return records.NewInMemoryClient(records.Record{
		Ref:    "cust-1",
		Fields: map[string]string{"name": "Ada Lovelace", "plan": "pro"},
	})
}

func contextFor(conv *core.Conversation, capability string) core.HandoffContext {
	return core.HandoffContext{Conversation: conv.Snapshot(), Capability: capability}
}

func TestRegistry(t *testing.T) {
	client := recordsFixture()
	reg, err := NewRegistry(NewLookupCustomer(client), NewProcessRefund(client))
	require.NoError(t, err)

	_, ok := reg.Lookup(taxonomy.CapLookupCustomer)
	assert.True(t, ok)
	_, ok = reg.Lookup("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{taxonomy.CapLookupCustomer, taxonomy.CapProcessRefund}, reg.Capabilities())
}

func TestRegistry_DuplicateCapability(t *testing.T) {
	client := recordsFixture()
	_, err := NewRegistry(NewLookupCustomer(client), NewLookupCustomer(client))
	assert.Error(t, err)
}

func TestLookupCustomer_AsksForReference(t *testing.T) {
	e := NewLookupCustomer(recordsFixture())
	conv := testutil.NewConversationBuilder("d1").User("I need a refund").Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	assert.Equal(t, core.StatusNeedsUserInput, res.Status)
	assert.NotEmpty(t, res.Payload)
}

func TestLookupCustomer_ReturnsRecord(t *testing.T) {
	e := NewLookupCustomer(recordsFixture())
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		User("I need a refund").
		Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	require.Equal(t, core.StatusCompleted, res.Status)
	assert.Contains(t, res.Payload, "cust-1")
	assert.Contains(t, res.Payload, "Ada Lovelace")
}

func TestLookupCustomer_ToolFailure(t *testing.T) {
	e := NewLookupCustomer(records.NewInMemoryClient())
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "ghost").
		User("hi").
		Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Detail, core.ErrExternalTool.Error())
}

func TestProcessRefund_AsksForConfirmation(t *testing.T) {
	e := NewProcessRefund(recordsFixture())
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		User("I need a refund").
		Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	assert.Equal(t, core.StatusNeedsUserInput, res.Status)
	assert.Contains(t, res.Payload, "confirm")
	assert.Equal(t, "true", res.Delta.Metadata[metaRefundAsked])
}

func TestProcessRefund_ConfirmedByReply(t *testing.T) {
	client := recordsFixture()
	e := NewProcessRefund(client)
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		Meta(metaRefundAsked, "true").
		User("I need a refund").
		Assistant("Could you confirm the refund amount?").
		User("yes, 20 dollars is right").
		Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	require.Equal(t, core.StatusCompleted, res.Status)
	assert.Equal(t, "true", res.Delta.Metadata[MetaRefundConfirmed])

	rec, err := client.GetRecord("cust-1")
	require.NoError(t, err)
	assert.Equal(t, "processed", rec.Fields["refund_status"])
}

func TestProcessRefund_Declined(t *testing.T) {
	client := recordsFixture()
	e := NewProcessRefund(client)
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		Meta(metaRefundAsked, "true").
		User("actually never mind").
		Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	require.Equal(t, core.StatusCompleted, res.Status)
	assert.Contains(t, res.Payload, "won't process")

	rec, err := client.GetRecord("cust-1")
	require.NoError(t, err)
	assert.Empty(t, rec.Fields["refund_status"])
}

func TestUpdateRecord(t *testing.T) {
	client := recordsFixture()
	e := NewUpdateRecord(client)
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		User("update please").
		Build()

	hc := contextFor(conv, e.Capability())
	hc.Instructions = "Record the refund outcome."
	res := e.Accept(context.Background(), hc)
	require.Equal(t, core.StatusCompleted, res.Status)

	rec, err := client.GetRecord("cust-1")
	require.NoError(t, err)
	assert.Equal(t, "resolved", rec.Fields["status"])
	assert.Equal(t, "Record the refund outcome.", rec.Fields["last_resolution"])
}

func TestKnowledgeLookup(t *testing.T) {
	searcher := knowledge.NewInMemorySearcher(
		knowledge.Document{ID: "kb-1", Title: "Refund policy", Content: "Refunds are available within 30 days."},
	)
	e := NewKnowledgeLookup(searcher)
	conv := testutil.NewConversationBuilder("d1").User("what is your refund policy?").Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	require.Equal(t, core.StatusCompleted, res.Status)
	assert.Contains(t, res.Payload, "Refund policy")
}

func TestKnowledgeLookup_NoHits(t *testing.T) {
	e := NewKnowledgeLookup(knowledge.NewInMemorySearcher())
	conv := testutil.NewConversationBuilder("d1").User("zzz").Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	require.Equal(t, core.StatusCompleted, res.Status)
	assert.Contains(t, res.Payload, "No matching")
}

func TestKnowledgeLookup_SearcherFailure(t *testing.T) {
	e := NewKnowledgeLookup(failingSearcher{})
	conv := testutil.NewConversationBuilder("d1").User("anything").Build()

	res := e.Accept(context.Background(), contextFor(conv, e.Capability()))
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Detail, core.ErrExternalTool.Error())
}

func TestCapabilityMismatchIsRejected(t *testing.T) {
	client := recordsFixture()
	conv := testutil.NewConversationBuilder("d1").
		Meta(MetaCustomerRef, "cust-1").
		User("hi").
		Build()

	executors := []core.Executor{
		NewLookupCustomer(client),
		NewProcessRefund(client),
		NewUpdateRecord(client),
		NewKnowledgeLookup(knowledge.NewInMemorySearcher()),
	}
	for _, e := range executors {
		res := e.Accept(context.Background(), contextFor(conv, "some_other_capability"))
		assert.Equal(t, core.StatusError, res.Status, "executor %s", e.Capability())
		assert.Contains(t, res.Detail, core.ErrCapabilityMismatch.Error())
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(string, int) ([]knowledge.Document, error) {
	return nil, errors.New("index unavailable")
}
