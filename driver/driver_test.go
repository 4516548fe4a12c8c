package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/executor"
	"github.com/hupe1980/supportmesh/internal/testutil"
	"github.com/hupe1980/supportmesh/oracle"
	"github.com/hupe1980/supportmesh/orchestrator"
	"github.com/hupe1980/supportmesh/records"
	"github.com/hupe1980/supportmesh/store"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// holderFunc adapts a function to core.Holder for scripted orchestrators.
type holderFunc func(ctx context.Context, hc core.HandoffContext) core.Result

func (f holderFunc) Accept(ctx context.Context, hc core.HandoffContext) core.Result {
	return f(ctx, hc)
}

func fixedClassifier(id string) oracle.Classifier {
	return oracle.Func(func(context.Context, string, []taxonomy.Category) (string, error) {
		return id, nil
	})
}

// refundFixture wires the full billing stack: the built-in catalog, the real
// orchestrator and the record-backed executors over a seeded CRM client.
func refundFixture(t *testing.T, classifier oracle.Classifier) *Driver {
	t.Helper()
	client := records.NewInMemoryClient(records.Record{
		Ref:    "cust-1",
		Fields: map[string]string{"name": "Ada Lovelace"},
	})
	reg, err := executor.NewRegistry(
		executor.NewLookupCustomer(client),
		executor.NewProcessRefund(client),
		executor.NewUpdateRecord(client),
	)
	require.NoError(t, err)
	orch := orchestrator.New(taxonomy.NewResolver(taxonomy.Default()), classifier, reg)
	return New(store.NewInMemory(), orch, reg)
}

func TestHandleTurn_RefundPausesMidFlow(t *testing.T) {
	d := refundFixture(t, fixedClassifier("billing"))

	conv, err := d.HandleTurn(context.Background(), "d1",
		"I was charged twice for my subscription, I want a refund.",
		func(o *TurnOptions) {
			o.Metadata = map[string]string{executor.MetaCustomerRef: "cust-1"}
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "billing", conv.CurrentCategory)
	assert.Equal(t, "billing_refund", conv.CurrentFlow)
	assert.Equal(t, 2, conv.FlowStep)
	assert.Equal(t, taxonomy.CapProcessRefund, conv.ActiveHolder)
	assert.True(t, conv.WaitingForUser)

	// The pause question is the last message in the history.
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, core.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "confirm")
}

func TestHandleTurn_ResumeCompletesFlow(t *testing.T) {
	d := refundFixture(t, fixedClassifier("billing"))
	ctx := context.Background()

	_, err := d.HandleTurn(ctx, "d1", "I want a refund for a double charge.",
		func(o *TurnOptions) {
			o.Metadata = map[string]string{executor.MetaCustomerRef: "cust-1"}
		},
	)
	require.NoError(t, err)

	conv, err := d.HandleTurn(ctx, "d1", "Yes, please confirm the refund.")
	require.NoError(t, err)

	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	assert.False(t, conv.WaitingForUser)
	assert.Equal(t, 3, conv.FlowStep)

	last := conv.Messages[len(conv.Messages)-1]
	require.Equal(t, core.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "Found customer record cust-1")
	assert.Contains(t, last.Content, "Refund processed")
	assert.Contains(t, last.Content, "anything else")
}

func TestHandleTurn_AmbiguousThenClarified(t *testing.T) {
	var calls int32
	classifier := oracle.Func(func(_ context.Context, text string, _ []taxonomy.Category) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", core.ErrAmbiguous
		}
		return "billing", nil
	})
	d := refundFixture(t, classifier)
	ctx := context.Background()

	conv, err := d.HandleTurn(ctx, "d1", "Hi, I need help.")
	require.NoError(t, err)
	assert.True(t, conv.WaitingForUser)
	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	assert.Empty(t, conv.CurrentCategory)

	conv, err = d.HandleTurn(ctx, "d1", "I was double charged for my subscription.",
		func(o *TurnOptions) {
			o.Metadata = map[string]string{executor.MetaCustomerRef: "cust-1"}
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "billing", conv.CurrentCategory)
	assert.Equal(t, "billing_refund", conv.CurrentFlow)
}

func TestHandleTurn_HopCeiling(t *testing.T) {
	// An orchestrator that always hands off to an ever-completing executor
	// never terminates on its own; the driver must cut the loop.
	stub := testutil.NewStubExecutor("spin")
	orch := holderFunc(func(_ context.Context, _ core.HandoffContext) core.Result {
		return core.Result{Handoff: &core.HandoffRequest{Target: "spin"}}
	})
	reg, err := executor.NewRegistry(stub)
	require.NoError(t, err)
	d := New(store.NewInMemory(), orch, reg, func(o *Options) { o.MaxHops = 4 })

	conv, err := d.HandleTurn(context.Background(), "d1", "hello")
	require.ErrorIs(t, err, core.ErrControlLoopExceeded)
	require.NotNil(t, conv)

	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	assert.False(t, conv.WaitingForUser)
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, core.RoleAssistant, last.Role)

	// The terminated state is persisted, not just returned.
	stored, err := d.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, core.HolderOrchestrator, stored.ActiveHolder)
	assert.Equal(t, conv.Version, stored.Version)
}

func TestHandleTurn_PanicBecomesDiagnostic(t *testing.T) {
	orch := holderFunc(func(_ context.Context, _ core.HandoffContext) core.Result {
		panic("classifier exploded")
	})
	reg, err := executor.NewRegistry()
	require.NoError(t, err)
	d := New(store.NewInMemory(), orch, reg)

	conv, err := d.HandleTurn(context.Background(), "d1", "hello")
	require.NoError(t, err)

	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, core.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "something went wrong")
}

func TestHandleTurn_UnknownHolderFailsTurn(t *testing.T) {
	st := store.NewInMemory()
	reg, err := executor.NewRegistry()
	require.NoError(t, err)
	d := New(st, holderFunc(func(_ context.Context, _ core.HandoffContext) core.Result {
		return core.CompletedResult("fine")
	}), reg)

	seed := core.NewConversation("d1")
	seed.ActiveHolder = "ghost"
	seed.Version = 1
	require.NoError(t, st.Put(seed))

	conv, err := d.HandleTurn(context.Background(), "d1", "hello")
	require.NoError(t, err)
	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	last := conv.Messages[len(conv.Messages)-1]
	assert.Contains(t, last.Content, "something went wrong")
}

func TestHandleTurn_ExecutorErrorEscalates(t *testing.T) {
	classifier := fixedClassifier("billing")
	client := records.NewInMemoryClient() // empty CRM: lookups fail
	reg, err := executor.NewRegistry(
		executor.NewLookupCustomer(client),
		executor.NewProcessRefund(client),
		executor.NewUpdateRecord(client),
	)
	require.NoError(t, err)
	orch := orchestrator.New(taxonomy.NewResolver(taxonomy.Default()), classifier, reg)
	d := New(store.NewInMemory(), orch, reg)

	conv, err := d.HandleTurn(context.Background(), "d1", "refund please",
		func(o *TurnOptions) {
			o.Metadata = map[string]string{executor.MetaCustomerRef: "missing"}
		},
	)
	require.NoError(t, err)

	assert.Equal(t, core.HolderOrchestrator, conv.ActiveHolder)
	assert.False(t, conv.WaitingForUser)
	assert.Equal(t, "true", conv.Metadata["escalated"])
	last := conv.Messages[len(conv.Messages)-1]
	assert.Contains(t, last.Content, "support specialist")
}

func TestHandleTurn_ResumeDeliversPendingInstructions(t *testing.T) {
	// An executor pausing mid-step must see the same instructions on resume.
	var second core.HandoffContext
	stub := testutil.NewStubExecutor("probe",
		core.NeedsUserInputResult("need more"),
		core.CompletedResult("done"),
	)
	reg, err := executor.NewRegistry(stub)
	require.NoError(t, err)
	orch := holderFunc(func(_ context.Context, hc core.HandoffContext) core.Result {
		if hc.LastResult != nil {
			return core.CompletedResult("all done")
		}
		return core.Result{Handoff: &core.HandoffRequest{Target: "probe", Instructions: "verify the order"}}
	})
	d := New(store.NewInMemory(), orch, reg)
	ctx := context.Background()

	_, err = d.HandleTurn(ctx, "d1", "first")
	require.NoError(t, err)
	_, err = d.HandleTurn(ctx, "d1", "second")
	require.NoError(t, err)

	require.Len(t, stub.Accepted, 2)
	second = stub.Accepted[1]
	assert.Equal(t, "probe", second.Capability)
	assert.Equal(t, "verify the order", second.Instructions)
}

func TestHandleTurn_SerializesSameDiscussion(t *testing.T) {
	var active, overlaps int32
	probe := holderFunc(func(_ context.Context, _ core.HandoffContext) core.Result {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return core.CompletedResult("done")
	})
	reg, err := executor.NewRegistry()
	require.NoError(t, err)
	d := New(store.NewInMemory(), probe, reg)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.HandleTurn(context.Background(), "d1", "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps))

	conv, err := d.Get("d1")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 8) // 4 user + 4 assistant
}

func TestDelete(t *testing.T) {
	d := refundFixture(t, fixedClassifier("billing"))
	_, err := d.HandleTurn(context.Background(), "d1", "refund please",
		func(o *TurnOptions) {
			o.Metadata = map[string]string{executor.MetaCustomerRef: "cust-1"}
		},
	)
	require.NoError(t, err)

	require.NoError(t, d.Delete("d1"))
	_, err = d.Get("d1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, d.Delete("d1"), core.ErrNotFound)
}
