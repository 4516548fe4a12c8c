// Package driver implements the conversation loop: it loads or creates
// conversation state for an inbound message, repeatedly invokes the active
// holder, applies each handoff result, and persists state after every hop so
// a crash mid-turn resumes from the last completed hop. Turns for the same
// discussion are strictly serialized; distinct discussions run in parallel.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/executor"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/metrics"
)

// metaHandoffInstructions carries the pending step instructions across a
// mid-step pause so the executor sees them again on resume. Driver-owned;
// holders never write it.
const metaHandoffInstructions = "handoff.instructions"

// Turn outcomes reported to the metrics recorder.
const (
	outcomeCompleted      = "completed"
	outcomeWaitingForUser = "waiting_for_user"
	outcomeError          = "error"
	outcomeLoopExceeded   = "control_loop_exceeded"
)

// Options configure the driver.
type Options struct {
	// MaxHops bounds holder invocations per turn. Exceeding it terminates the
	// turn with core.ErrControlLoopExceeded.
	MaxHops int
	// Logger receives per-hop diagnostics.
	Logger logging.Logger
	// Metrics receives turn and hop observations.
	Metrics metrics.Recorder
}

// Driver drives turns through the control-transfer loop. Public methods are
// safe for concurrent use.
type Driver struct {
	store        core.ConversationStore
	orchestrator core.Holder
	registry     *executor.Registry

	maxHops int
	logger  logging.Logger
	metrics metrics.Recorder

	locks *keyedMutex
}

// New constructs a Driver with optional overrides.
func New(store core.ConversationStore, orch core.Holder, registry *executor.Registry, optFns ...func(o *Options)) *Driver {
	opts := Options{
		MaxHops: 16,
		Logger:  logging.NoOpLogger{},
		Metrics: metrics.NoOpRecorder{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Driver{
		store:        store,
		orchestrator: orch,
		registry:     registry,
		maxHops:      opts.MaxHops,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		locks:        newKeyedMutex(),
	}
}

// TurnOptions carry per-turn extras merged into the conversation before the
// loop runs.
type TurnOptions struct {
	// Metadata entries are merged into conversation metadata.
	Metadata map[string]string
}

// HandleTurn processes one inbound message for a discussion, creating the
// conversation on first contact. It returns the updated conversation when the
// turn pauses for user input or completes. Holder failures never propagate as
// errors; they end the turn with a diagnostic message in the history. The
// only error returns are store failures and core.ErrControlLoopExceeded.
func (d *Driver) HandleTurn(ctx context.Context, discussionID, message string, optFns ...func(o *TurnOptions)) (*core.Conversation, error) {
	unlock := d.locks.lock(discussionID)
	defer unlock()

	var turnOpts TurnOptions
	for _, fn := range optFns {
		fn(&turnOpts)
	}

	started := time.Now()

	conv, err := d.store.Get(discussionID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		conv = core.NewConversation(discussionID)
	case err != nil:
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	conv.MergeMeta(turnOpts.Metadata)
	conv.Append(core.NewUserMessage(message))
	conv.WaitingForUser = false
	if err := d.persist(conv); err != nil {
		return nil, err
	}

	var (
		lastResult *core.Result
		lastHolder string
	)

	for hop := 0; hop < d.maxHops; hop++ {
		holderName := conv.ActiveHolder
		holder, err := d.resolveHolder(holderName)
		if err != nil {
			d.metrics.TurnFinished(outcomeError, time.Since(started))
			return d.failTurn(conv, err.Error())
		}

		hc := core.HandoffContext{
			Conversation: conv.Snapshot(),
			LastHolder:   lastHolder,
			LastResult:   lastResult,
		}
		if holderName != core.HolderOrchestrator {
			hc.Capability = holderName
			hc.Instructions, _ = conv.GetMeta(metaHandoffInstructions)
		}
		lastResult, lastHolder = nil, ""

		res := d.invoke(ctx, holder, hc)
		d.metrics.Hop(holderName)
		conv.ApplyDelta(res.Delta)

		switch {
		case res.Handoff != nil:
			d.logger.Debug("handoff", "discussion_id", discussionID, "from", holderName, "to", res.Handoff.Target)
			conv.ActiveHolder = res.Handoff.Target
			conv.SetMeta(metaHandoffInstructions, res.Handoff.Instructions)
			d.metrics.Handoff(res.Handoff.Target)
			if err := d.persist(conv); err != nil {
				return nil, err
			}

		case res.Status == core.StatusNeedsUserInput:
			if res.Payload != "" {
				conv.Append(core.NewAssistantMessage(res.Payload))
			}
			conv.WaitingForUser = true
			if err := d.persist(conv); err != nil {
				return nil, err
			}
			d.metrics.TurnFinished(outcomeWaitingForUser, time.Since(started))
			return conv, nil

		case res.Status == core.StatusCompleted && holderName != core.HolderOrchestrator:
			// Executor finished its step: control returns to the orchestrator.
			completed := res
			lastResult, lastHolder = &completed, holderName
			conv.ActiveHolder = core.HolderOrchestrator
			conv.DeleteMeta(metaHandoffInstructions)
			if err := d.persist(conv); err != nil {
				return nil, err
			}

		case res.Status == core.StatusCompleted:
			answer := res.Payload
			if answer == "" {
				answer = "Your request has been handled."
			}
			conv.Append(core.NewAssistantMessage(answer))
			conv.WaitingForUser = false
			if err := d.persist(conv); err != nil {
				return nil, err
			}
			d.metrics.TurnFinished(outcomeCompleted, time.Since(started))
			return conv, nil

		case res.Status == core.StatusError && holderName != core.HolderOrchestrator:
			// Recoverable: the orchestrator decides whether to reroute or
			// escalate instead of the driver retrying blindly.
			d.logger.Warn("executor hop failed", "discussion_id", discussionID, "holder", holderName, "detail", res.Detail)
			failed := res
			lastResult, lastHolder = &failed, holderName
			conv.ActiveHolder = core.HolderOrchestrator
			conv.DeleteMeta(metaHandoffInstructions)
			if err := d.persist(conv); err != nil {
				return nil, err
			}

		default:
			d.metrics.TurnFinished(outcomeError, time.Since(started))
			detail := res.Detail
			if detail == "" {
				detail = fmt.Sprintf("holder %s returned unexpected status %q", holderName, res.Status)
			}
			return d.failTurn(conv, detail)
		}
	}

	d.logger.Error("hop ceiling exceeded", "discussion_id", discussionID, "max_hops", d.maxHops)
	d.metrics.TurnFinished(outcomeLoopExceeded, time.Since(started))
	conv.Append(core.NewAssistantMessage("I'm sorry, I wasn't able to finish processing your request. A support specialist will follow up with you."))
	conv.ActiveHolder = core.HolderOrchestrator
	conv.WaitingForUser = false
	conv.DeleteMeta(metaHandoffInstructions)
	if err := d.persist(conv); err != nil {
		return nil, err
	}
	return conv, core.ErrControlLoopExceeded
}

// Get returns a clone of the conversation or core.ErrNotFound.
func (d *Driver) Get(discussionID string) (*core.Conversation, error) {
	return d.store.Get(discussionID)
}

// Delete removes a conversation. It takes the discussion lock first so a
// delete never races an in-flight turn on the same id.
func (d *Driver) Delete(discussionID string) error {
	unlock := d.locks.lock(discussionID)
	defer unlock()
	return d.store.Delete(discussionID)
}

// List returns all stored discussion ids.
func (d *Driver) List() ([]string, error) {
	return d.store.List()
}

// invoke calls the holder, converting a panic into an error result so no
// fault ever escapes the handoff contract.
func (d *Driver) invoke(ctx context.Context, holder core.Holder, hc core.HandoffContext) (res core.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("holder panicked", "discussion_id", hc.Conversation.DiscussionID, "panic", r)
			res = core.ErrorResult(fmt.Errorf("holder panic: %v", r))
		}
	}()
	return holder.Accept(ctx, hc)
}

func (d *Driver) resolveHolder(name string) (core.Holder, error) {
	if name == core.HolderOrchestrator {
		return d.orchestrator, nil
	}
	if exec, ok := d.registry.Lookup(name); ok {
		return exec, nil
	}
	return nil, fmt.Errorf("no holder registered for %q", name)
}

// failTurn terminates the turn with a diagnostic message, resetting control
// to the orchestrator. Per-discussion failures never crash the process.
func (d *Driver) failTurn(conv *core.Conversation, detail string) (*core.Conversation, error) {
	d.logger.Error("turn failed", "discussion_id", conv.DiscussionID, "detail", detail)
	conv.Append(core.NewAssistantMessage("I'm sorry, something went wrong while processing your request. Please try again."))
	conv.ActiveHolder = core.HolderOrchestrator
	conv.WaitingForUser = false
	conv.DeleteMeta(metaHandoffInstructions)
	if err := d.persist(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (d *Driver) persist(conv *core.Conversation) error {
	conv.Version++
	if err := d.store.Put(conv); err != nil {
		conv.Version--
		return fmt.Errorf("persist conversation: %w", err)
	}
	return nil
}
