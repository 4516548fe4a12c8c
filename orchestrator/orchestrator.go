// Package orchestrator implements the top-level holder of the control
// transfer loop. It classifies incoming requests against the taxonomy,
// resolves the flow and current step, delegates steps to registered
// executors via the handoff protocol, and synthesizes the final answer from
// the outputs executors left behind.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/executor"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/oracle"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// outputKeyPrefix prefixes metadata keys holding executor step outputs.
const outputKeyPrefix = "output."

// Options configure the orchestrator.
type Options struct {
	// Logger receives routing decisions at debug level.
	Logger logging.Logger
}

// Orchestrator owns request classification, flow resolution and delegation.
// It is stateless between invocations: everything it needs arrives in the
// handoff context, and everything it changes leaves through the result delta.
type Orchestrator struct {
	resolver   *taxonomy.Resolver
	classifier oracle.Classifier
	registry   *executor.Registry
	logger     logging.Logger
}

// New constructs an orchestrator over a catalog resolver, a classification
// oracle and the executor registry.
func New(resolver *taxonomy.Resolver, classifier oracle.Classifier, registry *executor.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		resolver:   resolver,
		classifier: classifier,
		registry:   registry,
		logger:     opts.Logger,
	}
}

// Accept implements core.Holder. One invocation performs as much routing work
// as possible without blocking on the user: classify if needed, then either
// hand off the current step, compose the final answer, or ask for input.
func (o *Orchestrator) Accept(ctx context.Context, hc core.HandoffContext) core.Result {
	view := hc.Conversation
	category := view.CurrentCategory
	flowID := view.CurrentFlow
	stepIdx := view.FlowStep
	var delta core.StateDelta

	// Control returned from an executor: bank its output and honor any
	// branch override before resolving the next step.
	if hc.LastResult != nil {
		last := hc.LastResult
		if last.Status == core.StatusError {
			return o.escalate(hc.LastHolder, last, delta)
		}
		if hc.LastHolder != "" && last.Payload != "" {
			addMeta(&delta, outputKeyPrefix+hc.LastHolder, last.Payload)
		}
		if last.NextStep != nil {
			stepIdx = *last.NextStep
			delta.FlowStep = &stepIdx
		}
	}

	if category == "" {
		msg, ok := view.LastUserMessage()
		if !ok {
			return core.ErrorResult(fmt.Errorf("no user message to classify"))
		}
		id, err := o.classifier.Classify(ctx, msg.Content, o.resolver.Categories())
		if errors.Is(err, core.ErrAmbiguous) {
			o.logger.Debug("classification ambiguous", "discussion_id", view.DiscussionID)
			res := core.NeedsUserInputResult("Could you tell me a bit more about what you need help with so I can route your request?")
			res.Delta = delta
			return res
		}
		if err != nil {
			return core.ErrorResult(fmt.Errorf("%w: classify: %v", core.ErrExternalTool, err))
		}
		category = id
		delta.Category = &category
		o.logger.Debug("request classified", "discussion_id", view.DiscussionID, "category", category)
	}

	if flowID == "" {
		flow, ok := o.selectFlow(category)
		if !ok {
			return o.directAnswer(category, delta)
		}
		flowID = flow.ID
		stepIdx = 0
		delta.Flow = &flowID
		delta.FlowStep = &stepIdx
		o.logger.Debug("flow selected", "discussion_id", view.DiscussionID, "flow", flowID)
	}

	flow, ok := o.resolver.Flow(category, flowID)
	if !ok {
		return o.directAnswer(category, delta)
	}

	step, ok := taxonomy.NextStep(flow, stepIdx)
	if !ok {
		return o.finalAnswer(view, flow, delta)
	}

	if _, registered := o.registry.Lookup(step.Capability); !registered {
		o.logger.Warn("no executor for capability", "capability", step.Capability, "flow", flowID)
		return o.directAnswer(category, delta)
	}

	// Advance the step pointer at dispatch time so FlowStep always names the
	// next undispatched step, even across a mid-step pause.
	next := stepIdx + 1
	if step.Branch != nil {
		next = *step.Branch
	}
	delta.FlowStep = &next

	return core.Result{
		Handoff: &core.HandoffRequest{
			Target:       step.Capability,
			Reason:       fmt.Sprintf("flow %s step %d", flowID, stepIdx),
			Instructions: step.Instructions,
		},
		Delta: delta,
	}
}

// selectFlow returns the first flow of the category whose opening step
// matches a registered capability.
func (o *Orchestrator) selectFlow(category string) (taxonomy.Flow, bool) {
	for _, flow := range o.resolver.Flows(category) {
		if len(flow.Steps) == 0 {
			continue
		}
		if _, ok := o.registry.Lookup(flow.Steps[0].Capability); ok {
			return flow, true
		}
	}
	return taxonomy.Flow{}, false
}

// directAnswer is used when no flow or executor matches the request: the
// orchestrator answers on its own instead of failing the turn.
func (o *Orchestrator) directAnswer(category string, delta core.StateDelta) core.Result {
	answer := "Thanks for reaching out. I couldn't match your request to an automated resolution flow, so a support specialist will follow up with you."
	if c, ok := o.lookupCategory(category); ok {
		answer = fmt.Sprintf("Thanks for reaching out about %s. I couldn't match your request to an automated resolution flow, so a support specialist will follow up with you.", strings.ToLower(c.Name))
	}
	res := core.CompletedResult(answer)
	res.Delta = delta
	return res
}

// escalate converts a failed executor step into an apologetic final answer
// rather than retrying blindly.
func (o *Orchestrator) escalate(holder string, last *core.Result, delta core.StateDelta) core.Result {
	o.logger.Warn("executor step failed, escalating", "holder", holder, "detail", last.Detail)
	addMeta(&delta, "escalated", "true")
	res := core.CompletedResult("I'm sorry, I ran into a problem while working on your request. A support specialist will follow up with you shortly.")
	res.Delta = delta
	return res
}

// finalAnswer synthesizes the turn's answer from the outputs executors left
// in metadata, in flow-step order.
func (o *Orchestrator) finalAnswer(view core.View, flow taxonomy.Flow, delta core.StateDelta) core.Result {
	merged := make(map[string]string, len(view.Metadata)+len(delta.Metadata))
	for k, v := range view.Metadata {
		merged[k] = v
	}
	for k, v := range delta.Metadata {
		merged[k] = v
	}

	var parts []string
	seen := map[string]bool{}
	for _, step := range flow.Steps {
		if seen[step.Capability] {
			continue
		}
		seen[step.Capability] = true
		if out := merged[outputKeyPrefix+step.Capability]; out != "" {
			parts = append(parts, out)
		}
	}

	answer := "I've completed the steps for your request."
	if len(parts) > 0 {
		answer = strings.Join(parts, "\n\n") + "\n\nIs there anything else I can help you with?"
	}
	res := core.CompletedResult(answer)
	res.Delta = delta
	return res
}

func (o *Orchestrator) lookupCategory(id string) (taxonomy.Category, bool) {
	for _, c := range o.resolver.Categories() {
		if c.ID == id {
			return c, true
		}
	}
	return taxonomy.Category{}, false
}

func addMeta(delta *core.StateDelta, key, value string) {
	if delta.Metadata == nil {
		delta.Metadata = map[string]string{}
	}
	delta.Metadata[key] = value
}
