package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/records"
	"github.com/hupe1980/supportmesh/taxonomy"
)

// Metadata keys shared between the record-backed executors. customer_ref is
// the opaque CRM reference for the customer; callers may seed it via submit
// metadata, otherwise LookupCustomer asks the user for it.
const (
	MetaCustomerRef     = "customer_ref"
	MetaRefundConfirmed = "refund_confirmed"
	metaRefundAsked     = "process_refund.asked"
)

// LookupCustomer retrieves the customer record referenced by the
// conversation metadata. Without a reference it pauses the turn and asks the
// user for one.
type LookupCustomer struct {
	client records.Client
}

// NewLookupCustomer constructs the executor over a record client.
func NewLookupCustomer(client records.Client) *LookupCustomer {
	return &LookupCustomer{client: client}
}

// Capability implements core.Executor.
func (e *LookupCustomer) Capability() string { return taxonomy.CapLookupCustomer }

// Accept implements core.Holder.
func (e *LookupCustomer) Accept(_ context.Context, hc core.HandoffContext) core.Result {
	if r, bad := rejectMismatch(hc, e.Capability()); bad {
		return r
	}
	ref, ok := hc.Conversation.Metadata[MetaCustomerRef]
	if !ok || ref == "" {
		return core.NeedsUserInputResult("Could you share the email address or order number on the account so I can look it up?")
	}
	rec, err := e.client.GetRecord(ref)
	if err != nil {
		return core.ErrorResult(fmt.Errorf("%w: get record %q: %v", core.ErrExternalTool, ref, err))
	}
	return core.CompletedResult(summarizeRecord(rec))
}

// ProcessRefund checks refund eligibility and applies the refund to the
// customer record. The first invocation pauses the turn to have the customer
// confirm; on resume an affirmative reply (or a pre-set confirmation flag)
// lets the refund proceed.
type ProcessRefund struct {
	client records.Client
}

// NewProcessRefund constructs the executor over a record client.
func NewProcessRefund(client records.Client) *ProcessRefund {
	return &ProcessRefund{client: client}
}

// Capability implements core.Executor.
func (e *ProcessRefund) Capability() string { return taxonomy.CapProcessRefund }

// Accept implements core.Holder.
func (e *ProcessRefund) Accept(_ context.Context, hc core.HandoffContext) core.Result {
	if r, bad := rejectMismatch(hc, e.Capability()); bad {
		return r
	}
	ref, ok := hc.Conversation.Metadata[MetaCustomerRef]
	if !ok || ref == "" {
		return core.NeedsUserInputResult("Could you share the email address or order number on the account so I can look it up?")
	}

	if !e.confirmed(hc) {
		if _, asked := hc.Conversation.Metadata[metaRefundAsked]; asked {
			// Asked and not confirmed: treat the reply as a decline.
			return core.CompletedResult("Understood, I won't process the refund.")
		}
		res := core.NeedsUserInputResult("I can process that refund. Could you confirm the refund amount?")
		res.Delta.Metadata = map[string]string{metaRefundAsked: "true"}
		return res
	}

	if err := e.client.SetRecord(ref, map[string]string{"refund_status": "processed"}); err != nil {
		return core.ErrorResult(fmt.Errorf("%w: set record %q: %v", core.ErrExternalTool, ref, err))
	}
	res := core.CompletedResult("Refund processed and recorded on the account.")
	res.Delta.Metadata = map[string]string{MetaRefundConfirmed: "true"}
	return res
}

func (e *ProcessRefund) confirmed(hc core.HandoffContext) bool {
	if v := hc.Conversation.Metadata[MetaRefundConfirmed]; v == "true" || v == "yes" {
		return true
	}
	if _, asked := hc.Conversation.Metadata[metaRefundAsked]; !asked {
		return false
	}
	msg, ok := hc.Conversation.LastUserMessage()
	if !ok {
		return false
	}
	reply := strings.ToLower(msg.Content)
	return strings.Contains(reply, "yes") || strings.Contains(reply, "confirm")
}

// UpdateRecord writes resolution details back to the customer record.
type UpdateRecord struct {
	client records.Client
}

// NewUpdateRecord constructs the executor over a record client.
func NewUpdateRecord(client records.Client) *UpdateRecord {
	return &UpdateRecord{client: client}
}

// Capability implements core.Executor.
func (e *UpdateRecord) Capability() string { return taxonomy.CapUpdateRecord }

// Accept implements core.Holder.
func (e *UpdateRecord) Accept(_ context.Context, hc core.HandoffContext) core.Result {
	if r, bad := rejectMismatch(hc, e.Capability()); bad {
		return r
	}
	ref, ok := hc.Conversation.Metadata[MetaCustomerRef]
	if !ok || ref == "" {
		return core.NeedsUserInputResult("Could you share the email address or order number on the account so I can update it?")
	}
	fields := map[string]string{"status": "resolved"}
	if hc.Instructions != "" {
		fields["last_resolution"] = hc.Instructions
	}
	if err := e.client.SetRecord(ref, fields); err != nil {
		return core.ErrorResult(fmt.Errorf("%w: set record %q: %v", core.ErrExternalTool, ref, err))
	}
	return core.CompletedResult("Customer record updated.")
}

// rejectMismatch guards an executor against requests carrying a foreign
// capability label. The orchestrator handles the resulting error result by
// escalating rather than retrying blindly.
func rejectMismatch(hc core.HandoffContext, capability string) (core.Result, bool) {
	if hc.Capability == "" || hc.Capability == capability {
		return core.Result{}, false
	}
	return core.ErrorResult(fmt.Errorf("%w: executor %q received request for %q",
		core.ErrCapabilityMismatch, capability, hc.Capability)), true
}

func summarizeRecord(rec records.Record) string {
	if len(rec.Fields) == 0 {
		return fmt.Sprintf("Found customer record %s.", rec.Ref)
	}
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "Found customer record %s:", rec.Ref)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, rec.Fields[k])
	}
	return b.String()
}
