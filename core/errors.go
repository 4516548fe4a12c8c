package core

import "errors"

var (
	// ErrNotFound is returned when no conversation exists for a discussion id.
	ErrNotFound = errors.New("conversation not found")

	// ErrConcurrentModification rejects a stale write whose version does not
	// follow the stored version. The caller must reload and retry.
	ErrConcurrentModification = errors.New("conversation modified concurrently")

	// ErrStoreFull is returned by bounded stores when creating a conversation
	// would exceed the configured capacity.
	ErrStoreFull = errors.New("conversation store full")

	// ErrAmbiguous is returned by a classifier when the request cannot be
	// assigned to a single category; the orchestrator responds with a
	// clarifying question.
	ErrAmbiguous = errors.New("classification ambiguous")

	// ErrCapabilityMismatch is reported by an executor invoked with a
	// capability it does not declare. The orchestrator reroutes or escalates.
	ErrCapabilityMismatch = errors.New("capability mismatch")

	// ErrExternalTool wraps failures of external collaborators (knowledge
	// search, record lookups) surfaced through an executor's error result.
	ErrExternalTool = errors.New("external tool failure")

	// ErrControlLoopExceeded terminates a turn whose hop count passed the
	// configured ceiling. Fatal for the turn only, never for the process.
	ErrControlLoopExceeded = errors.New("control loop exceeded maximum hops")
)
