// Package records defines the customer-record (CRM) collaborator contract
// and a process-local implementation for tests and demos.
package records

import "errors"

// ErrRecordNotFound is returned when no record exists for the given reference.
var ErrRecordNotFound = errors.New("record not found")

// Record is a customer record keyed by an opaque reference.
type Record struct {
	Ref    string            `json:"ref"`
	Fields map[string]string `json:"fields"`
}

// Client reads and writes customer records in an external system. Failures
// are returned as errors; retry policy is the implementation's concern.
type Client interface {
	GetRecord(ref string) (Record, error)
	SetRecord(ref string, fields map[string]string) error
}
