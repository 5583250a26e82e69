package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports a candidate that failed structural validation.
// Affected records are dropped and counted, processing continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %v: %v", e.Field, e.Reason)
}

// ReferentialIntegrityError reports relationships whose endpoints are not
// present in the store. Affected records are skipped, processing continues.
type ReferentialIntegrityError struct {
	MissingIDs []uuid.UUID
}

func (e *ReferentialIntegrityError) Error() string {
	ids := make([]string, 0, len(e.MissingIDs))
	for _, id := range e.MissingIDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("referential integrity violated, missing ids: %v", strings.Join(ids, ", "))
}

// TransactionError reports a failed store transaction. The batch falls back
// to per-record writes before any record is counted as an error.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %v failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// ConnectivityError reports an unreachable store. It is fatal for the
// current document, no partial per-record fallback is attempted.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("store %v unreachable: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
