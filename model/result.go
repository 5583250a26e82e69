package model

import (
	"time"

	"github.com/google/uuid"
)

// WriteResult accumulates the outcome counters of a batch write.
type WriteResult struct {
	Created int `json:"created"` // new records inserted
	Merged  int `json:"merged"`  // existing records updated
	Skipped int `json:"skipped"` // records dropped before write, eg. failed referential checks
	Errors  int `json:"errors"`  // records that failed to persist
}

// Add folds other into r.
func (r *WriteResult) Add(other WriteResult) {
	r.Created += other.Created
	r.Merged += other.Merged
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}

// Total returns the number of records accounted for.
func (r *WriteResult) Total() int {
	return r.Created + r.Merged + r.Skipped + r.Errors
}

// DocumentReport summarizes one processed document.
type DocumentReport struct {
	DocumentID           uuid.UUID     `json:"document_id"`
	Chunks               int           `json:"chunks"`
	FailedChunks         int           `json:"failed_chunks"`
	DroppedCandidates    int           `json:"dropped_candidates"`    // entity candidates rejected during validation
	DroppedRelationships int           `json:"dropped_relationships"` // relationships with unresolvable endpoints
	Entities             WriteResult   `json:"entities"`
	Relationships        WriteResult   `json:"relationships"`
	Duration             time.Duration `json:"duration"`
}
