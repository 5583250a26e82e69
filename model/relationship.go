package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relationship represents a directed edge between two canonical entities.
// Identity is the (source, type, target) triple; re-ingesting the same fact
// updates the existing edge instead of duplicating it.
type Relationship struct {
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Type       string    `json:"relationship_type"`
	Evidence   string    `json:"evidence,omitempty"`
	Confidence float64   `json:"confidence"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RelationshipCandidate is a raw relationship as supplied by the extraction
// collaborator. Source and Target may be canonical ids, chunk-local ids or
// plain entity names; SourceName and TargetName carry the original surface
// names for the rewrite fallback.
type RelationshipCandidate struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	SourceName string   `json:"source_name,omitempty"`
	TargetName string   `json:"target_name,omitempty"`
	Type       string   `json:"type"`
	Evidence   string   `json:"evidence,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// ConfidenceOrDefault returns the candidate confidence, clamped to [0,1],
// or DefaultCandidateConfidence if none was supplied.
func (c *RelationshipCandidate) ConfidenceOrDefault() float64 {
	if c.Confidence == nil {
		return DefaultCandidateConfidence
	}
	confidence := *c.Confidence
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// NormalizeRelationshipType converts a free-form relationship type into its
// stored form: trimmed, upper-cased, with spaces and hyphens collapsed to
// single underscores ("works at" -> "WORKS_AT").
func NormalizeRelationshipType(relType string) string {
	relType = strings.ToUpper(strings.TrimSpace(relType))
	relType = strings.ReplaceAll(relType, "-", " ")
	relType = strings.Join(strings.Fields(relType), "_")
	return relType
}
