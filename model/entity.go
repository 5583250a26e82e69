package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/helper"
)

// DefaultCandidateConfidence is assumed for candidates that arrive without
// a confidence value.
const DefaultCandidateConfidence = 0.5

// SourceRef records where a canonical entity was observed
type SourceRef struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Confidence float64 `json:"confidence"`
}

// SourceList is stored as JSONB in PostgreSQL and as a JSON string
// property in Neo4j.
type SourceList []SourceRef

// Value implements the driver.Valuer interface
func (s SourceList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *SourceList) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
	return json.Unmarshal(b, s)
}

// CanonicalEntity is the single deduplicated representation of a real-world
// thing. It is created on the first unmatched candidate and mutated on every
// subsequent match: aliases grow union-only, confidence is max-on-merge and
// sources are concatenated.
type CanonicalEntity struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"entity_type"`
	Description string     `json:"description,omitempty"`
	Aliases     []string   `json:"aliases,omitempty"`
	Confidence  float64    `json:"confidence"`
	Sources     SourceList `json:"sources,omitempty"`
	Properties  Metadata   `json:"properties,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AddAlias adds an alternate surface form to the entity. Empty strings, the
// display name itself and aliases already present (case-insensitive) are
// ignored. Returns true if the alias set grew.
func (e *CanonicalEntity) AddAlias(alias string) bool {
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.EqualFold(alias, e.Name) {
		return false
	}
	if e.HasAlias(alias) {
		return false
	}
	e.Aliases = append(e.Aliases, alias)
	return true
}

// HasAlias reports whether the entity already carries the alias,
// compared case-insensitively.
func (e *CanonicalEntity) HasAlias(alias string) bool {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, alias) {
			return true
		}
	}
	return false
}

// EntityCandidate is a raw, untrusted entity as supplied by the extraction
// collaborator. Optional fields default at the ingestion boundary.
type EntityCandidate struct {
	ID          string     `json:"id,omitempty"` // chunk-local identifier, if any
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Aliases     []string   `json:"aliases,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
	Sources     SourceList `json:"sources,omitempty"`
	Properties  Metadata   `json:"properties,omitempty"`
}

// Validate checks the fields required for resolution.
func (c *EntityCandidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "missing entity name"}
	}
	if strings.TrimSpace(c.Type) == "" {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("missing entity type for %q", c.Name)}
	}
	return nil
}

// ConfidenceOrDefault returns the candidate confidence, clamped to [0,1],
// or DefaultCandidateConfidence if none was supplied.
func (c *EntityCandidate) ConfidenceOrDefault() float64 {
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
