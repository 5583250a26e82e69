package model

import "strings"

// Ontology constrains extraction and resolution to a closed vocabulary of
// entity types. The relationship descriptor is free-form guidance handed to
// the extraction collaborator. An empty ontology means the type vocabulary
// is open.
type Ontology struct {
	Labels                 []string `json:"labels"`
	RelationshipDescriptor string   `json:"relationship_descriptor"`
}

// NewOntology creates an ontology from entity type labels and a
// relationship descriptor.
func NewOntology(labels []string, relationshipDescriptor string) *Ontology {
	return &Ontology{
		Labels:                 labels,
		RelationshipDescriptor: relationshipDescriptor,
	}
}

// HasLabel reports whether the label is part of the vocabulary,
// compared case-insensitively.
func (o *Ontology) HasLabel(label string) bool {
	for _, l := range o.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the ontology constrains anything at all.
func (o *Ontology) IsEmpty() bool {
	return o == nil || len(o.Labels) == 0
}
