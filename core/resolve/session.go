package resolve

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
)

// Session owns the canonical entity state of one resolution run: the
// canonical store, the name index and the alias index. State is empty at
// session start, grows monotonically while candidates are added and is
// wiped only by an explicit Reset. All mutations are serialized through
// one mutex, callers may feed the session from concurrent extraction.
type Session struct {
	mu         sync.Mutex
	entities   map[uuid.UUID]*model.CanonicalEntity
	nameIndex  map[string]uuid.UUID
	aliasIndex map[string]uuid.UUID
	order      []uuid.UUID
	normalizer *Normalizer
	matcher    *Matcher
	config     model.ResolverConfig
	log        *slog.Logger
}

// NewSession creates an empty resolution session.
func NewSession(config model.ResolverConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		entities:   make(map[uuid.UUID]*model.CanonicalEntity),
		nameIndex:  make(map[string]uuid.UUID),
		aliasIndex: make(map[string]uuid.UUID),
		normalizer: NewNormalizer(config.ExpandAbbreviations, config.DropStopwords),
		matcher:    NewMatcher(config),
		config:     config,
		log:        logger,
	}
}

// AddEntity resolves a candidate against the session state. A matched
// candidate is merged into its canonical entity: the alias set becomes the
// union of both (plus the candidate's own name when it differs), confidence
// becomes the maximum, sources are concatenated and the description fills
// an empty one. An unmatched candidate becomes a new canonical entity with
// a fresh id. Every valid candidate yields an entity, invalid candidates
// return a ValidationError.
func (s *Session) AddEntity(candidate model.EntityCandidate) (*model.CanonicalEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntityLocked(candidate)
}

func (s *Session) addEntityLocked(candidate model.EntityCandidate) (*model.CanonicalEntity, error) {
	if err := s.validate(candidate); err != nil {
		return nil, err
	}

	key := s.normalizer.Normalize(candidate.Name)
	if key == "" {
		return nil, &model.ValidationError{Field: "name", Reason: fmt.Sprintf("name %q normalizes to an empty key", candidate.Name)}
	}

	id, found := s.matcher.Match(key, s.normalizer.Acronym(key), candidate.Type, s.nameIndex, s.aliasIndex, s.typeOf)
	if found {
		return s.mergeLocked(id, candidate), nil
	}
	return s.createLocked(key, candidate), nil
}

func (s *Session) mergeLocked(id uuid.UUID, candidate model.EntityCandidate) *model.CanonicalEntity {
	entity := s.entities[id]

	for _, alias := range candidate.Aliases {
		if entity.AddAlias(alias) {
			s.registerAlias(alias, id)
		}
	}
	if !strings.EqualFold(strings.TrimSpace(candidate.Name), entity.Name) {
		if entity.AddAlias(candidate.Name) {
			s.registerAlias(candidate.Name, id)
		}
	}

	if confidence := candidate.ConfidenceOrDefault(); confidence > entity.Confidence {
		entity.Confidence = confidence
	}
	entity.Sources = append(entity.Sources, candidate.Sources...)
	if entity.Description == "" && candidate.Description != "" {
		entity.Description = candidate.Description
	}
	for key, value := range candidate.Properties {
		if entity.Properties == nil {
			entity.Properties = model.Metadata{}
		}
		if _, ok := entity.Properties[key]; !ok {
			entity.Properties[key] = value
		}
	}
	entity.UpdatedAt = time.Now()

	s.log.Debug("Merged entity candidate",
		slog.String("candidate", candidate.Name),
		slog.String("canonical", entity.Name),
		slog.String("id", id.String()))

	return entity
}

func (s *Session) createLocked(key string, candidate model.EntityCandidate) *model.CanonicalEntity {
	now := time.Now()
	entity := &model.CanonicalEntity{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(candidate.Name),
		Type:        strings.TrimSpace(candidate.Type),
		Description: candidate.Description,
		Confidence:  candidate.ConfidenceOrDefault(),
		Sources:     append(model.SourceList(nil), candidate.Sources...),
		Properties:  candidate.Properties,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, alias := range candidate.Aliases {
		entity.AddAlias(alias)
	}

	s.entities[entity.ID] = entity
	s.nameIndex[key] = entity.ID
	s.order = append(s.order, entity.ID)
	for _, alias := range entity.Aliases {
		s.registerAlias(alias, entity.ID)
	}

	s.log.Debug("Created canonical entity",
		slog.String("name", entity.Name),
		slog.String("key", key),
		slog.String("id", entity.ID.String()))

	return entity
}

// FindByName resolves a name through the same cascade as AddEntity. On a
// hit the query string is back-registered as an alias when it differs from
// the canonical name, so the next lookup of the same spelling is an index
// hit. A hit with a conflicting entity type counts as not found. Without a
// hit the result is (nil, nil) unless createIfMissing delegates to
// AddEntity.
func (s *Session) FindByName(name string, entityType string, createIfMissing bool) (*model.CanonicalEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.normalizer.Normalize(name)
	if key != "" {
		id, found := s.matcher.Match(key, s.normalizer.Acronym(key), entityType, s.nameIndex, s.aliasIndex, s.typeOf)
		if found {
			entity := s.entities[id]
			if entityType == "" || entity.Type == "" || strings.EqualFold(entity.Type, entityType) {
				if !strings.EqualFold(strings.TrimSpace(name), entity.Name) && entity.AddAlias(name) {
					s.registerAlias(name, id)
				}
				return entity, nil
			}
		}
	}

	if !createIfMissing {
		return nil, nil
	}
	return s.addEntityLocked(model.EntityCandidate{Name: name, Type: entityType})
}

// DeduplicateEntities folds a batch of candidates through AddEntity and
// returns the distinct canonical entities touched, in first touch order,
// together with the number of dropped candidates.
func (s *Session) DeduplicateEntities(candidates []model.EntityCandidate) ([]*model.CanonicalEntity, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(candidates))
	touched := make([]*model.CanonicalEntity, 0, len(candidates))
	dropped := 0

	for _, candidate := range candidates {
		entity, err := s.addEntityLocked(candidate)
		if err != nil {
			dropped++
			s.log.Warn("Dropped entity candidate",
				slog.String("name", candidate.Name),
				slog.String("error", err.Error()))
			continue
		}
		if !seen[entity.ID] {
			seen[entity.ID] = true
			touched = append(touched, entity)
		}
	}
	return touched, dropped
}

// Reset clears the canonical store and both indexes. Resetting concurrently
// with in-flight resolution is undefined, the caller serializes lifecycle
// against use.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[uuid.UUID]*model.CanonicalEntity)
	s.nameIndex = make(map[string]uuid.UUID)
	s.aliasIndex = make(map[string]uuid.UUID)
	s.order = nil

	s.log.Debug("Reset resolution session")
}

// Entities returns the canonical entities in insertion order.
func (s *Session) Entities() []*model.CanonicalEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entities := make([]*model.CanonicalEntity, 0, len(s.order))
	for _, id := range s.order {
		entities = append(entities, s.entities[id])
	}
	return entities
}

// EntityCount returns the number of canonical entities in the session.
func (s *Session) EntityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

func (s *Session) validate(candidate model.EntityCandidate) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if !s.config.Ontology.IsEmpty() && !s.config.Ontology.HasLabel(candidate.Type) {
		return &model.ValidationError{Field: "type", Reason: fmt.Sprintf("type %q not part of the ontology", candidate.Type)}
	}
	return nil
}

func (s *Session) typeOf(id uuid.UUID) string {
	if entity, ok := s.entities[id]; ok {
		return entity.Type
	}
	return ""
}

func (s *Session) registerAlias(alias string, id uuid.UUID) {
	key := s.normalizer.Normalize(alias)
	if key == "" {
		return
	}
	if _, ok := s.nameIndex[key]; ok {
		return
	}
	if _, ok := s.aliasIndex[key]; ok {
		return
	}
	s.aliasIndex[key] = id
}
