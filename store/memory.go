package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
)

// MemoryStore is a process-local GraphStore used for tests, examples and
// dry runs. It keeps its own copies of all records, so callers can keep
// mutating entities after a write without changing stored state.
type MemoryStore struct {
	mu            sync.RWMutex
	entities      map[uuid.UUID]*model.CanonicalEntity
	relationships map[string]*model.Relationship
	log           *slog.Logger
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entities:      make(map[uuid.UUID]*model.CanonicalEntity),
		relationships: make(map[string]*model.Relationship),
		log:           logger,
	}
}

func (m *MemoryStore) UpsertEntityBatch(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &model.WriteResult{}
	for _, entity := range entities {
		if m.upsertEntityLocked(entity) {
			result.Created++
		} else {
			result.Merged++
		}
	}
	return result, nil
}

func (m *MemoryStore) UpsertEntity(ctx context.Context, entity *model.CanonicalEntity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertEntityLocked(entity), nil
}

func (m *MemoryStore) upsertEntityLocked(entity *model.CanonicalEntity) bool {
	stored, exists := m.entities[entity.ID]
	clone := cloneEntity(entity)
	if exists {
		// Mutable fields overwrite, the original creation time stays.
		clone.CreatedAt = stored.CreatedAt
	}
	m.entities[entity.ID] = clone
	return !exists
}

func (m *MemoryStore) UpsertRelationshipBatch(ctx context.Context, relType string, relationships []*model.Relationship) (*model.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &model.WriteResult{}
	for _, relationship := range relationships {
		if m.upsertRelationshipLocked(relationship) {
			result.Created++
		} else {
			result.Merged++
		}
	}
	return result, nil
}

func (m *MemoryStore) UpsertRelationship(ctx context.Context, relationship *model.Relationship) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertRelationshipLocked(relationship), nil
}

func (m *MemoryStore) upsertRelationshipLocked(relationship *model.Relationship) bool {
	key := tripleKey(relationship.SourceID, relationship.Type, relationship.TargetID)
	stored, exists := m.relationships[key]
	clone := cloneRelationship(relationship)
	if exists {
		clone.CreatedAt = stored.CreatedAt
	}
	m.relationships[key] = clone
	return !exists
}

func (m *MemoryStore) CheckIdsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.entities[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// ReadQuery supports a small command vocabulary: count_entities,
// count_relationships, count_relationships_between (params source, target
// and optional type) and entity_by_id (param id).
func (m *MemoryStore) ReadQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch query {
	case "count_entities":
		return []map[string]any{{"count": int64(len(m.entities))}}, nil

	case "count_relationships":
		return []map[string]any{{"count": int64(len(m.relationships))}}, nil

	case "count_relationships_between":
		source, err := paramID(params, "source")
		if err != nil {
			return nil, err
		}
		target, err := paramID(params, "target")
		if err != nil {
			return nil, err
		}
		relType, _ := params["type"].(string)

		count := int64(0)
		for _, relationship := range m.relationships {
			if relationship.SourceID != source || relationship.TargetID != target {
				continue
			}
			if relType != "" && relationship.Type != relType {
				continue
			}
			count++
		}
		return []map[string]any{{"count": count}}, nil

	case "entity_by_id":
		id, err := paramID(params, "id")
		if err != nil {
			return nil, err
		}
		entity, ok := m.entities[id]
		if !ok {
			return nil, nil
		}
		return []map[string]any{{
			"id":          entity.ID.String(),
			"name":        entity.Name,
			"entity_type": entity.Type,
			"description": entity.Description,
			"aliases":     append([]string(nil), entity.Aliases...),
			"confidence":  entity.Confidence,
		}}, nil

	default:
		return nil, fmt.Errorf("unknown query %q", query)
	}
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// EntityCount returns the number of stored entities.
func (m *MemoryStore) EntityCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// RelationshipCount returns the number of stored relationships.
func (m *MemoryStore) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relationships)
}

// Entity returns the stored copy of an entity, or nil.
func (m *MemoryStore) Entity(id uuid.UUID) *model.CanonicalEntity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, ok := m.entities[id]
	if !ok {
		return nil
	}
	return cloneEntity(entity)
}

func tripleKey(source uuid.UUID, relType string, target uuid.UUID) string {
	return source.String() + "|" + relType + "|" + target.String()
}

func paramID(params map[string]any, name string) (uuid.UUID, error) {
	switch value := params[name].(type) {
	case uuid.UUID:
		return value, nil
	case string:
		id, err := uuid.Parse(value)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid %v parameter: %w", name, err)
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("missing %v parameter", name)
	}
}

func cloneEntity(entity *model.CanonicalEntity) *model.CanonicalEntity {
	clone := *entity
	clone.Aliases = append([]string(nil), entity.Aliases...)
	clone.Sources = append(model.SourceList(nil), entity.Sources...)
	if entity.Properties != nil {
		clone.Properties = model.Metadata{}
		for key, value := range entity.Properties {
			clone.Properties[key] = value
		}
	}
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = time.Now()
	}
	return &clone
}

func cloneRelationship(relationship *model.Relationship) *model.Relationship {
	clone := *relationship
	if relationship.Metadata != nil {
		clone.Metadata = model.Metadata{}
		for key, value := range relationship.Metadata {
			clone.Metadata[key] = value
		}
	}
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = time.Now()
	}
	return &clone
}
