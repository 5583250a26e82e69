package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
)

// Neo4jStore persists the graph in Neo4j. Entities become (:Entity) nodes
// keyed by their id property, relationships become typed edges merged on
// the (source, type, target) triple. Sources, properties and relationship
// metadata are stored as JSON string properties.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	uri      string
	log      *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity with a bounded
// number of retries. An unreachable server returns a ConnectivityError.
func NewNeo4jStore(config *helper.Neo4jConfiguration, retries int, backoff time.Duration, logger *slog.Logger) (*Neo4jStore, error) {
	if config == nil {
		return nil, helper.NewError("neo4j configuration validation", fmt.Errorf("neo4j configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retries < 1 {
		retries = 1
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	driver, err := neo4j.NewDriverWithContext(
		config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
		func(c *neo4jconfig.Config) {
			c.MaxConnectionPoolSize = config.MaxPoolSize
			c.ConnectionAcquisitionTimeout = config.Timeout
		},
	)
	if err != nil {
		return nil, helper.NewError("create neo4j driver", err)
	}

	ctx := context.Background()
	wait := backoff
	for attempt := 1; ; attempt++ {
		err = driver.VerifyConnectivity(ctx)
		if err == nil {
			break
		}
		if attempt >= retries {
			driver.Close(ctx)
			return nil, &model.ConnectivityError{Endpoint: config.URI, Err: err}
		}
		logger.Warn("Neo4j not reachable, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		time.Sleep(wait)
		wait *= 2
	}

	store := &Neo4jStore{
		driver:   driver,
		database: config.Database,
		uri:      config.URI,
		log:      logger,
	}
	store.ensureConstraints(ctx)

	logger.Info("Connected to Neo4j", slog.String("uri", config.URI))

	return store, nil
}

// ensureConstraints creates the uniqueness constraint on Entity ids. Older
// servers or restricted users may reject this, ingestion still works then.
func (s *Neo4jStore) ensureConstraints(ctx context.Context) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE", nil)
	if err != nil {
		s.log.Warn("Could not create entity id constraint", slog.String("error", err.Error()))
	}
}

func (s *Neo4jStore) UpsertEntityBatch(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error) {
	rows := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		row, err := entityRow(entity)
		if err != nil {
			return nil, helper.NewError("encode entity", err)
		}
		rows = append(rows, row)
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MERGE (e:Entity {id: row.id})
			ON CREATE SET e.created_at = row.created_at
			SET e.name = row.name,
				e.entity_type = row.entity_type,
				e.description = row.description,
				e.aliases = row.aliases,
				e.confidence = row.confidence,
				e.sources = row.sources,
				e.properties = row.properties,
				e.updated_at = row.updated_at`,
			map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesCreated(), nil
	})
	if err != nil {
		return nil, s.writeError("upsert entity batch", err)
	}

	createdCount := created.(int)
	return &model.WriteResult{
		Created: createdCount,
		Merged:  len(entities) - createdCount,
	}, nil
}

func (s *Neo4jStore) UpsertEntity(ctx context.Context, entity *model.CanonicalEntity) (bool, error) {
	result, err := s.UpsertEntityBatch(ctx, []*model.CanonicalEntity{entity})
	if err != nil {
		return false, err
	}
	return result.Created > 0, nil
}

func (s *Neo4jStore) UpsertRelationshipBatch(ctx context.Context, relType string, relationships []*model.Relationship) (*model.WriteResult, error) {
	rows := make([]map[string]any, 0, len(relationships))
	for _, relationship := range relationships {
		row, err := relationshipRow(relationship)
		if err != nil {
			return nil, helper.NewError("encode relationship", err)
		}
		rows = append(rows, row)
	}

	// Relationship types cannot be parameterized in Cypher.
	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (source:Entity {id: row.source_id})
		MATCH (target:Entity {id: row.target_id})
		MERGE (source)-[r:%s]->(target)
		ON CREATE SET r.created_at = row.created_at
		SET r.evidence = row.evidence,
			r.confidence = row.confidence,
			r.metadata = row.metadata,
			r.updated_at = row.updated_at
		RETURN count(r) AS touched`, safeRelationshipType(relType))

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	counts, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}

		touched, _ := record.Get("touched")
		return [2]int{summary.Counters().RelationshipsCreated(), int(touched.(int64))}, nil
	})
	if err != nil {
		return nil, s.writeError("upsert relationship batch", err)
	}

	created := counts.([2]int)[0]
	touched := counts.([2]int)[1]
	return &model.WriteResult{
		Created: created,
		Merged:  touched - created,
		// Rows whose endpoints disappeared between check and write never
		// match and are absent from touched.
		Skipped: len(relationships) - touched,
	}, nil
}

func (s *Neo4jStore) UpsertRelationship(ctx context.Context, relationship *model.Relationship) (bool, error) {
	result, err := s.UpsertRelationshipBatch(ctx, relationship.Type, []*model.Relationship{relationship})
	if err != nil {
		return false, err
	}
	if result.Skipped > 0 {
		return false, &model.ReferentialIntegrityError{
			MissingIDs: []uuid.UUID{relationship.SourceID, relationship.TargetID},
		}
	}
	return result.Created > 0, nil
}

func (s *Neo4jStore) CheckIdsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	found, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"MATCH (e:Entity) WHERE e.id IN $ids RETURN e.id AS id",
			map[string]any{"ids": idStrings})
		if err != nil {
			return nil, err
		}

		var found []string
		for result.Next(ctx) {
			if value, ok := result.Record().Get("id"); ok {
				if id, ok := value.(string); ok {
					found = append(found, id)
				}
			}
		}
		return found, result.Err()
	})
	if err != nil {
		return nil, s.readError("check ids exist", err)
	}

	existing := make(map[uuid.UUID]bool, len(ids))
	for _, value := range found.([]string) {
		if id, err := uuid.Parse(value); err == nil {
			existing[id] = true
		}
	}
	return existing, nil
}

// ReadQuery runs an arbitrary Cypher read query in an independent read
// session and returns the records as maps.
func (s *Neo4jStore) ReadQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var rows []map[string]any
		for result.Next(ctx) {
			rows = append(rows, result.Record().AsMap())
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, s.readError("read query", err)
	}
	return rows.([]map[string]any), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
}

func (s *Neo4jStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
}

func (s *Neo4jStore) writeError(op string, err error) error {
	if neo4j.IsConnectivityError(err) {
		return &model.ConnectivityError{Endpoint: s.uri, Err: err}
	}
	return &model.TransactionError{Op: op, Err: err}
}

func (s *Neo4jStore) readError(op string, err error) error {
	if neo4j.IsConnectivityError(err) {
		return &model.ConnectivityError{Endpoint: s.uri, Err: err}
	}
	return helper.NewError(op, err)
}

func entityRow(entity *model.CanonicalEntity) (map[string]any, error) {
	sources, err := encodeJSON(entity.Sources, "[]")
	if err != nil {
		return nil, err
	}
	properties, err := encodeJSON(entity.Properties, "{}")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"id":          entity.ID.String(),
		"name":        entity.Name,
		"entity_type": entity.Type,
		"description": entity.Description,
		"aliases":     entity.Aliases,
		"confidence":  entity.Confidence,
		"sources":     sources,
		"properties":  properties,
		"created_at":  entity.CreatedAt,
		"updated_at":  entity.UpdatedAt,
	}, nil
}

func relationshipRow(relationship *model.Relationship) (map[string]any, error) {
	metadata, err := encodeJSON(relationship.Metadata, "{}")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"source_id":  relationship.SourceID.String(),
		"target_id":  relationship.TargetID.String(),
		"evidence":   relationship.Evidence,
		"confidence": relationship.Confidence,
		"metadata":   metadata,
		"created_at": relationship.CreatedAt,
		"updated_at": relationship.UpdatedAt,
	}, nil
}

func encodeJSON(value any, empty string) (string, error) {
	if value == nil {
		return empty, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(encoded) == "null" {
		return empty, nil
	}
	return string(encoded), nil
}

// safeRelationshipType reduces a relationship type to characters that are
// safe to interpolate into Cypher.
func safeRelationshipType(relType string) string {
	var b strings.Builder
	for _, r := range relType {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if safe == "" {
		safe = "RELATED_TO"
	}
	return "`" + safe + "`"
}
