package database

import (
	"context"
	dbsql "database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	UpsertRelationship(relationship *model.Relationship) (bool, error)
	UpsertRelationshipTx(tx *dbsql.Tx, relationship *model.Relationship) (bool, error)
	SelectRelationshipsBetween(sourceID uuid.UUID, targetID uuid.UUID) ([]*model.Relationship, error)
	CountRelationshipsBetween(sourceID uuid.UUID, targetID uuid.UUID, relType string) (int64, error)
	CountRelationships() (int64, error)
	DeleteRelationship(sourceID uuid.UUID, targetID uuid.UUID, relType string) error
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL
// functions. The entities table must exist, so the entities handler is
// created first. If force is true, it will reload the SQL functions even if
// they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := sql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// UpsertRelationship creates the edge or overwrites its mutable fields, in
// its own implicit transaction. The edge is matched by its
// (source, type, target) triple and updated in place with the stored row.
// Returns whether the edge was created.
func (h *RelationshipsDBHandler) UpsertRelationship(relationship *model.Relationship) (bool, error) {
	return h.upsertRelationship(h.db.Instance, relationship)
}

// UpsertRelationshipTx is UpsertRelationship inside a caller-owned transaction.
func (h *RelationshipsDBHandler) UpsertRelationshipTx(tx *dbsql.Tx, relationship *model.Relationship) (bool, error) {
	return h.upsertRelationship(tx, relationship)
}

func (h *RelationshipsDBHandler) upsertRelationship(q rowQuerier, relationship *model.Relationship) (bool, error) {
	row := q.QueryRow(
		`SELECT * FROM upsert_relationship($1, $2, $3, $4, $5, $6)`,
		relationship.SourceID,
		relationship.TargetID,
		relationship.Type,
		relationship.Evidence,
		relationship.Confidence,
		relationship.Metadata,
	)

	var created bool
	err := row.Scan(
		&relationship.SourceID,
		&relationship.TargetID,
		&relationship.Type,
		&relationship.Evidence,
		&relationship.Confidence,
		&relationship.Metadata,
		&relationship.CreatedAt,
		&relationship.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectRelationshipsBetween retrieves all edges from source to target.
func (h *RelationshipsDBHandler) SelectRelationshipsBetween(sourceID uuid.UUID, targetID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_between($1, $2)`,
		sourceID,
		targetID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []*model.Relationship
	for rows.Next() {
		relationship := &model.Relationship{}
		err := rows.Scan(
			&relationship.SourceID,
			&relationship.TargetID,
			&relationship.Type,
			&relationship.Evidence,
			&relationship.Confidence,
			&relationship.Metadata,
			&relationship.CreatedAt,
			&relationship.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relationships = append(relationships, relationship)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// CountRelationshipsBetween counts edges from source to target, optionally
// restricted to one relationship type.
func (h *RelationshipsDBHandler) CountRelationshipsBetween(sourceID uuid.UUID, targetID uuid.UUID, relType string) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(
		`SELECT count_relationships_between($1, $2, $3)`,
		sourceID,
		targetID,
		relType,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// CountRelationships returns the number of stored edges.
func (h *RelationshipsDBHandler) CountRelationships() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_relationships()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteRelationship removes one edge.
func (h *RelationshipsDBHandler) DeleteRelationship(sourceID uuid.UUID, targetID uuid.UUID, relType string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relationship($1, $2, $3)`,
		sourceID,
		targetID,
		relType,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
