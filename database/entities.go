package database

import (
	"context"
	dbsql "database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/sql"
)

// rowQuerier is satisfied by *sql.DB and *sql.Tx, so every handler
// operation can run standalone or inside an explicit transaction.
type rowQuerier interface {
	QueryRow(query string, args ...any) *dbsql.Row
}

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	UpsertEntity(entity *model.CanonicalEntity) (bool, error)
	UpsertEntityTx(tx *dbsql.Tx, entity *model.CanonicalEntity) (bool, error)
	SelectEntity(id uuid.UUID) (*model.CanonicalEntity, error)
	CheckEntityIds(ids []uuid.UUID) (map[uuid.UUID]bool, error)
	CountEntities() (int64, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := sql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// UpsertEntity creates the entity or overwrites its mutable fields, in its
// own implicit transaction. The entity is updated in place with the stored
// row. Returns whether the row was created.
func (h *EntitiesDBHandler) UpsertEntity(entity *model.CanonicalEntity) (bool, error) {
	return h.upsertEntity(h.db.Instance, entity)
}

// UpsertEntityTx is UpsertEntity inside a caller-owned transaction.
func (h *EntitiesDBHandler) UpsertEntityTx(tx *dbsql.Tx, entity *model.CanonicalEntity) (bool, error) {
	return h.upsertEntity(tx, entity)
}

func (h *EntitiesDBHandler) upsertEntity(q rowQuerier, entity *model.CanonicalEntity) (bool, error) {
	row := q.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.ID,
		entity.Name,
		entity.Type,
		entity.Description,
		pq.Array(entity.Aliases),
		entity.Confidence,
		entity.Sources,
		entity.Properties,
	)

	var created bool
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&entity.Description,
		pq.Array(&entity.Aliases),
		&entity.Confidence,
		&entity.Sources,
		&entity.Properties,
		&entity.CreatedAt,
		&entity.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectEntity retrieves an entity by id.
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.CanonicalEntity, error) {
	entity := &model.CanonicalEntity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&entity.Description,
		pq.Array(&entity.Aliases),
		&entity.Confidence,
		&entity.Sources,
		&entity.Properties,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// CheckEntityIds reports which of the given ids exist. The query runs on
// its own pooled connection, so the answer reflects committed state.
func (h *EntitiesDBHandler) CheckEntityIds(ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM check_entity_ids($1::uuid[])`,
		pq.Array(idStrings),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	existing := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		err := rows.Scan(&id)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		existing[id] = true
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return existing, nil
}

// CountEntities returns the number of stored entities.
func (h *EntitiesDBHandler) CountEntities() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_entities()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteEntity deletes an entity by id.
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
