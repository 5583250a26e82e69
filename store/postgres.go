package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/database"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	loadSql "github.com/siherrmann/graphmaker/sql"
)

// PostgresStore persists the graph in PostgreSQL through the database
// handlers. Entities are upserted by id, relationships by their
// (source, type, target) triple. Batch operations run inside one explicit
// transaction.
type PostgresStore struct {
	DB            *helper.Database
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	log           *slog.Logger
}

// NewPostgresStore initializes the schema and handlers on an already
// connected database. If force is true, SQL functions are reloaded even if
// they already exist.
func NewPostgresStore(db *helper.Database, force bool, logger *slog.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if logger == nil {
		logger = db.Logger
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database", err)
	}

	// Relationships reference entities, order matters.
	entities, err := database.NewEntitiesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}
	relationships, err := database.NewRelationshipsDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	return &PostgresStore{
		DB:            db,
		Entities:      entities,
		Relationships: relationships,
		log:           logger,
	}, nil
}

func (s *PostgresStore) UpsertEntityBatch(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error) {
	tx, err := s.DB.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.ConnectivityError{Endpoint: s.DB.Name, Err: err}
	}

	result := &model.WriteResult{}
	for _, entity := range entities {
		created, err := s.Entities.UpsertEntityTx(tx, entity)
		if err != nil {
			tx.Rollback()
			return nil, &model.TransactionError{Op: "upsert entity batch", Err: err}
		}
		if created {
			result.Created++
		} else {
			result.Merged++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.TransactionError{Op: "commit entity batch", Err: err}
	}
	return result, nil
}

func (s *PostgresStore) UpsertEntity(ctx context.Context, entity *model.CanonicalEntity) (bool, error) {
	created, err := s.Entities.UpsertEntity(entity)
	if err != nil {
		return false, &model.TransactionError{Op: "upsert entity", Err: err}
	}
	return created, nil
}

func (s *PostgresStore) UpsertRelationshipBatch(ctx context.Context, relType string, relationships []*model.Relationship) (*model.WriteResult, error) {
	tx, err := s.DB.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.ConnectivityError{Endpoint: s.DB.Name, Err: err}
	}

	result := &model.WriteResult{}
	for _, relationship := range relationships {
		created, err := s.Relationships.UpsertRelationshipTx(tx, relationship)
		if err != nil {
			tx.Rollback()
			return nil, &model.TransactionError{Op: fmt.Sprintf("upsert %v batch", relType), Err: err}
		}
		if created {
			result.Created++
		} else {
			result.Merged++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.TransactionError{Op: fmt.Sprintf("commit %v batch", relType), Err: err}
	}
	return result, nil
}

func (s *PostgresStore) UpsertRelationship(ctx context.Context, relationship *model.Relationship) (bool, error) {
	created, err := s.Relationships.UpsertRelationship(relationship)
	if err != nil {
		return false, &model.TransactionError{Op: "upsert relationship", Err: err}
	}
	return created, nil
}

func (s *PostgresStore) CheckIdsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	existing, err := s.Entities.CheckEntityIds(ids)
	if err != nil {
		return nil, helper.NewError("check ids exist", err)
	}
	return existing, nil
}

// ReadQuery runs an arbitrary SQL read query. Named :param placeholders
// are rebound to positional arguments, rows come back as column maps.
func (s *PostgresStore) ReadQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rebound, args := rebindNamedParams(query, params)

	rows, err := s.DB.Instance.QueryContext(ctx, rebound, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, helper.NewError("columns", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, helper.NewError("scan", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[column] = value
		}
		results = append(results, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.DB.Close()
}

// rebindNamedParams replaces :name placeholders with $n positional
// placeholders. Only names present in params are replaced, "::" casts and
// unknown names pass through untouched.
func rebindNamedParams(query string, params map[string]any) (string, []any) {
	var args []any
	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == ':' && i+1 < len(query) && isIdentStart(query[i+1]) {
			j := i + 1
			for j < len(query) && isIdentPart(query[j]) {
				j++
			}
			name := query[i+1 : j]
			if value, ok := params[name]; ok {
				args = append(args, value)
				fmt.Fprintf(&b, "$%d", len(args))
				i = j - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String(), args
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
