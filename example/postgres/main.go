package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphmaker"
	"github.com/siherrmann/graphmaker/core/pipeline"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/store"
)

const sampleContent = `CenterPoint Energy Inc is headquartered in Houston.
The company operates electric transmission across the Texas gulf coast.
CenterPoint Energy Inc partners with ERCOT for grid balancing.`

func extractor(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
	var entities []model.EntityCandidate
	var relationships []model.RelationshipCandidate

	if strings.Contains(chunk, "CenterPoint Energy Inc") {
		entities = append(entities, model.EntityCandidate{Name: "CenterPoint Energy Inc", Type: "Company"})
	}
	if strings.Contains(chunk, "Houston") {
		entities = append(entities, model.EntityCandidate{Name: "Houston", Type: "City"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "CenterPoint Energy Inc", Target: "Houston", Type: "headquartered in",
		})
	}
	if strings.Contains(chunk, "ERCOT") {
		entities = append(entities, model.EntityCandidate{Name: "ERCOT", Type: "Organization"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "CenterPoint Energy Inc", Target: "ERCOT", Type: "partners with",
		})
	}

	return entities, relationships, nil
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	database, err := helper.NewDatabase("example", dbConfig, slog.Default())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	postgresStore, err := store.NewPostgresStore(database, false, slog.Default())
	if err != nil {
		log.Fatalf("Failed to create postgres store: %v", err)
	}

	g, err := graphmaker.NewGraphMaker(postgresStore, nil)
	if err != nil {
		log.Fatalf("Failed to create graphmaker: %v", err)
	}
	defer g.Close(ctx)

	g.SetPipeline(pipeline.NewPipeline(pipeline.SentenceChunker(1), extractor))

	doc := model.NewDocument("CenterPoint overview", sampleContent)

	fmt.Println("Ingesting document...")
	report, err := g.ProcessDocument(ctx, doc)
	if err != nil {
		log.Fatalf("Failed to process document: %v", err)
	}
	fmt.Printf("Processed %d chunks, wrote %d entities and %d relationships\n",
		report.Chunks, report.Entities.Total(), report.Relationships.Total())

	// Query the graph back through the generic read interface
	rows, err := g.Store.ReadQuery(ctx,
		`SELECT e.name, r.relationship_type, t.name AS target
		 FROM relationships r
		 JOIN entities e ON e.id = r.source_id
		 JOIN entities t ON t.id = r.target_id
		 ORDER BY r.relationship_type`, nil)
	if err != nil {
		log.Fatalf("Failed to query graph: %v", err)
	}

	fmt.Println("\nStored edges:")
	for _, row := range rows {
		fmt.Printf("  (%v) -[%v]-> (%v)\n", row["name"], row["relationship_type"], row["target"])
	}
}
