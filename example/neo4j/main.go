package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/siherrmann/graphmaker"
	"github.com/siherrmann/graphmaker/core/pipeline"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/store"
)

const sampleContent = `Austin Energy is a publicly owned utility serving Travis County.
Austin Energy buys wind power from West Texas wind farms.`

func extractor(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
	var entities []model.EntityCandidate
	var relationships []model.RelationshipCandidate

	if strings.Contains(chunk, "Austin Energy") {
		entities = append(entities, model.EntityCandidate{Name: "Austin Energy", Type: "Company"})
	}
	if strings.Contains(chunk, "Travis County") {
		entities = append(entities, model.EntityCandidate{Name: "Travis County", Type: "Region"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "Austin Energy", Target: "Travis County", Type: "serves",
		})
	}
	if strings.Contains(chunk, "West Texas") {
		entities = append(entities, model.EntityCandidate{Name: "West Texas", Type: "Region"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "Austin Energy", Target: "West Texas", Type: "buys power from",
		})
	}

	return entities, relationships, nil
}

func main() {
	ctx := context.Background()

	// Start a test Neo4j container
	teardown, boltURL, err := helper.MustStartNeo4jContainer()
	if err != nil {
		log.Fatalf("Failed to start Neo4j container: %v", err)
	}
	defer teardown(ctx)

	neo4jConfig := &helper.Neo4jConfiguration{
		URI:         boltURL,
		Username:    "neo4j",
		Password:    "password",
		MaxPoolSize: 10,
		Timeout:     10 * time.Second,
	}

	neo4jStore, err := store.NewNeo4jStore(neo4jConfig, 3, 500*time.Millisecond, slog.Default())
	if err != nil {
		log.Fatalf("Failed to create neo4j store: %v", err)
	}

	g, err := graphmaker.NewGraphMaker(neo4jStore, nil)
	if err != nil {
		log.Fatalf("Failed to create graphmaker: %v", err)
	}
	defer g.Close(ctx)

	g.SetPipeline(pipeline.NewPipeline(pipeline.SentenceChunker(1), extractor))

	doc := model.NewDocument("Austin Energy overview", sampleContent)

	fmt.Println("Ingesting document...")
	report, err := g.ProcessDocument(ctx, doc)
	if err != nil {
		log.Fatalf("Failed to process document: %v", err)
	}
	fmt.Printf("Processed %d chunks, wrote %d entities and %d relationships\n",
		report.Chunks, report.Entities.Total(), report.Relationships.Total())

	// Query the graph back with Cypher
	rows, err := g.Store.ReadQuery(ctx,
		`MATCH (source:Entity)-[r]->(target:Entity)
		 RETURN source.name AS source, type(r) AS type, target.name AS target
		 ORDER BY type`, nil)
	if err != nil {
		log.Fatalf("Failed to query graph: %v", err)
	}

	fmt.Println("\nStored edges:")
	for _, row := range rows {
		fmt.Printf("  (%v) -[%v]-> (%v)\n", row["source"], row["type"], row["target"])
	}
}
