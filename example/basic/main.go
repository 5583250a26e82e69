package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphmaker"
	"github.com/siherrmann/graphmaker/core/pipeline"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/store"
)

const firstDocument = `CenterPoint Energy Inc is an energy delivery company headquartered in Houston.
The company serves the greater Houston metropolitan area with electric transmission.`

const secondDocument = `CPE announced a new grid modernization program.
CenterPoint partners with ERCOT to balance load across Texas.`

// ruleExtractor is a stand-in for a real extraction collaborator (an LLM or
// NER model). It emits candidates for the surface forms it spots in a chunk.
func ruleExtractor(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
	var entities []model.EntityCandidate
	var relationships []model.RelationshipCandidate

	if strings.Contains(chunk, "CenterPoint Energy Inc") {
		entities = append(entities, model.EntityCandidate{
			Name:    "CenterPoint Energy Inc",
			Type:    "Company",
			Aliases: []string{"CPE"},
		})
	}
	if strings.Contains(chunk, "CPE") || strings.Contains(chunk, "CenterPoint partners") {
		entities = append(entities, model.EntityCandidate{Name: "CPE", Type: "Company"})
	}
	if strings.Contains(chunk, "Houston") {
		entities = append(entities, model.EntityCandidate{Name: "Houston", Type: "City"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "CenterPoint Energy Inc",
			Target: "Houston",
			Type:   "headquartered in",
		})
	}
	if strings.Contains(chunk, "ERCOT") {
		entities = append(entities, model.EntityCandidate{Name: "ERCOT", Type: "Organization"})
		relationships = append(relationships, model.RelationshipCandidate{
			Source: "CPE",
			Target: "ERCOT",
			Type:   "partners with",
		})
	}

	return entities, relationships, nil
}

func main() {
	ctx := context.Background()

	memoryStore := store.NewMemoryStore(slog.Default())

	g, err := graphmaker.NewGraphMaker(memoryStore, nil)
	if err != nil {
		log.Fatalf("Failed to create graphmaker: %v", err)
	}
	defer g.Close(ctx)

	g.SetPipeline(pipeline.NewPipeline(pipeline.SentenceChunker(2), ruleExtractor))

	// Two overlapping documents: the second one refers to the same company
	// by its acronym and should merge into the canonical entity from the
	// first instead of creating a duplicate.
	docs := []*model.Document{
		model.NewDocument("CenterPoint overview", firstDocument),
		model.NewDocument("Grid modernization", secondDocument),
	}

	for _, doc := range docs {
		report, err := g.ProcessDocument(ctx, doc)
		if err != nil {
			log.Fatalf("Failed to process document %q: %v", doc.Title, err)
		}
		fmt.Printf("Processed %q: %d chunks, %d entities created, %d merged, %d relationships written\n",
			doc.Title, report.Chunks,
			report.Entities.Created, report.Entities.Merged,
			report.Relationships.Created+report.Relationships.Merged)
	}

	fmt.Printf("\nStore holds %d entities and %d relationships\n",
		memoryStore.EntityCount(), memoryStore.RelationshipCount())

	for _, entity := range g.Session.Entities() {
		fmt.Printf("  %s (%s), aliases: %v\n", entity.Name, entity.Type, entity.Aliases)
	}
}
