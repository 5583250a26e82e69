package resolve

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
)

// Rewriter maps relationship endpoints from chunk-local names and ids onto
// canonical entity ids. It must run after the whole document has been
// resolved, later chunks can retroactively change which canonical id a
// name maps to.
type Rewriter struct {
	log *slog.Logger
}

func NewRewriter(logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{log: logger}
}

// Rewrite resolves every candidate endpoint against the document's
// canonical entities and returns the rewritten relationships together with
// the number of dropped candidates. Endpoints already carrying a known
// canonical id pass through unchanged, everything else resolves through a
// case-insensitive name and alias mapping, falling back to the carried
// original name. Candidates with an unresolvable endpoint or an empty type
// are dropped and counted, never silently discarded.
func (r *Rewriter) Rewrite(entities []*model.CanonicalEntity, candidates []model.RelationshipCandidate) ([]*model.Relationship, int) {
	known := make(map[uuid.UUID]bool, len(entities))
	byName := make(map[string]uuid.UUID, len(entities))

	// Canonical names take precedence over aliases on key collisions.
	for _, entity := range entities {
		known[entity.ID] = true
		byName[strings.ToLower(strings.TrimSpace(entity.Name))] = entity.ID
	}
	for _, entity := range entities {
		for _, alias := range entity.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if _, ok := byName[key]; !ok {
				byName[key] = entity.ID
			}
		}
	}

	relationships := make([]*model.Relationship, 0, len(candidates))
	dropped := 0

	for _, candidate := range candidates {
		relType := model.NormalizeRelationshipType(candidate.Type)
		if relType == "" {
			dropped++
			r.log.Warn("Dropped relationship without type",
				slog.String("source", candidate.Source),
				slog.String("target", candidate.Target))
			continue
		}

		sourceID, ok := resolveEndpoint(candidate.Source, candidate.SourceName, known, byName)
		if !ok {
			dropped++
			r.log.Warn("Dropped relationship with unresolvable source",
				slog.String("source", candidate.Source),
				slog.String("type", relType))
			continue
		}
		targetID, ok := resolveEndpoint(candidate.Target, candidate.TargetName, known, byName)
		if !ok {
			dropped++
			r.log.Warn("Dropped relationship with unresolvable target",
				slog.String("target", candidate.Target),
				slog.String("type", relType))
			continue
		}

		now := time.Now()
		relationships = append(relationships, &model.Relationship{
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       relType,
			Evidence:   candidate.Evidence,
			Confidence: candidate.ConfidenceOrDefault(),
			Metadata:   candidate.Metadata,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return relationships, dropped
}

func resolveEndpoint(raw, fallbackName string, known map[uuid.UUID]bool, byName map[string]uuid.UUID) (uuid.UUID, bool) {
	value := strings.TrimSpace(raw)

	if id, err := uuid.Parse(value); err == nil && known[id] {
		return id, true
	}
	if id, ok := byName[strings.ToLower(value)]; ok {
		return id, true
	}
	if fallback := strings.ToLower(strings.TrimSpace(fallbackName)); fallback != "" {
		if id, ok := byName[fallback]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
