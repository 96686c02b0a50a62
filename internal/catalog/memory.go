package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/textsim"
)

// FuzzyTitleThreshold is the similarity at which a title counts as a match
// even without a substring hit.
const FuzzyTitleThreshold = 0.8

// MemoryStore serves records held in memory, typically loaded from a file.
type MemoryStore struct {
	records []models.CatalogRecord
}

// NewMemoryStore wraps records; order is preserved as catalog order.
func NewMemoryStore(records []models.CatalogRecord) *MemoryStore {
	return &MemoryStore{records: records}
}

// FindApproved implements Store.
func (s *MemoryStore) FindApproved(ctx context.Context, p Predicates) ([]models.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := strings.ToLower(p.Title)
	author := strings.ToLower(p.Author)
	alt := strings.ToLower(p.AlternativeTitle)

	var out []models.CatalogRecord
	for _, rec := range s.records {
		if rec.Status != models.StatusApproved {
			continue
		}
		recTitle := strings.ToLower(rec.Title)
		match := (title != "" && (strings.Contains(recTitle, title) || textsim.Similarity(rec.Title, p.Title) >= FuzzyTitleThreshold)) ||
			(author != "" && slices.ContainsFunc(rec.Authors, func(a string) bool {
				return strings.Contains(strings.ToLower(a), author)
			})) ||
			(alt != "" && strings.Contains(recTitle, alt))
		if !match {
			continue
		}
		out = append(out, rec)
		if len(out) == MaxResults {
			break
		}
	}
	return out, nil
}
