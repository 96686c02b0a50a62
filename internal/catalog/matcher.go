// Package catalog ranks approved catalog records against search terms
// extracted from a book cover.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

const (
	// MaxResults bounds both the store query and the ranked output.
	MaxResults = 10
	termScore  = 20
	maxScore   = 100
)

// Predicates are the OR-ed filters a store applies. Empty fields are ignored.
type Predicates struct {
	Title            string
	Author           string
	AlternativeTitle string
}

// Empty reports whether no predicate is set.
func (p Predicates) Empty() bool {
	return p.Title == "" && p.Author == "" && p.AlternativeTitle == ""
}

// Store returns approved records matching any predicate, at most
// MaxResults, in catalog order.
type Store interface {
	FindApproved(ctx context.Context, p Predicates) ([]models.CatalogRecord, error)
}

// Matcher scores store results against a query.
type Matcher struct {
	store Store
}

// NewMatcher creates a matcher over store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// PredicatesFor picks the predicate fields of q.
func PredicatesFor(q models.SearchQuery) Predicates {
	return Predicates{
		Title:            strings.TrimSpace(q.Title),
		Author:           strings.TrimSpace(q.Author),
		AlternativeTitle: strings.TrimSpace(q.AlternativeTitle),
	}
}

// Terms lists the distinct scoring terms of q, lowercased, in query order.
func Terms(q models.SearchQuery) []string {
	candidates := append([]string{q.Title, q.Author, q.AlternativeTitle}, q.Keywords...)
	seen := make(map[string]bool, len(candidates))
	terms := make([]string, 0, len(candidates))
	for _, c := range candidates {
		term := strings.ToLower(strings.TrimSpace(c))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

// Score awards 20 points per term found in the record's title and authors,
// capped at 100.
func Score(record models.CatalogRecord, terms []string) int {
	haystack := strings.ToLower(record.Title + " " + strings.Join(record.Authors, " "))
	score := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			score += termScore
		}
	}
	return min(score, maxScore)
}

// Search returns up to MaxResults candidates sorted by score, highest first.
// Ties keep catalog order. A query without title, author or alternative
// title matches nothing and never reaches the store.
func (m *Matcher) Search(ctx context.Context, q models.SearchQuery) ([]models.MatchCandidate, error) {
	preds := PredicatesFor(q)
	if preds.Empty() {
		return []models.MatchCandidate{}, nil
	}

	records, err := m.store.FindApproved(ctx, preds)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	terms := Terms(q)
	candidates := make([]models.MatchCandidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, models.MatchCandidate{Record: rec, MatchScore: Score(rec, terms)})
	}
	slices.SortStableFunc(candidates, func(a, b models.MatchCandidate) int {
		return b.MatchScore - a.MatchScore
	})
	if len(candidates) > MaxResults {
		candidates = candidates[:MaxResults]
	}

	slog.Info("Catalog search", "title", preds.Title, "author", preds.Author, "terms", len(terms), "candidates", len(candidates))
	return candidates, nil
}

// QueryFromMetadata builds a query from extracted metadata: the title and
// the first author.
func QueryFromMetadata(md models.ExtractedMetadata) models.SearchQuery {
	q := models.SearchQuery{Title: models.Str(md.Title)}
	if len(md.Authors) > 0 {
		q.Author = md.Authors[0]
	}
	return q
}
