package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

func TestMemoryStoreFindApproved(t *testing.T) {
	pending := book("3", "Sapiens Pending", "Someone")
	pending.Status = "pending"
	store := NewMemoryStore([]models.CatalogRecord{
		book("1", "Sapiens: A Brief History", "Yuval Noah Harari"),
		book("2", "The Alchemist", "Paulo Coelho"),
		pending,
		book("4", "Sapiens", "Yuval Noah Harari"),
		book("5", "Clean Cod", "Robert C. Martin"),
	})

	tests := []struct {
		name string
		p    Predicates
		want []string
	}{
		{"title substring", Predicates{Title: "sapiens"}, []string{"1", "4"}},
		{"author membership", Predicates{Author: "coelho"}, []string{"2"}},
		{"alternative title", Predicates{AlternativeTitle: "Alchemist"}, []string{"2"}},
		{"or semantics", Predicates{Title: "Alchemist", Author: "Harari"}, []string{"1", "2", "4"}},
		{"fuzzy title", Predicates{Title: "Clean Code"}, []string{"5"}},
		{"no match", Predicates{Title: "Dune"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindApproved(context.Background(), tt.p)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStoreLimit(t *testing.T) {
	var records []models.CatalogRecord
	for i := range 25 {
		records = append(records, book(fmt.Sprintf("%d", i), "History of Things"))
	}
	got, err := NewMemoryStore(records).FindApproved(context.Background(), Predicates{Title: "history"})
	require.NoError(t, err)
	assert.Len(t, got, MaxResults)
	assert.Equal(t, "0", got[0].ID)
}

func TestMemoryStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore(nil).FindApproved(ctx, Predicates{Title: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
