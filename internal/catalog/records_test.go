package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

func TestLoadRecordsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"a1","title":"Dune","authors":["Frank Herbert"],"status":"pending"}
{"title":"Emma","authors":["Jane Austen"]}
`), 0o644))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "pending", records[0].Status)
	assert.Equal(t, "2", records[1].ID)
	assert.Equal(t, models.StatusApproved, records[1].Status)
}

func TestLoadRecordsParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.parquet")
	require.NoError(t, parquet.WriteFile(path, []models.CatalogRecord{
		{ID: "p1", Title: "Sapiens: A Brief History", Authors: []string{"Yuval Noah Harari"}, Status: models.StatusApproved},
	}))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Sapiens: A Brief History", records[0].Title)
	assert.Equal(t, []string{"Yuval Noah Harari"}, records[0].Authors)
}

func TestLoadRecordsUnsupported(t *testing.T) {
	_, err := LoadRecords("catalog.xlsx")
	assert.ErrorContains(t, err, "failed to load catalog records")
}
