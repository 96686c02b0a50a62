package catalog

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/dataset"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// LoadRecords reads catalog records from a .jsonl, .json or .parquet file.
// Records without a status are treated as approved; records without an id
// get their 1-based position.
func LoadRecords(path string) ([]models.CatalogRecord, error) {
	records, err := dataset.Load[models.CatalogRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog records: %w", err)
	}
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			records[i].ID = fmt.Sprintf("%d", i+1)
		}
		if records[i].Status == "" {
			records[i].Status = models.StatusApproved
		}
	}
	return records, nil
}
