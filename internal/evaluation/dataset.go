package evaluation

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/coverscan/internal/dataset"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// Item is one labeled book: cover text or cover images, plus the reference
// metadata a cataloger recorded for it.
type Item struct {
	ID      string `json:"id" parquet:"id"`
	OCRText string `json:"ocr_text,omitempty" parquet:"ocr_text,optional"`

	FrontImage  string `json:"front_image,omitempty" parquet:"front_image,optional"`
	SpineImage  string `json:"spine_image,omitempty" parquet:"spine_image,optional"`
	InsideImage string `json:"inside_image,omitempty" parquet:"inside_image,optional"`
	BackImage   string `json:"back_image,omitempty" parquet:"back_image,optional"`

	Title      string   `json:"title" parquet:"title"`
	Authors    []string `json:"authors" parquet:"authors,list"`
	Translator string   `json:"translator,omitempty" parquet:"translator,optional"`
	Publisher  string   `json:"publisher,omitempty" parquet:"publisher,optional"`
	Year       string   `json:"year,omitempty" parquet:"year,optional"`
	ISBN       string   `json:"isbn,omitempty" parquet:"isbn,optional"`
}

// Covers returns the item's images keyed by role.
func (i Item) Covers() models.CoverSet {
	return models.CoverSet{
		models.CoverFront:  i.FrontImage,
		models.CoverSpine:  i.SpineImage,
		models.CoverInside: i.InsideImage,
		models.CoverBack:   i.BackImage,
	}
}

// LoadDataset reads labeled items from a .jsonl, .json or .parquet file.
// Items without an ID are numbered by position.
func LoadDataset(path string, limit int) ([]Item, error) {
	items, err := dataset.LoadSample[Item](path, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = fmt.Sprintf("%d", i+1)
		}
	}
	slog.Info("Dataset loaded", "path", path, "items", len(items))
	return items, nil
}
