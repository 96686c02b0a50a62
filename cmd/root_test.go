package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/config"
	"github.com/lehigh-university-libraries/coverscan/internal/ocr"
)

// isolate points every setting Load reads at test-owned values.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, env := range []string{
		"CATALOGING_PROVIDER", "PPLX_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"OLLAMA_URL", "OLLAMA_HOST", "COVERSCAN_EXTRACTION_API_KEY",
		"COVERSCAN_CATALOG_DRIVER", "COVERSCAN_CATALOG_FILE",
	} {
		t.Setenv(env, "")
	}
	t.Setenv("COVERSCAN_CATALOG_DSN", filepath.Join(dir, "catalog.db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCatalogImportThenSearch(t *testing.T) {
	dir := isolate(t)
	records := filepath.Join(dir, "books.jsonl")
	data := `{"id":"1","title":"Sapiens: A Brief History of Humankind","authors":["Yuval Noah Harari"]}
{"id":"2","title":"Homo Deus","authors":["Yuval Noah Harari"]}
{"id":"3","title":"Dune","authors":["Frank Herbert"],"status":"pending"}
`
	require.NoError(t, os.WriteFile(records, []byte(data), 0644))

	out, err := execute(t, "catalog", "import", records)
	require.NoError(t, err)
	var imported importOutput
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	assert.Equal(t, 3, imported.Imported)
	assert.Equal(t, 3, imported.Total)

	out, err = execute(t, "search", "--title", "sapiens", "--author", "Harari")
	require.NoError(t, err)
	var found searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found.Candidates, 2)
	assert.Equal(t, "1", found.Candidates[0].Record.ID)
	assert.Equal(t, 40, found.Candidates[0].MatchScore)
	assert.Equal(t, 20, found.Candidates[1].MatchScore)

	out, err = execute(t, "search", "--title", "dune")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	assert.Empty(t, found.Candidates)
}

func TestSearchFileCatalogYAML(t *testing.T) {
	dir := isolate(t)
	records := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(records, []byte(`[{"title":"Clean Code","authors":["Robert C. Martin"]}]`), 0644))
	t.Setenv("COVERSCAN_CATALOG_DRIVER", "file")
	t.Setenv("COVERSCAN_CATALOG_FILE", records)

	out, err := execute(t, "--format", "yaml", "search", "--title", "clean code")
	require.NoError(t, err)
	assert.Contains(t, out, "candidates:")
	assert.Contains(t, out, "match_score: 20")
}

func TestScanWithoutCovers(t *testing.T) {
	isolate(t)

	out, err := execute(t, "scan", "--extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_covers")
	assert.Contains(t, out, `"outcome": "no_covers"`)
}

func TestExtractRequiresProvider(t *testing.T) {
	isolate(t)

	_, err := execute(t, "extract", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	dir := t.TempDir()
	text := filepath.Join(dir, "cover.txt")
	require.NoError(t, os.WriteFile(text, []byte("Dune"), 0644))
	_, err = execute(t, "extract", text)
	assert.ErrorContains(t, err, "metadata extraction disabled")
}

func TestInvalidFormat(t *testing.T) {
	isolate(t)

	_, err := execute(t, "--format", "xml", "search", "--title", "x")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestEngineFallbackWiring(t *testing.T) {
	a := &app{cfg: &config.Config{OCR: config.OCRConfig{Command: "python3"}}}
	_, plain := a.engine().(*ocr.Engine)
	assert.True(t, plain)

	a.cfg.OCR.FallbackCommand = "tesseract"
	_, plain = a.engine().(*ocr.Engine)
	assert.False(t, plain)
}
