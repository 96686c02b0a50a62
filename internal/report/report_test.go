package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Title   *string  `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Score   int      `json:"score" yaml:"score"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteKeepsNullFields(t *testing.T) {
	v := sample{Authors: []string{"Frank Herbert"}, Score: 40}

	var jsonBuf bytes.Buffer
	require.NoError(t, Write(&jsonBuf, FormatJSON, v))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Contains(t, decoded, "title")
	assert.Nil(t, decoded["title"])

	var yamlBuf bytes.Buffer
	require.NoError(t, Write(&yamlBuf, FormatYAML, v))
	assert.Contains(t, yamlBuf.String(), "title: null")
	assert.Contains(t, yamlBuf.String(), "- Frank Herbert")
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "mistral-small3.2_24b-2025-03-04_05-06-07.yaml", FileName("mistral-small3.2:24b", now))
	assert.Equal(t, "org_model-2025-03-04_05-06-07.yaml", FileName("org/model", now))
	assert.Equal(t, "report-2025-03-04_05-06-07.yaml", FileName("", now))
}

func TestSaveYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "evals")
	title := "Dune"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := SaveYAML(dir, "sonar", now, sample{Title: &title, Score: 100})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sonar-2025-01-02_03-04-05.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got sample
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.NotNil(t, got.Title)
	assert.Equal(t, "Dune", *got.Title)
	assert.Equal(t, 100, got.Score)
}
