package evaluation

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/coverscan/internal/textsim"
)

// FieldStats aggregates the comparisons of one field.
type FieldStats struct {
	AverageScore float64 `json:"average_score" yaml:"average_score"`
	Exact        int     `json:"exact" yaml:"exact"`
	Fuzzy        int     `json:"fuzzy" yaml:"fuzzy"`
	NoMatch      int     `json:"no_match" yaml:"no_match"`
	Missing      int     `json:"missing" yaml:"missing"`
	scores       []float64
}

// Summary aggregates a run.
type Summary struct {
	TotalRecords          int                   `json:"total_records" yaml:"total_records"`
	SuccessCount          int                   `json:"success_count" yaml:"success_count"`
	FailureCount          int                   `json:"failure_count" yaml:"failure_count"`
	AverageScore          float64               `json:"average_score" yaml:"average_score"`
	MedianScore           float64               `json:"median_score" yaml:"median_score"`
	MinScore              float64               `json:"min_score" yaml:"min_score"`
	MaxScore              float64               `json:"max_score" yaml:"max_score"`
	Fields                map[string]FieldStats `json:"fields" yaml:"fields"`
	AverageProcessingTime time.Duration         `json:"average_processing_time" yaml:"average_processing_time"`
}

// Summarize computes overall and per-field statistics. Failed items count
// toward FailureCount only.
func Summarize(results []ItemResult) Summary {
	summary := Summary{
		TotalRecords: len(results),
		Fields:       make(map[string]FieldStats),
	}

	var scores []float64
	var elapsed time.Duration
	for _, result := range results {
		if result.Error != "" || result.Comparison == nil {
			summary.FailureCount++
			continue
		}
		summary.SuccessCount++
		elapsed += result.ProcessingTime
		scores = append(scores, result.Comparison.OverallScore)

		for _, fc := range result.Comparison.Fields {
			stats := summary.Fields[fc.FieldName]
			addComparison(&stats, fc)
			summary.Fields[fc.FieldName] = stats
		}
	}

	if len(scores) == 0 {
		return summary
	}

	summary.AverageScore = average(scores)
	slices.Sort(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 0 {
		summary.MedianScore = (scores[mid-1] + scores[mid]) / 2
	} else {
		summary.MedianScore = scores[mid]
	}
	summary.MinScore = scores[0]
	summary.MaxScore = scores[len(scores)-1]
	summary.AverageProcessingTime = elapsed / time.Duration(summary.SuccessCount)

	for field, stats := range summary.Fields {
		stats.AverageScore = average(stats.scores)
		summary.Fields[field] = stats
	}
	return summary
}

// addComparison skips fields with no reference value.
func addComparison(stats *FieldStats, fc textsim.FieldComparison) {
	switch fc.Match {
	case textsim.MatchNoReference, textsim.MatchBothEmpty:
		return
	case textsim.MatchExact:
		stats.Exact++
	case textsim.MatchFuzzyHigh, textsim.MatchFuzzyMedium, textsim.MatchFuzzyLow:
		stats.Fuzzy++
	case textsim.MatchMissing:
		stats.Missing++
	default:
		stats.NoMatch++
	}
	stats.scores = append(stats.scores, fc.Score)
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// Print writes a human-readable summary.
func (s Summary) Print(w io.Writer) {
	line := strings.Repeat("=", 40)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Evaluation Summary")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Total Records:      %d\n", s.TotalRecords)
	fmt.Fprintf(w, "Successful Evals:   %d\n", s.SuccessCount)
	fmt.Fprintf(w, "Failed Evals:       %d\n", s.FailureCount)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Average Score:      %.2f%%\n", s.AverageScore*100)
	fmt.Fprintf(w, "Median Score:       %.2f%%\n", s.MedianScore*100)
	fmt.Fprintf(w, "Min Score:          %.2f%%\n", s.MinScore*100)
	fmt.Fprintf(w, "Max Score:          %.2f%%\n", s.MaxScore*100)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Field Accuracies:")

	fields := make([]string, 0, len(s.Fields))
	for field := range s.Fields {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		st := s.Fields[field]
		fmt.Fprintf(w, "  %-11s %.2f%% (exact %d, fuzzy %d, missing %d, no match %d)\n",
			field+":", st.AverageScore*100, st.Exact, st.Fuzzy, st.Missing, st.NoMatch)
	}
	fmt.Fprintln(w, line)
}

// Config records how a run was produced.
type Config struct {
	Provider   string `json:"provider" yaml:"provider"`
	Model      string `json:"model" yaml:"model"`
	Dataset    string `json:"dataset" yaml:"dataset"`
	SampleSize int    `json:"sample_size" yaml:"sample_size"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
}

// Report is everything a run produced.
type Report struct {
	Config  Config       `json:"config" yaml:"config"`
	Summary Summary      `json:"summary" yaml:"summary"`
	Results []ItemResult `json:"results" yaml:"results"`
}
