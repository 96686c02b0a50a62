package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// VuFindStore queries a VuFind instance through its search API. Everything
// VuFind returns is published, so every record counts as approved.
type VuFindStore struct {
	BaseURL    string
	httpClient *http.Client
}

// NewVuFindStore creates a new VuFind-backed store
func NewVuFindStore(baseURL string) *VuFindStore {
	return &VuFindStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var vufindFields = []string{"id", "title", "authors", "isbns", "publishers", "publicationDates", "summary"}

// authorGroup is a map keyed by author name. VuFind encodes an empty
// group as [] rather than {}.
type authorGroup map[string]json.RawMessage

func (g *authorGroup) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*g = nil
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*g = m
	return nil
}

type vufindAuthors struct {
	Primary   authorGroup `json:"primary"`
	Secondary authorGroup `json:"secondary"`
	Corporate authorGroup `json:"corporate"`
}

type vufindRecord struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Authors          vufindAuthors `json:"authors"`
	ISBNs            []string      `json:"isbns"`
	Publishers       []string      `json:"publishers"`
	PublicationDates []string      `json:"publicationDates"`
	Summary          []string      `json:"summary"`
}

// FindApproved implements Store with one OR-joined lookfor query.
func (v *VuFindStore) FindApproved(ctx context.Context, p Predicates) ([]models.CatalogRecord, error) {
	var terms []string
	for _, t := range []string{p.Title, p.Author, p.AlternativeTitle} {
		if t != "" {
			terms = append(terms, strconv.Quote(t))
		}
	}
	if len(terms) == 0 {
		return []models.CatalogRecord{}, nil
	}

	params := url.Values{}
	params.Set("lookfor", strings.Join(terms, " OR "))
	params.Set("type", "AllFields")
	params.Set("limit", strconv.Itoa(MaxResults))
	for _, f := range vufindFields {
		params.Add("field[]", f)
	}
	searchURL := fmt.Sprintf("%s/api/v1/search?%s", v.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create VuFind request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from VuFind: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("VuFind API returned status %d: %s", resp.StatusCode, string(body))
	}

	var vufindResp struct {
		Records []vufindRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&vufindResp); err != nil {
		return nil, fmt.Errorf("failed to decode VuFind response: %w", err)
	}

	records := make([]models.CatalogRecord, 0, len(vufindResp.Records))
	for _, rec := range vufindResp.Records {
		records = append(records, models.CatalogRecord{
			ID:          rec.ID,
			Title:       rec.Title,
			Authors:     rec.Authors.names(),
			CoverURL:    fmt.Sprintf("%s/Cover/Show?id=%s&size=large", v.BaseURL, url.QueryEscape(rec.ID)),
			ISBN:        first(rec.ISBNs),
			Publisher:   first(rec.Publishers),
			Year:        first(rec.PublicationDates),
			Description: strings.Join(rec.Summary, "\n"),
			Status:      models.StatusApproved,
		})
		if len(records) == MaxResults {
			break
		}
	}
	return records, nil
}

// names flattens VuFind's author maps, primary first, each group sorted.
func (a vufindAuthors) names() []string {
	var out []string
	for _, group := range []authorGroup{a.Primary, a.Secondary, a.Corporate} {
		keys := make([]string, 0, len(group))
		for name := range group {
			keys = append(keys, name)
		}
		slices.Sort(keys)
		out = append(out, keys...)
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
