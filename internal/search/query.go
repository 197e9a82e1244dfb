package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// MaxSectionHits caps the matched sections reported per document.
const MaxSectionHits = 3

// SectionHit is a section that matched a query.
type SectionHit struct {
	SectionID int    `json:"sectionId"`
	Title     string `json:"title"`
}

// SearchHit is one matching document.
type SearchHit struct {
	Index        string       `json:"index"`
	ID           string       `json:"id"`
	DocumentID   string       `json:"documentId"`
	DocumentName string       `json:"documentName"`
	IssuerName   string       `json:"issuerName"`
	Score        float64      `json:"score"`
	Sections     []SectionHit `json:"sections"`
}

// SearchResult lists the best hits and the total number of matches.
type SearchResult struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Index  string  `json:"_index"`
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				DocumentID   string `json:"documentId"`
				DocumentName string `json:"documentName"`
				IssuerName   string `json:"issuerName"`
			} `json:"_source"`
			InnerHits map[string]struct {
				Hits struct {
					Hits []struct {
						Source SectionHit `json:"_source"`
					} `json:"hits"`
				} `json:"hits"`
			} `json:"inner_hits"`
		} `json:"hits"`
	} `json:"hits"`
}

// QueryBody builds a full-text query matching document and issuer names or
// any section's title or content. Matching sections come back as inner hits.
func QueryBody(query string, size int) map[string]any {
	return map[string]any{
		"size":    size,
		"_source": []string{"documentId", "documentName", "issuerName"},
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"documentName^2", "issuerName^2"},
					}},
					map[string]any{"nested": map[string]any{
						"path":       "sections",
						"score_mode": "max",
						"query": map[string]any{"multi_match": map[string]any{
							"query":  query,
							"fields": []string{"sections.title^2", "sections.content"},
						}},
						"inner_hits": map[string]any{"size": MaxSectionHits},
					}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

// Search runs query across indices and returns at most size hits.
func (c *Client) Search(ctx context.Context, indices []string, query string, size int) (SearchResult, error) {
	body, err := json.Marshal(QueryBody(query, size))
	if err != nil {
		return SearchResult{}, fmt.Errorf("marshal query: %w", err)
	}

	var raw searchResponse
	req := &opensearchapi.SearchReq{Indices: indices, Body: bytes.NewReader(body)}
	res, err := c.api.Client.Do(ctx, req, &raw)
	if err != nil {
		return SearchResult{}, classify("search", res, err)
	}
	if res.IsError() {
		return SearchResult{}, classify("search", res, opensearch.ParseError(res))
	}

	out := SearchResult{Total: raw.Hits.Total.Value, Hits: make([]SearchHit, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		hit := SearchHit{
			Index:        h.Index,
			ID:           h.ID,
			DocumentID:   h.Source.DocumentID,
			DocumentName: h.Source.DocumentName,
			IssuerName:   h.Source.IssuerName,
			Score:        h.Score,
			Sections:     []SectionHit{},
		}
		for _, ih := range h.InnerHits["sections"].Hits.Hits {
			hit.Sections = append(hit.Sections, ih.Source)
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}
