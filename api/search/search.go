// Package search provides the retrieval and search response types shared by
// the REST API and the MCP server, so both surfaces return identical JSON.
package search

import (
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	"github.com/papercomputeco/docsearch/pkg/utils"
)

// PreviewLength is the number of runes of content shown per search result.
const PreviewLength = 200

// RetrieveInput represents the input arguments for a retrieve request.
type RetrieveInput struct {
	Query  string `json:"query"`
	Answer bool   `json:"answer,omitempty"`
}

// MatchOutput is the best matching document of a retrieve request.
type MatchOutput struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RetrieveOutput represents the output of a retrieve request. Match is nil
// when no stored document could be compared with the query.
type RetrieveOutput struct {
	Query    string       `json:"query"`
	Match    *MatchOutput `json:"match"`
	Answer   string       `json:"answer,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// BuildRetrieveOutput converts a retrieval result into its wire form. The
// matched content is never echoed back.
func BuildRetrieveOutput(result *retrieve.Result) RetrieveOutput {
	out := RetrieveOutput{
		Query:    result.Query,
		Answer:   result.Answer,
		Warnings: result.Warnings,
	}
	if result.Match != nil {
		out.Match = &MatchOutput{ID: result.Match.ID, Score: result.Match.Score}
	}
	return out
}

// BuildSearchOutput converts ranked matches into a SearchOutput.
func BuildSearchOutput(query string, matches []retrieve.Match) SearchOutput {
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			ID:      m.ID,
			Score:   m.Score,
			Preview: utils.Preview(m.Content, PreviewLength),
		})
	}
	return SearchOutput{
		Query:   query,
		Results: results,
		Count:   len(results),
	}
}
