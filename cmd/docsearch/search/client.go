package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apisearch "github.com/papercomputeco/docsearch/api/search"
	"github.com/papercomputeco/docsearch/pkg/llm"
)

// requestTimeout covers embedding plus optional answer generation.
const requestTimeout = 3 * time.Minute

// RetrieveAPI calls GET /v1/retrieve and returns the parsed output.
func RetrieveAPI(ctx context.Context, apiTarget, query string, answer bool) (*apisearch.RetrieveOutput, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("answer", strconv.FormatBool(answer))

	var output apisearch.RetrieveOutput
	if err := get(ctx, apiTarget, "/v1/retrieve", params, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// SearchAPI calls GET /v1/search and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*apisearch.SearchOutput, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("top_k", strconv.Itoa(topK))

	var output apisearch.SearchOutput
	if err := get(ctx, apiTarget, "/v1/search", params, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func get(ctx context.Context, apiTarget, path string, params url.Values, into any) error {
	target, err := url.Parse(apiTarget)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	target.Path = path
	target.RawQuery = params.Encode()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to docsearch API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp llm.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
