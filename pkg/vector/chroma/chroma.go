// Package chroma provides a Chroma document store driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing documents.
	DefaultCollectionName = "docsearch"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	listPageSize = 256

	ingestedAtKey = "ingested_at"
)

// Driver implements vector.Driver using Chroma's v2 REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	policy         vector.ConflictPolicy
	dim            *vector.Dimension
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding length. 0 takes it from stored records, or
	// from the first insert when the collection is empty.
	Dimensions uint

	// Conflict decides what happens when an ID is inserted twice.
	Conflict vector.ConflictPolicy

	// MaxRetries bounds the connection attempts made while Chroma starts up.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles per
	// attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma driver, creating the collection if needed.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	policy := c.Conflict
	if policy == "" {
		policy = vector.ConflictOverwrite
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		policy:         policy,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	ctx := context.Background()
	collectionID, err := d.connect(ctx, c)
	if err != nil {
		return nil, err
	}
	d.collectionID = collectionID

	// A reused collection keeps the dimension of what it already holds.
	sample, err := d.fetch(ctx, chromaGetRequest{Include: []string{"embeddings"}, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("%w: reading stored dimensions: %w", vector.ErrStoreFailure, err)
	}
	stored := 0
	if len(sample) > 0 {
		stored = len(sample[0].Embedding)
	}
	dimensions, err := vector.ReconcileDimension(int(c.Dimensions), stored)
	if err != nil {
		return nil, fmt.Errorf("chroma collection %s: %w", collectionName, err)
	}
	d.dim = vector.NewDimension(dimensions)

	logger.Info("connected to chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// connect retries getOrCreateCollection with exponential backoff.
func (d *Driver) connect(ctx context.Context, c Config) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		id, err := d.getOrCreateCollection(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}
		d.logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	return "", fmt.Errorf("%w: getting or creating collection %q after %d attempts: %w",
		vector.ErrStoreFailure, d.collectionName, maxRetries, lastErr)
}

func (d *Driver) collectionsURL() string {
	return d.baseURL + "/api/v2/tenants/default_tenant/databases/default_database/collections"
}

func (d *Driver) endpoint(op string) string {
	return fmt.Sprintf("%s/%s/%s", d.collectionsURL(), d.collectionID, op)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.collectionsURL()+"/"+d.collectionName, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	var collection chromaCollection
	err = d.post(ctx, d.collectionsURL(), map[string]any{
		"name":     d.collectionName,
		"metadata": map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// post sends a JSON body and decodes a JSON response into out when non-nil.
func (d *Driver) post(ctx context.Context, url string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Insert stores a document. Overwrites go through /upsert; under the reject
// policy the ID is looked up first and /add is used.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if err := vector.ValidateDocument(doc, d.dim); err != nil {
		return err
	}

	op := "upsert"
	if d.policy == vector.ConflictReject {
		existing, err := d.fetch(ctx, chromaGetRequest{IDs: []string{doc.ID}, Include: []string{}})
		if err != nil {
			return fmt.Errorf("%w: checking for %q: %w", vector.ErrStoreFailure, doc.ID, err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s", vector.ErrDuplicateID, doc.ID)
		}
		op = "add"
	}

	reqBody := chromaUpsertRequest{
		IDs:        []string{doc.ID},
		Embeddings: [][]float32{doc.Embedding},
		Documents:  []string{doc.Content},
		Metadatas: []map[string]any{{
			ingestedAtKey: doc.IngestedAt.UTC().Format(time.RFC3339Nano),
		}},
	}

	if err := d.post(ctx, d.endpoint(op), reqBody, nil); err != nil {
		return fmt.Errorf("%w: storing %q: %w", vector.ErrStoreFailure, doc.ID, err)
	}

	d.logger.Debug("stored document in chroma", "id", doc.ID, "op", op)
	return nil
}

// List pages through the collection with /get.
func (d *Driver) List(ctx context.Context) ([]vector.Document, error) {
	var docs []vector.Document
	for offset := 0; ; offset += listPageSize {
		page, err := d.fetch(ctx, chromaGetRequest{
			Include: []string{"documents", "embeddings", "metadatas"},
			Limit:   listPageSize,
			Offset:  offset,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: listing documents: %w", vector.ErrStoreFailure, err)
		}
		docs = append(docs, page...)
		if len(page) < listPageSize {
			break
		}
	}

	d.logger.Debug("listed chroma documents", "count", len(docs))
	return docs, nil
}

// Get retrieves a document by ID.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	docs, err := d.fetch(ctx, chromaGetRequest{
		IDs:     []string{id},
		Include: []string{"documents", "embeddings", "metadatas"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting %q: %w", vector.ErrStoreFailure, id, err)
	}
	if len(docs) == 0 {
		return nil, vector.ErrNotFound
	}
	return &docs[0], nil
}

func (d *Driver) fetch(ctx context.Context, reqBody chromaGetRequest) ([]vector.Document, error) {
	var getResp chromaGetResponse
	if err := d.post(ctx, d.endpoint("get"), reqBody, &getResp); err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i].ID = id
		if i < len(getResp.Documents) && getResp.Documents[i] != nil {
			docs[i].Content = *getResp.Documents[i]
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
		if i < len(getResp.Metadatas) && getResp.Metadatas[i] != nil {
			if ts, ok := getResp.Metadatas[i][ingestedAtKey].(string); ok {
				docs[i].IngestedAt, _ = time.Parse(time.RFC3339Nano, ts)
			}
		}
	}
	return docs, nil
}

// Delete removes a document by ID.
func (d *Driver) Delete(ctx context.Context, id string) error {
	if err := d.post(ctx, d.endpoint("delete"), chromaDeleteRequest{IDs: []string{id}}, nil); err != nil {
		return fmt.Errorf("%w: deleting %q: %w", vector.ErrStoreFailure, id, err)
	}
	d.logger.Debug("deleted document from chroma", "id", id)
	return nil
}

// Count returns the collection size.
func (d *Driver) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint("count"), nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending count request: %w", vector.ErrStoreFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%w: count: status %d: %s", vector.ErrStoreFailure, resp.StatusCode, string(body))
	}

	var n int
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, fmt.Errorf("%w: decoding count response: %w", vector.ErrStoreFailure, err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
