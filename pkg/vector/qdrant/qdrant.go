// Package qdrant provides a Qdrant-backed document store over the gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing documents.
	DefaultCollectionName = "docsearch"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	scrollPageSize = 256

	payloadID         = "doc_id"
	payloadContent    = "content"
	payloadIngestedAt = "ingested_at"
)

// pointNamespace scopes the UUIDv5 point IDs derived from document IDs.
var pointNamespace = uuid.MustParse("0b6f7e53-8d0c-4a5e-9a43-6f1f8f3c2d11")

// Driver implements vector.Driver using Qdrant. Qdrant point IDs must be
// integers or UUIDs, so each document ID maps to a UUIDv5 and the original ID
// is kept in the payload.
type Driver struct {
	client     *qdrant.Client
	collection string
	dim        *vector.Dimension
	policy     vector.ConflictPolicy
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is required to create the collection.
	Dimensions uint

	// Conflict decides what happens when an ID is inserted twice.
	Conflict vector.ConflictPolicy
}

// NewDriver connects to Qdrant and creates the collection if it is missing.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}
	policy := c.Conflict
	if policy == "" {
		policy = vector.ConflictOverwrite
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %w", vector.ErrStoreFailure, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection %q: %w", vector.ErrStoreFailure, collection, err)
	}
	if !exists {
		// Cosine collections normalize vectors on write. Dot keeps stored
		// embeddings byte-for-byte; ranking happens in the retrieval scan.
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: creating collection %q: %w", vector.ErrStoreFailure, collection, err)
		}
	}

	logger.Info("connected to qdrant",
		"host", c.Host,
		"port", port,
		"collection", collection,
		"created", !exists,
	)

	return &Driver{
		client:     client,
		collection: collection,
		dim:        vector.NewDimension(int(c.Dimensions)),
		policy:     policy,
		logger:     logger,
	}, nil
}

// PointID returns the Qdrant point UUID for a document ID.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// Insert upserts a point. Under the reject policy the point is looked up
// first; the check and the write are not atomic.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if err := vector.ValidateDocument(doc, d.dim); err != nil {
		return err
	}

	if d.policy == vector.ConflictReject {
		existing, err := d.get(ctx, doc.ID, false)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", vector.ErrDuplicateID, doc.ID)
		}
	}

	var ingestedAt int64
	if !doc.IngestedAt.IsZero() {
		ingestedAt = doc.IngestedAt.UnixNano()
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(PointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadID:         doc.ID,
				payloadContent:    doc.Content,
				payloadIngestedAt: ingestedAt,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %s: %w", vector.ErrStoreFailure, doc.ID, err)
	}

	d.logger.Debug("stored document in qdrant", "id", doc.ID)
	return nil
}

// List scrolls through the whole collection. Each page asks for one extra
// point whose ID becomes the next page's offset.
func (d *Driver) List(ctx context.Context) ([]vector.Document, error) {
	var (
		docs   []vector.Document
		offset *qdrant.PointId
	)

	for {
		points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: d.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scrolling collection: %w", vector.ErrStoreFailure, err)
		}

		page := points
		if len(points) > scrollPageSize {
			page = points[:scrollPageSize]
		}
		for _, p := range page {
			docs = append(docs, toDocument(p))
		}

		if len(points) <= scrollPageSize {
			break
		}
		offset = points[scrollPageSize].GetId()
	}

	d.logger.Debug("listed qdrant documents", "count", len(docs))
	return docs, nil
}

func toDocument(p *qdrant.RetrievedPoint) vector.Document {
	payload := p.GetPayload()
	doc := vector.Document{
		ID:      payload[payloadID].GetStringValue(),
		Content: payload[payloadContent].GetStringValue(),
	}
	if ts := payload[payloadIngestedAt].GetIntegerValue(); ts != 0 {
		doc.IngestedAt = time.Unix(0, ts).UTC()
	}

	v := p.GetVectors().GetVector()
	doc.Embedding = v.GetData()
	if len(doc.Embedding) == 0 {
		doc.Embedding = v.GetDense().GetData()
	}
	return doc
}

func (d *Driver) get(ctx context.Context, id string, withVectors bool) (*vector.Document, error) {
	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(PointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting %s: %w", vector.ErrStoreFailure, id, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	doc := toDocument(points[0])
	return &doc, nil
}

// Get retrieves a document by ID.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	doc, err := d.get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, vector.ErrNotFound
	}
	return doc, nil
}

// Delete removes a document by ID.
func (d *Driver) Delete(ctx context.Context, id string) error {
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(PointID(id))),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %s: %w", vector.ErrStoreFailure, id, err)
	}
	d.logger.Debug("deleted document from qdrant", "id", id)
	return nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %w", vector.ErrStoreFailure, err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
