// Package sqlitevec provides a SQLite-backed document store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	dim    *vector.Dimension
	policy vector.ConflictPolicy
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Required: the vec0 table is declared with a fixed size.
	Dimensions uint

	// Conflict decides what happens when an ID is inserted twice.
	Conflict vector.ConflictPolicy
}

// NewDriver creates a new SQLite document store backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	policy := c.Conflict
	if policy == "" {
		policy = vector.ConflictOverwrite
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", vector.ErrStoreFailure, err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so documents maps string IDs
	// to rowids and carries the content.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			ingested_at INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec document store initialized",
		"db_path", c.DBPath,
		"dimensions", dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:     db,
		dim:    vector.NewDimension(int(dimensions)),
		policy: policy,
		logger: logger,
	}, nil
}

// Insert stores a document. An existing ID is updated in place in the
// documents table; its embedding is replaced with DELETE + INSERT since vec0
// does not support UPDATE.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if err := vector.ValidateDocument(doc, d.dim); err != nil {
		return err
	}

	embBlob := vector.EncodeEmbedding(doc.Embedding)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	var existingRowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM documents WHERE doc_id = ?`, doc.ID,
	).Scan(&existingRowID)

	switch {
	case err == nil:
		if d.policy == vector.ConflictReject {
			return fmt.Errorf("%w: %s", vector.ErrDuplicateID, doc.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET content = ?, ingested_at = ? WHERE rowid = ?`,
			doc.Content, doc.IngestedAt.UnixNano(), existingRowID,
		); err != nil {
			return fmt.Errorf("%w: updating document %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
		); err != nil {
			return fmt.Errorf("%w: deleting old embedding for doc %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			existingRowID, embBlob,
		); err != nil {
			return fmt.Errorf("%w: re-inserting embedding for doc %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO documents(doc_id, content, ingested_at) VALUES (?, ?, ?)`,
			doc.ID, doc.Content, doc.IngestedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("%w: inserting document %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: getting rowid for doc %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, embBlob,
		); err != nil {
			return fmt.Errorf("%w: inserting embedding for doc %s: %w", vector.ErrStoreFailure, doc.ID, err)
		}
	default:
		return fmt.Errorf("%w: checking for existing document %s: %w", vector.ErrStoreFailure, doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", vector.ErrStoreFailure, err)
	}

	d.logger.Debug("stored document in sqlite-vec", "id", doc.ID)
	return nil
}

type docRow struct {
	rowID      int64
	docID      string
	content    string
	ingestedAt int64
}

// List reads the documents table, then the embeddings, and joins them by
// rowid. The rows cursor is closed before the second query since the pool
// holds a single connection.
func (d *Driver) List(ctx context.Context) ([]vector.Document, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT rowid, doc_id, content, ingested_at FROM documents ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", vector.ErrStoreFailure, err)
	}

	var docRows []docRow
	for rows.Next() {
		var dr docRow
		if err := rows.Scan(&dr.rowID, &dr.docID, &dr.content, &dr.ingestedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning document: %w", vector.ErrStoreFailure, err)
		}
		docRows = append(docRows, dr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", vector.ErrStoreFailure, err)
	}

	embeddings, err := d.embeddings(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, 0, len(docRows))
	for _, dr := range docRows {
		docs = append(docs, dr.document(embeddings[dr.rowID]))
	}

	d.logger.Debug("listed sqlite-vec documents", "count", len(docs))
	return docs, nil
}

func (d *Driver) embeddings(ctx context.Context) (map[int64][]float32, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT rowid, embedding FROM vec_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %w", vector.ErrStoreFailure, err)
	}
	defer rows.Close()

	out := make(map[int64][]float32)
	for rows.Next() {
		var rowID int64
		var blob []byte
		if err := rows.Scan(&rowID, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning embedding: %w", vector.ErrStoreFailure, err)
		}
		emb, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: rowid %d: %w", vector.ErrStoreFailure, rowID, err)
		}
		out[rowID] = emb
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating embeddings: %w", vector.ErrStoreFailure, err)
	}
	return out, nil
}

func (dr docRow) document(emb []float32) vector.Document {
	doc := vector.Document{
		ID:        dr.docID,
		Content:   dr.content,
		Embedding: emb,
	}
	if dr.ingestedAt != 0 {
		doc.IngestedAt = time.Unix(0, dr.ingestedAt).UTC()
	}
	return doc
}

// Get retrieves a document by ID.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	var dr docRow
	err := d.db.QueryRowContext(ctx,
		`SELECT rowid, doc_id, content, ingested_at FROM documents WHERE doc_id = ?`, id,
	).Scan(&dr.rowID, &dr.docID, &dr.content, &dr.ingestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vector.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting document %s: %w", vector.ErrStoreFailure, id, err)
	}

	var blob []byte
	err = d.db.QueryRowContext(ctx,
		`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, dr.rowID,
	).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("%w: getting embedding for %s: %w", vector.ErrStoreFailure, id, err)
	}
	emb, err := vector.DecodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrStoreFailure, err)
	}

	doc := dr.document(emb)
	return &doc, nil
}

// Delete removes a document by ID.
func (d *Driver) Delete(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx, `SELECT rowid FROM documents WHERE doc_id = ?`, id).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: querying rowid for %s: %w", vector.ErrStoreFailure, id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("%w: deleting embedding rowid %d: %w", vector.ErrStoreFailure, rowID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("%w: deleting document %s: %w", vector.ErrStoreFailure, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", vector.ErrStoreFailure, err)
	}

	d.logger.Debug("deleted document from sqlite-vec", "id", id)
	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting documents: %w", vector.ErrStoreFailure, err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}
