package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexStore = (*IndexStore)(nil)

const schema = `
CREATE TABLE meta (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	version     INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	model       TEXT NOT NULL,
	dimensions  INTEGER NOT NULL,
	built_at    TEXT NOT NULL
);

CREATE TABLE chunks (
	seq         INTEGER PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	document_id TEXT NOT NULL,
	position    INTEGER NOT NULL,
	start_char  INTEGER NOT NULL,
	end_char    INTEGER NOT NULL,
	content     TEXT NOT NULL,
	embedding   BLOB
);
`

// IndexStore keeps the index artifact in a single SQLite file.
// Save writes a new database next to the target and renames it into place,
// so Load sees either the previous artifact or the new one.
type IndexStore struct {
	path string
}

// NewIndexStore creates a store for the database file at path.
// The parent directory is created when missing.
func NewIndexStore(path string) (*IndexStore, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	return &IndexStore{path: path}, nil
}

// Location returns the database file path
func (s *IndexStore) Location() string {
	return s.path
}

// Close is a no-op; connections live only for the duration of a call.
func (s *IndexStore) Close() error {
	return nil
}

// Save writes the artifact atomically
func (s *IndexStore) Save(ctx context.Context, artifact *domain.IndexArtifact) error {
	tmp := s.path + ".tmp"
	_ = os.Remove(tmp)

	if err := writeArtifact(ctx, tmp, artifact); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

func writeArtifact(ctx context.Context, path string, artifact *domain.IndexArtifact) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta (id, version, fingerprint, model, dimensions, built_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, artifact.Version, artifact.Fingerprint, artifact.Model, artifact.Dimensions,
		artifact.BuiltAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, document_id, position, start_char, end_char, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range artifact.Chunks {
		if len(c.Embedding) != artifact.Dimensions {
			return fmt.Errorf("chunk %s: embedding has %d dimensions, want %d", c.ID, len(c.Embedding), artifact.Dimensions)
		}
		if _, err := stmt.ExecContext(ctx, i, c.ID, c.DocumentID, c.Position, c.StartChar, c.EndChar,
			c.Content, serializeEmbedding(c.Embedding)); err != nil {
			return fmt.Errorf("writing chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load restores the last saved artifact
func (s *IndexStore) Load(ctx context.Context) (*domain.IndexArtifact, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	artifact, err := s.readMeta(ctx, db)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, position, start_char, end_char, content, embedding
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, s.loadError("read chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.StartChar, &c.EndChar, &c.Content, &blob); err != nil {
			return nil, s.loadError("scan chunk", err)
		}
		if len(blob) != artifact.Dimensions*4 {
			return nil, &domain.IndexLoadError{
				Path:   s.path,
				Reason: fmt.Sprintf("chunk %s: embedding of %d bytes, want %d", c.ID, len(blob), artifact.Dimensions*4),
			}
		}
		c.Embedding = deserializeEmbedding(blob)
		artifact.Chunks = append(artifact.Chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.loadError("read chunks", err)
	}

	if len(artifact.Chunks) == 0 {
		return nil, &domain.IndexLoadError{Path: s.path, Reason: "artifact has no chunks"}
	}
	return artifact, nil
}

// Stat reads the artifact metadata only
func (s *IndexStore) Stat(ctx context.Context) (*domain.IndexArtifact, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return s.readMeta(ctx, db)
}

func (s *IndexStore) open() (*sql.DB, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, s.loadError("stat", err)
	}

	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, s.loadError("open", err)
	}
	return db, nil
}

func (s *IndexStore) readMeta(ctx context.Context, db *sql.DB) (*domain.IndexArtifact, error) {
	artifact := &domain.IndexArtifact{}
	var builtAt string
	err := db.QueryRowContext(ctx, `
		SELECT version, fingerprint, model, dimensions, built_at FROM meta WHERE id = 1
	`).Scan(&artifact.Version, &artifact.Fingerprint, &artifact.Model, &artifact.Dimensions, &builtAt)
	if err != nil {
		return nil, s.loadError("read meta", err)
	}
	if artifact.Version != domain.IndexArtifactVersion {
		return nil, &domain.IndexLoadError{Path: s.path, Reason: fmt.Sprintf("unsupported version %d", artifact.Version)}
	}
	if artifact.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return nil, s.loadError("parse built_at", err)
	}
	return artifact, nil
}

func (s *IndexStore) loadError(reason string, err error) error {
	return &domain.IndexLoadError{Path: s.path, Reason: reason, Err: err}
}

// serializeEmbedding converts a float32 slice to little-endian bytes
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, f := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeEmbedding converts little-endian bytes to a float32 slice
func deserializeEmbedding(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
