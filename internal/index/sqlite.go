package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is a durable vector index backed by a single SQLite database.
// Embeddings are brute-force scanned with cosine similarity; at the corpus
// sizes this service targets that comfortably beats maintaining an ANN
// structure. Inserts run in one transaction each, so concurrent readers see
// either the pre-insert or post-insert state.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	model string
}

// NewSQLiteStore opens (or creates) the index at dataDir/vectors.db. The
// store is versioned by embedding model: if the database was populated with
// a different model identifier, opening fails with ErrModelMismatch.
func NewSQLiteStore(dataDir, model string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", ErrUnavailable, err)
	}
	dbPath := filepath.Join(dataDir, "vectors.db")

	// WAL mode lets queries proceed while an ingestion batch commits.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrUnavailable, err)
	}

	s := &SQLiteStore{db: db, path: dbPath, model: model}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.checkModel(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS index_meta (
			id        INTEGER PRIMARY KEY CHECK (id = 1),
			model     TEXT    NOT NULL,
			dimension INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS records (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT    NOT NULL UNIQUE,
			document_id   TEXT    NOT NULL,
			document_name TEXT    NOT NULL,
			chunk_index   INTEGER NOT NULL,
			content       TEXT    NOT NULL,
			embedding     BLOB    NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrUnavailable, err)
	}
	return nil
}

// checkModel enforces the embedding-model/index coupling at open time.
func (s *SQLiteStore) checkModel(ctx context.Context) error {
	var model string
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT model, dimension FROM index_meta WHERE id = 1`).Scan(&model, &dim)
	if err == sql.ErrNoRows {
		return nil // fresh index, meta is written on first insert
	}
	if err != nil {
		return fmt.Errorf("%w: reading index meta: %v", ErrUnavailable, err)
	}
	if model != s.model {
		return fmt.Errorf("%w: index has %q, configured %q", ErrModelMismatch, model, s.model)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Insert appends records in one transaction. Each record gets a fresh UUID
// unless the caller set one. The first insert into an empty index pins the
// model identifier and vector dimensionality; later inserts must match.
func (s *SQLiteStore) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	if dim == 0 {
		return fmt.Errorf("%w: record with empty embedding", ErrUnavailable)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin insert: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	metaDim, err := s.ensureMeta(ctx, tx, dim)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, document_id, document_name, chunk_index, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", ErrUnavailable, err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if len(r.Embedding) != metaDim {
			return fmt.Errorf("%w: dimension %d, index has %d", ErrModelMismatch, len(r.Embedding), metaDim)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocumentID, r.DocumentName,
			r.ChunkIndex, r.Text, vectorToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("%w: insert record: %v", ErrUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit insert: %v", ErrUnavailable, err)
	}
	return nil
}

// ensureMeta reads the pinned (model, dimension) pair, writing it on the
// first ever insert, and validates the configured model against it.
func (s *SQLiteStore) ensureMeta(ctx context.Context, tx *sql.Tx, dim int) (int, error) {
	var model string
	var metaDim int
	err := tx.QueryRowContext(ctx, `SELECT model, dimension FROM index_meta WHERE id = 1`).Scan(&model, &metaDim)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_meta (id, model, dimension) VALUES (1, ?, ?)`, s.model, dim); err != nil {
			return 0, fmt.Errorf("%w: writing index meta: %v", ErrUnavailable, err)
		}
		return dim, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading index meta: %v", ErrUnavailable, err)
	}
	if model != s.model {
		return 0, fmt.Errorf("%w: index has %q, configured %q", ErrModelMismatch, model, s.model)
	}
	return metaDim, nil
}

// Search scans all records, ranks by cosine similarity descending and
// returns at most topK. Ties keep insertion order.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, document_name, chunk_index, content, embedding
		FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Record
		var blob []byte
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.DocumentName, &r.ChunkIndex, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", ErrUnavailable, err)
		}
		r.Embedding = bytesToVector(blob)
		results = append(results, Result{Record: r, Score: CosineSimilarity(vector, r.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", ErrUnavailable, err)
	}

	// Stable sort preserves seq order among equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count reports the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count records: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Documents reports the number of distinct source documents indexed.
func (s *SQLiteStore) Documents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT document_id) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count documents: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Reset clears all records and the pinned model version irreversibly.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin reset: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("%w: clearing records: %v", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("%w: clearing index meta: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit reset: %v", ErrUnavailable, err)
	}
	return nil
}

// vectorToBytes serializes a vector as little-endian float32s for storage.
func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToVector converts a stored blob back to a vector.
func bytesToVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
