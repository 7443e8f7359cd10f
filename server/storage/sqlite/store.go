// Package sqlite persists documents in a single SQLite table as JSON
// payloads. Batch commits map onto SQL transactions, which is where the
// all-or-nothing guarantee comes from.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"almanac/internal/stamps"
	"almanac/server/storage"
)

// Store implements storage.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "almanac.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// decode unmarshals a payload and re-normalizes temporal fields, which JSON
// round-trips as strings.
func decode(payload []byte) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return stamps.ToInternal(doc), nil
}

func (s *Store) Get(ctx context.Context, col storage.Collection, id string) (storage.Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE collection = ? AND id = ?`,
		string(col), id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "document not found: " + string(col) + "/" + id,
		}
	}
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "select document", Err: err}
	}
	return decode(payload)
}

func (s *Store) List(ctx context.Context, col storage.Collection, ownerID string, opts *storage.ListOptions) ([]storage.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM documents WHERE collection = ? ORDER BY id`,
		string(col),
	)
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "select documents", Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := []storage.Document{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "scan document", Err: err}
		}
		doc, err := decode(payload)
		if err != nil {
			return nil, err
		}
		if storage.Matches(doc, ownerID, opts) {
			out = append(out, storage.WithID(id, doc))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "iterate documents", Err: err}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, col storage.Collection, id string, doc storage.Document, merge bool) error {
	b := s.Batch()
	b.Set(col, id, doc, merge)
	return b.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, col storage.Collection, id string) error {
	b := s.Batch()
	b.Delete(col, id)
	return b.Commit(ctx)
}

func (s *Store) NewID() string {
	return uuid.NewString()
}

type stagedOp struct {
	col    storage.Collection
	id     string
	doc    storage.Document
	merge  bool
	remove bool
}

type batch struct {
	store *Store
	ops   []stagedOp
}

func (s *Store) Batch() storage.Batch {
	return &batch{store: s}
}

func (b *batch) Set(col storage.Collection, id string, doc storage.Document, merge bool) {
	b.ops = append(b.ops, stagedOp{col: col, id: id, doc: storage.Clone(doc), merge: merge})
}

func (b *batch) Delete(col storage.Collection, id string) {
	b.ops = append(b.ops, stagedOp{col: col, id: id, remove: true})
}

func (b *batch) Len() int {
	return len(b.ops)
}

func (b *batch) Commit(ctx context.Context) (retErr error) {
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.Error{Type: storage.ErrCommitFailed, Message: "begin transaction", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range b.ops {
		if op.remove {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				string(op.col), op.id,
			); err != nil {
				return &storage.Error{Type: storage.ErrCommitFailed, Message: "stage delete", Err: err}
			}
			continue
		}

		doc := op.doc
		if op.merge {
			var payload []byte
			err := tx.QueryRowContext(ctx,
				`SELECT payload FROM documents WHERE collection = ? AND id = ?`,
				string(op.col), op.id,
			).Scan(&payload)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// nothing to merge into
			case err != nil:
				return &storage.Error{Type: storage.ErrCommitFailed, Message: "read for merge", Err: err}
			default:
				existing, decErr := decode(payload)
				if decErr != nil {
					return &storage.Error{Type: storage.ErrCommitFailed, Message: "decode for merge", Err: decErr}
				}
				merged := storage.Clone(existing)
				for k, v := range op.doc {
					merged[k] = v
				}
				doc = merged
			}
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			return &storage.Error{Type: storage.ErrCommitFailed, Message: "encode document", Err: err}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, payload) VALUES (?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE SET payload = excluded.payload`,
			string(op.col), op.id, payload,
		); err != nil {
			return &storage.Error{Type: storage.ErrCommitFailed, Message: "stage set", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &storage.Error{Type: storage.ErrCommitFailed, Message: "commit transaction", Err: err}
	}
	b.ops = nil
	return nil
}
