package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/hupe1980/lshvec/kvstore"
)

// maxParams bounds the number of ids bound into one IN (...) clause.
const maxParams = 500

const schema = `
CREATE TABLE IF NOT EXISTS kv_records (
	tbl      TEXT NOT NULL,
	id       TEXT NOT NULL,
	vector   BLOB,
	metadata BLOB,
	data     BLOB,
	PRIMARY KEY (tbl, id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS kv_sets (
	tbl    TEXT NOT NULL,
	id     TEXT NOT NULL,
	col    TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (tbl, id, col, member)
) WITHOUT ROWID;
`

// DB owns the SQLite database and hands out tables.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// private in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention. This also keeps an
	// in-memory database alive on its only connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Table returns the store for name.
func (d *DB) Table(_ context.Context, name string) (kvstore.Store, error) {
	return d.Store(name)
}

// Store is Table with the concrete type.
func (d *DB) Store(name string) (*Store, error) {
	if _, err := kvstore.TableKeyPrefix(name); err != nil {
		return nil, err
	}
	return &Store{db: d.db, table: name}, nil
}

// Store is one logical table.
type Store struct {
	db    *sql.DB
	table string
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (kvstore.Record, error) {
	rs, err := s.GetBulk(ctx, []string{id})
	if err != nil {
		return kvstore.Record{}, err
	}
	if len(rs) == 0 {
		return kvstore.Record{}, kvstore.ErrNotFound
	}
	return rs[0], nil
}

// GetBulk reads ids in chunks.
func (s *Store) GetBulk(ctx context.Context, ids []string) ([]kvstore.Record, error) {
	ids = kvstore.UniqueIDs(ids)
	found := make(map[string]kvstore.Record, len(ids))
	for start := 0; start < len(ids); start += maxParams {
		if err := s.readChunk(ctx, ids[start:min(start+maxParams, len(ids))], found); err != nil {
			return nil, err
		}
	}
	return kvstore.InOrder(ids, found), nil
}

func (s *Store) readChunk(ctx context.Context, ids []string, found map[string]kvstore.Record) error {
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.table)
	for _, id := range ids {
		args = append(args, id)
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, metadata, data FROM kv_records WHERE tbl = ? AND id IN "+in, args...)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	for rows.Next() {
		var (
			id                 string
			vector, meta, data []byte
		)
		if err := rows.Scan(&id, &vector, &meta, &data); err != nil {
			_ = rows.Close()
			return err
		}
		r := kvstore.Record{ID: id, Data: data}
		if r.Vector, err = kvstore.DecodeVector(vector); err != nil {
			_ = rows.Close()
			return err
		}
		if r.Metadata, err = kvstore.DecodeMetadata(meta); err != nil {
			_ = rows.Close()
			return err
		}
		found[id] = r
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT id, col, member FROM kv_sets WHERE tbl = ? AND id IN "+in+" ORDER BY id, col, member", args...)
	if err != nil {
		return fmt.Errorf("failed to query sets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, col, member string
		if err := rows.Scan(&id, &col, &member); err != nil {
			return err
		}
		r, ok := found[id]
		if !ok {
			continue
		}
		if r.Sets == nil {
			r.Sets = make(map[string][]string)
		}
		r.Sets[col] = append(r.Sets[col], member)
		found[id] = r
	}
	return rows.Err()
}

// Put replaces a record.
func (s *Store) Put(ctx context.Context, r kvstore.Record) error {
	return s.PutBatch(ctx, []kvstore.Record{r})
}

// PutBatch replaces records in one transaction.
func (s *Store) PutBatch(ctx context.Context, rs []kvstore.Record) error {
	if len(rs) == 0 {
		return nil
	}
	type row struct {
		r    kvstore.Record
		meta []byte
	}
	rows := make([]row, len(rs))
	for i, r := range rs {
		if err := kvstore.ValidateRecord(r); err != nil {
			return err
		}
		meta, err := kvstore.EncodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		r.Sets = kvstore.NormalizeSets(r.Sets)
		rows[i] = row{r: r, meta: meta}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rw := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO kv_records (tbl, id, vector, metadata, data) VALUES (?, ?, ?, ?, ?)`,
				s.table, rw.r.ID, nullable(kvstore.EncodeVector(rw.r.Vector)), nullable(rw.meta), nullable(rw.r.Data),
			); err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM kv_sets WHERE tbl = ? AND id = ?`, s.table, rw.r.ID,
			); err != nil {
				return fmt.Errorf("failed to clear sets: %w", err)
			}
			for col, vals := range rw.r.Sets {
				if err := insertMembers(ctx, tx, s.table, rw.r.ID, col, vals); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// UnionColumn inserts members with INSERT OR IGNORE.
func (s *Store) UnionColumn(ctx context.Context, key, column string, values []string) error {
	if key == "" {
		return kvstore.ErrInvalidID
	}
	if err := kvstore.ValidateColumn(column); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO kv_records (tbl, id) VALUES (?, ?)`, s.table, key,
		); err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return insertMembers(ctx, tx, s.table, key, column, values)
	})
}

func insertMembers(ctx context.Context, tx *sql.Tx, table, id, col string, vals []string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO kv_sets (tbl, id, col, member) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range vals {
		if _, err := stmt.ExecContext(ctx, table, id, col, v); err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// nullable maps nil slices to SQL NULL.
func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

var (
	_ kvstore.Store    = (*Store)(nil)
	_ kvstore.Provider = (*DB)(nil)
)
