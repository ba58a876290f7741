package idmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		seq INTEGER NOT NULL,
		uuid TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		source TEXT NOT NULL,
		store TEXT NOT NULL,
		record_id TEXT NOT NULL,
		uuid TEXT NOT NULL,
		method TEXT NOT NULL,
		tier TEXT NOT NULL,
		PRIMARY KEY (source, store, record_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cursors (
		source TEXT NOT NULL,
		store TEXT NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (source, store)
	)`,
}

// SQLiteStore keeps the ID map in a single SQLite file. Entities are stored
// as JSON blobs; assignments and cursors are plain rows so they can be
// inspected with any SQLite client.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the ID map at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = constants.DefaultIDMapPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.WrapIO("create schema", path, err)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string { return s.path }

// Load reads the whole ID map.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := NewSnapshot()

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM entities ORDER BY seq`)
	if err != nil {
		return nil, errors.WrapIO("select entities", s.path, err)
	}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			_ = rows.Close()
			return nil, errors.WrapIO("scan entity", s.path, err)
		}
		var e records.Entity
		if err := json.Unmarshal(payload, &e); err != nil {
			_ = rows.Close()
			return nil, errors.WrapParse("json", s.path, err)
		}
		snap.Entities = append(snap.Entities, &e)
	}
	if err := closeRows(rows); err != nil {
		return nil, errors.WrapIO("select entities", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT source, store, record_id, uuid, method, tier FROM assignments`)
	if err != nil {
		return nil, errors.WrapIO("select assignments", s.path, err)
	}
	for rows.Next() {
		var source, store, method, tier string
		var a Assignment
		if err := rows.Scan(&source, &store, &a.Key.RecordID, &a.UUID, &method, &tier); err != nil {
			_ = rows.Close()
			return nil, errors.WrapIO("scan assignment", s.path, err)
		}
		a.Key.Source, a.Key.Store = types.SourceID(source), types.StoreID(store)
		a.Method, a.Tier = types.MatchMethod(method), types.Tier(tier)
		snap.Assignments[a.Key] = a
	}
	if err := closeRows(rows); err != nil {
		return nil, errors.WrapIO("select assignments", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT source, store, value FROM cursors`)
	if err != nil {
		return nil, errors.WrapIO("select cursors", s.path, err)
	}
	for rows.Next() {
		var source, store string
		var value int64
		if err := rows.Scan(&source, &store, &value); err != nil {
			_ = rows.Close()
			return nil, errors.WrapIO("scan cursor", s.path, err)
		}
		snap.Cursors[identity.Key{Source: types.SourceID(source), Store: types.StoreID(store)}] = value
	}
	if err := closeRows(rows); err != nil {
		return nil, errors.WrapIO("select cursors", s.path, err)
	}
	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

// Save replaces the stored map in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("begin", s.path, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"entities", "assignments", "cursors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.WrapIO("clear "+table, s.path, err)
		}
	}

	for i, e := range snapshot.Entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entity %s: %w", e.UUID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO entities(seq, uuid, payload) VALUES(?,?,?)`, i, e.UUID, payload); err != nil {
			return errors.WrapIO("insert entity", s.path, err)
		}
	}
	for _, a := range snapshot.SortedAssignments() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assignments(source, store, record_id, uuid, method, tier) VALUES(?,?,?,?,?,?)`,
			string(a.Key.Source), string(a.Key.Store), a.Key.RecordID, a.UUID, string(a.Method), string(a.Tier)); err != nil {
			return errors.WrapIO("insert assignment", s.path, err)
		}
	}
	for k, v := range snapshot.Cursors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cursors(source, store, value) VALUES(?,?,?)`,
			string(k.Source), string(k.Store), v); err != nil {
			return errors.WrapIO("insert cursor", s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapIO("commit", s.path, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
