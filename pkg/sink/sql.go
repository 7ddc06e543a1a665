// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

var schemas = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS treegen_snapshots (
			id VARCHAR(36) PRIMARY KEY,
			root TEXT NOT NULL,
			taken_at DATETIME(6) NOT NULL,
			directories INT NOT NULL,
			files INT NOT NULL,
			bytes BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS treegen_entries (
			snapshot_id VARCHAR(36) NOT NULL,
			position INT NOT NULL,
			kind VARCHAR(16) NOT NULL,
			path TEXT NOT NULL,
			name VARCHAR(255) NOT NULL,
			size BIGINT NULL,
			last_modified DATETIME(6) NULL,
			PRIMARY KEY (snapshot_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS treegen_changes (
			snapshot_id VARCHAR(36) NOT NULL,
			position INT NOT NULL,
			operation VARCHAR(16) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			target_path TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, position)
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS treegen_snapshots (
			id VARCHAR(36) PRIMARY KEY,
			root TEXT NOT NULL,
			taken_at TIMESTAMPTZ NOT NULL,
			directories INTEGER NOT NULL,
			files INTEGER NOT NULL,
			bytes BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS treegen_entries (
			snapshot_id VARCHAR(36) NOT NULL REFERENCES treegen_snapshots(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			kind VARCHAR(16) NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			size BIGINT,
			last_modified TIMESTAMPTZ,
			PRIMARY KEY (snapshot_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS treegen_changes (
			snapshot_id VARCHAR(36) NOT NULL REFERENCES treegen_snapshots(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			operation VARCHAR(16) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			target_path TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, position)
		)`,
	},
}

// SQLSink persists snapshots and change records to MySQL or PostgreSQL.
type SQLSink struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects to dsn with the named driver and checks the connection.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSink, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	if driver == DriverMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLSink{db: db, driver: driver}, nil
}

// mysqlDSN turns on parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewSQLSink wraps an existing connection pool.
func NewSQLSink(db *sql.DB, driver string) (*SQLSink, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	return &SQLSink{db: db, driver: driver}, nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}

// Migrate creates the sink tables when they are missing.
func (s *SQLSink) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[s.driver] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	log.Info("sink schema ready on %s", s.driver)
	return nil
}

// SaveSnapshot stores the snapshot header and every entry in one transaction.
func (s *SQLSink) SaveSnapshot(ctx context.Context, snap *fixture.Snapshot) error {
	dirs, files := snap.Entries.Counts()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO treegen_snapshots (id, root, taken_at, directories, files, bytes) VALUES (?, ?, ?, ?, ?, ?)`),
			snap.ID, snap.Root, snap.TakenAt, dirs, files, snap.Entries.TotalSize(),
		); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
		}

		insert := s.rebind(
			`INSERT INTO treegen_entries (snapshot_id, position, kind, path, name, size, last_modified) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		for i, e := range snap.Entries {
			var size sql.NullInt64
			if e.Size != nil {
				size = sql.NullInt64{Int64: *e.Size, Valid: true}
			}
			var mod sql.NullTime
			if e.LastModified != nil {
				mod = sql.NullTime{Time: *e.LastModified, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, insert, snap.ID, i, string(e.Kind), e.Path, e.Name, size, mod); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.Path, err)
			}
		}
		return nil
	})
}

// SaveChanges stores the records of one mutation batch against snapshotID.
func (s *SQLSink) SaveChanges(ctx context.Context, snapshotID string, records []fixture.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		insert := s.rebind(
			`INSERT INTO treegen_changes (snapshot_id, position, operation, kind, target_path, description) VALUES (?, ?, ?, ?, ?, ?)`)
		for i, rec := range records {
			if _, err := tx.ExecContext(ctx, insert,
				snapshotID, i, string(rec.Operation), string(rec.Kind), rec.TargetPath, rec.Description,
			); err != nil {
				return fmt.Errorf("insert change %d: %w", i, err)
			}
		}
		return nil
	})
}

// LoadSnapshot reads a stored snapshot back with its entries in index order.
func (s *SQLSink) LoadSnapshot(ctx context.Context, id string) (*fixture.Snapshot, error) {
	snap := &fixture.Snapshot{ID: id}
	var taken dbTime
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT root, taken_at FROM treegen_snapshots WHERE id = ?`), id,
	).Scan(&snap.Root, &taken)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if !taken.Valid {
		return nil, fmt.Errorf("load snapshot %s: taken_at is NULL", id)
	}
	snap.TakenAt = taken.Time

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT kind, path, name, size, last_modified FROM treegen_entries WHERE snapshot_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("load entries of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e    fixture.IndexEntry
			kind string
			size sql.NullInt64
			mod  dbTime
		)
		if err := rows.Scan(&kind, &e.Path, &e.Name, &size, &mod); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = fixture.EntryKind(kind)
		if size.Valid {
			v := size.Int64
			e.Size = &v
		}
		if mod.Valid {
			t := mod.Time
			e.LastModified = &t
		}
		snap.Entries = append(snap.Entries, e)
	}
	return snap, rows.Err()
}

func (s *SQLSink) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// dbTime scans timestamps returned either as time.Time or, when a MySQL
// connection was opened without parseTime, as text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
}

func (t *dbTime) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime{Time: v, Valid: true}
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			*t = dbTime{Time: parsed, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", text)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLSink) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
