package imp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

const snapshotSchema = `CREATE TABLE IF NOT EXISTS bindings (
	run_id VARCHAR(64) NOT NULL,
	name   VARCHAR(255) NOT NULL,
	kind   VARCHAR(16) NOT NULL,
	value  VARCHAR(64) NOT NULL,
	PRIMARY KEY (run_id, name)
)`

// SnapshotStore keeps the final bindings of program runs in a SQL database.
type SnapshotStore struct {
	DB     *sql.DB
	driver string
	logger *slog.Logger
}

func OpenSnapshotStore(ctx context.Context, driver, dsn string) (*SnapshotStore, error) {
	if driver != DriverSQLite && driver != DriverMySQL {
		return nil, fmt.Errorf("snapshot: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: create schema: %w", err)
	}

	return &SnapshotStore{
		DB:     db,
		driver: driver,
		logger: slog.Default(),
	}, nil
}

// Save replaces the bindings stored for runID with those of env.
func (s *SnapshotStore) Save(ctx context.Context, runID string, env *Environment) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bindings WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("snapshot: clear %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO bindings (run_id, name, kind, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, name := range env.Names() {
		v, _ := env.Get(name)
		if _, err := stmt.ExecContext(ctx, runID, name, v.Kind.String(), encodePayload(v)); err != nil {
			return fmt.Errorf("snapshot: insert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}

	s.logger.Debug("snapshot saved",
		slog.String("driver", s.driver),
		slog.String("run", runID),
		slog.Int("bindings", env.Len()))
	return nil
}

// Load rebuilds the environment stored for runID. An unknown run yields an
// empty environment.
func (s *SnapshotStore) Load(ctx context.Context, runID string) (*Environment, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT name, kind, value FROM bindings WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: query %s: %w", runID, err)
	}
	defer rows.Close()

	env := NewEnvironment()
	for rows.Next() {
		var name, kind, payload string
		if err := rows.Scan(&name, &kind, &payload); err != nil {
			return nil, fmt.Errorf("snapshot: scan: %w", err)
		}

		v, err := decodePayload(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("snapshot: binding %s: %w", name, err)
		}

		env.Set(name, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: rows: %w", err)
	}

	return env, nil
}

func (s *SnapshotStore) Close() error {
	return s.DB.Close()
}

// encodePayload keeps doubles exact rather than using the display form.
func encodePayload(v Value) string {
	if v.Kind == TypeBool {
		return strconv.FormatBool(v.B)
	}

	return strconv.FormatFloat(v.D, 'g', -1, 64)
}

func decodePayload(kind, payload string) (Value, error) {
	switch kind {
	case TypeBool.String():
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case TypeDouble.String():
		d, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return Value{}, err
		}
		return Double(d), nil
	}

	return Value{}, fmt.Errorf("unknown kind %q", kind)
}
