/*Package csql encapsulates the shared postgres connection of the backend.

The handle is created unconnected and connects lazily, at most once; every
component that needs the database receives the same handle injected rather
than reaching for package state.
*/
package csql

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
)

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

// DB encapsulates a standard sql.DB with a schema and an explicit
// connection lifecycle.
type DB struct {
	*sql.DB
	Schema string

	dataSourceName string
	mutex          sync.Mutex
	connected      bool
}

// New creates an unconnected handle for a finquest postgres database with
// a schema. Nothing talks to the database until EnsureConnected.
func New(dataSourceName, schema string) *DB {
	if len(schema) == 0 {
		schema = "public"
	}
	return &DB{Schema: schema, dataSourceName: dataSourceName}
}

// NewWithDB wraps an already connected database. This is the entry point
// for unit tests running against a mock driver.
func NewWithDB(db *sql.DB, schema string) *DB {
	if len(schema) == 0 {
		schema = "public"
	}
	return &DB{DB: db, Schema: schema, connected: true}
}

// EnsureConnected establishes the connection if it does not exist yet.
// The connection is created at most once and then reused; concurrent
// callers share the first successful attempt. The schema gets created if
// it does not exist, and the uuid-ossp extension is loaded.
func (db *DB) EnsureConnected(ctx context.Context) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.connected {
		return nil
	}

	rlog := logger.FromContext(ctx)
	rlog.Debugln("connecting to postgres database")

	sqlDB, err := sql.Open("postgres", db.dataSourceName)
	if err != nil {
		return err
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return err
	}

	setupQuery := `CREATE extension IF NOT EXISTS "uuid-ossp";`
	if db.Schema != "public" {
		rlog.Debugln("selected database schema:", db.Schema)
		setupQuery += `CREATE schema IF NOT EXISTS ` + db.Schema + `;`
	}
	if _, err = sqlDB.ExecContext(ctx, setupQuery); err != nil {
		sqlDB.Close()
		return err
	}

	db.DB = sqlDB
	db.connected = true
	return nil
}

// Close tears the connection down. A closed handle does not reconnect.
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.connected {
		return nil
	}
	db.connected = false
	return db.DB.Close()
}

// ClearSchema clears all the data contained in the database's schema.
// Technically this is done by dropping the schema and then recreating it.
func (db *DB) ClearSchema() error {
	if db.Schema == "public" {
		return errors.New("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA IF EXISTS ` + db.Schema + ` CASCADE;
CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	return err
}
