// Package db persists scan records, discovered devices and their
// connections in PostgreSQL, and carries the embedded schema migrations.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
)

// sanitizeDBError converts raw driver errors into coded errors that do not
// expose SQL or credentials. The original error is kept as the Cause.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		dbErr := inverrors.NewDatabaseError(inverrors.CodeNotFound, "Resource not found")
		dbErr.Operation = operation
		return dbErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		var dbErr *inverrors.DatabaseError
		switch pqErr.Code {
		case "23505": // unique_violation
			dbErr = inverrors.NewDatabaseError(inverrors.CodeConflict, "Resource already exists")
		case "23503": // foreign_key_violation
			dbErr = inverrors.NewDatabaseError(inverrors.CodeValidation, "Referenced resource does not exist")
		case "23502": // not_null_violation
			dbErr = inverrors.NewDatabaseError(inverrors.CodeValidation, "Required field is missing")
		case "23514": // check_violation
			dbErr = inverrors.NewDatabaseError(inverrors.CodeValidation, "Data validation failed")
		case "57014": // query_canceled
			dbErr = inverrors.NewDatabaseError(inverrors.CodeCanceled, "Database operation was canceled")
		case "57P01": // admin_shutdown
			dbErr = inverrors.NewDatabaseError(inverrors.CodeDatabaseConnection, "Database connection lost")
		case "08000", "08003", "08006":
			dbErr = inverrors.NewDatabaseError(inverrors.CodeDatabaseConnection, "Database connection error")
		default:
			dbErr = inverrors.NewDatabaseError(inverrors.CodeDatabaseQuery,
				fmt.Sprintf("Database operation failed: %s", operation))
		}
		dbErr.Operation = operation
		dbErr.Cause = err
		return dbErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		dbErr := inverrors.WrapDatabaseError(inverrors.CodeDatabaseTimeout, "Database operation timed out", err)
		dbErr.Operation = operation
		return dbErr
	}

	dbErr := inverrors.NewDatabaseError(inverrors.CodeDatabaseQuery,
		fmt.Sprintf("Database operation failed: %s", operation))
	dbErr.Operation = operation
	dbErr.Cause = err
	return dbErr
}

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// DB wraps sqlx.DB and records query timings.
type DB struct {
	*sqlx.DB
	metrics metrics.Recorder
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"-"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration.
// Database name, username and password must be set explicitly.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}

// DSN builds the lib/pq key=value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Connect opens and verifies a PostgreSQL connection pool.
// Errors never include the DSN.
func Connect(ctx context.Context, config *Config, rec metrics.Recorder) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, inverrors.ErrDatabaseConnection(err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := conn.PingContext(ctx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.Warn("Failed to close database connection after ping failure")
		}
		return nil, inverrors.WrapDatabaseError(inverrors.CodeDatabaseConnection, "Failed to verify database connection", err)
	}

	logging.Info("Connected to database", "host", config.Host, "port", config.Port, "database", config.Database)
	return NewDB(conn, rec), nil
}

// NewDB wraps an open connection. A nil recorder disables query metrics.
func NewDB(conn *sqlx.DB, rec metrics.Recorder) *DB {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &DB{DB: conn, metrics: rec}
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// observe records the duration and outcome of one repository operation.
func (db *DB) observe(operation string, started time.Time, err error) {
	db.metrics.DatabaseQuery(operation, time.Since(started), err)
}

// inTx runs fn inside a transaction, rolling back on error.
func (db *DB) inTx(ctx context.Context, operation string, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return sanitizeDBError(operation, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return sanitizeDBError(operation, err)
	}
	return nil
}
