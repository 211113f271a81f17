package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/dripiq/dripiq-lead-services/internal/events"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// LeadsDB bundles the Postgres connection with the event publisher so
// write paths can publish inside the insert-publish-commit sequence.
type LeadsDB struct {
	DB     *sql.DB
	Events events.Notifier
	Log    *zerolog.Logger
}

// NewLeadsDB is a constructor that initializes LeadsDB with DB and Log
func NewLeadsDB(events events.Notifier, log *zerolog.Logger) (*LeadsDB, error) {
	// Get the database connection string from the environment
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Error().Msg("DATABASE_URL environment variable is not set")
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	// Open the database connection
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		return nil, err
	}

	return &LeadsDB{
		DB:     db,
		Events: events,
		Log:    log,
	}, nil
}

func (l *LeadsDB) Close() error {
	if err := l.DB.Close(); err != nil {
		return err
	}
	l.Log.Info().Msg("database connection closed")
	return nil
}

func (l *LeadsDB) execQuery(tx *sql.Tx, query string, args ...interface{}) error {

	if l.DB == nil {
		return fmt.Errorf("database connection is not established")
	}

	_, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

// CommitTransaction commits the transaction, rolling back if the commit
// itself fails.
func (l *LeadsDB) CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
