// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveEvent(ctx context.Context, event *model.Event) error {
	return querySaveEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.db, id)
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, filter)
}

func (s *PostgresStore) MarkEventSynced(ctx context.Context, id string) error {
	return queryMarkEventSynced(ctx, s.db, id)
}

func (s *PostgresStore) RecordSyncAttempt(ctx context.Context, id string) error {
	return queryRecordSyncAttempt(ctx, s.db, id)
}

func (s *PostgresStore) DeleteEventsBefore(ctx context.Context, days int) (int, error) {
	return queryDeleteEventsBefore(ctx, s.db, days)
}

func (s *PostgresStore) SaveSettings(ctx context.Context, settings *model.Settings) error {
	return querySaveSettings(ctx, s.db, settings)
}

func (s *PostgresStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	return queryGetSettings(ctx, s.db)
}

func (s *PostgresStore) EnqueueSyncItem(ctx context.Context, item *model.QueueItem) error {
	return queryEnqueueSyncItem(ctx, s.db, item)
}

func (s *PostgresStore) ListSyncQueue(ctx context.Context, limit int) ([]*model.QueueItem, error) {
	return queryListSyncQueue(ctx, s.db, limit)
}

func (s *PostgresStore) RemoveSyncQueueItem(ctx context.Context, id string) error {
	return queryRemoveSyncQueueItem(ctx, s.db, id)
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.StorageStats, error) {
	return queryStats(ctx, s.db)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) SaveEvent(ctx context.Context, event *model.Event) error {
	return querySaveEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.tx, id)
}

func (s *txStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, filter)
}

func (s *txStore) MarkEventSynced(ctx context.Context, id string) error {
	return queryMarkEventSynced(ctx, s.tx, id)
}

func (s *txStore) RecordSyncAttempt(ctx context.Context, id string) error {
	return queryRecordSyncAttempt(ctx, s.tx, id)
}

func (s *txStore) DeleteEventsBefore(ctx context.Context, days int) (int, error) {
	return queryDeleteEventsBefore(ctx, s.tx, days)
}

func (s *txStore) SaveSettings(ctx context.Context, settings *model.Settings) error {
	return querySaveSettings(ctx, s.tx, settings)
}

func (s *txStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	return queryGetSettings(ctx, s.tx)
}

func (s *txStore) EnqueueSyncItem(ctx context.Context, item *model.QueueItem) error {
	return queryEnqueueSyncItem(ctx, s.tx, item)
}

func (s *txStore) ListSyncQueue(ctx context.Context, limit int) ([]*model.QueueItem, error) {
	return queryListSyncQueue(ctx, s.tx, limit)
}

func (s *txStore) RemoveSyncQueueItem(ctx context.Context, id string) error {
	return queryRemoveSyncQueueItem(ctx, s.tx, id)
}

func (s *txStore) Stats(ctx context.Context) (*model.StorageStats, error) {
	return queryStats(ctx, s.tx)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
