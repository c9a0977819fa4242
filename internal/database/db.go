// Package database is the domain store: transactional CRUD and
// queries over Users, Chats, Memberships, Messages and Comments.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"chatserver/internal/errors"

	_ "github.com/lib/pq"
)

// DB holds the database connection pool.
type DB struct {
	*sql.DB
}

// Querier is satisfied by both *sql.DB and *sql.Tx, so every store
// function below can run standalone or inside db.Transaction without
// two copies of each query.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Config is the subset of config.DatabaseConfig the store needs,
// accepted directly to avoid an import cycle with internal/config.
type Config struct {
	URL             string
	MaxConnections  int
	MaxIdleTime     int
	ConnMaxLifetime int
}

// NewConnection opens and verifies a PostgreSQL connection pool.
func NewConnection(cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.Internal)
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns == 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for i := 0; i < 3; i++ {
		if err := db.PingContext(ctx); err != nil {
			lastErr = err
			log.Printf("database connection attempt %d/3 failed: %v", i+1, err)
			if i < 2 {
				time.Sleep(2 * time.Second)
				continue
			}
		} else {
			lastErr = nil
			break
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database after 3 attempts: %w", lastErr)
	}

	return &DB{db}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// Transaction runs fn inside a transaction, committing on success and
// rolling back otherwise, so observers never see half-applied writes.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Bootstrap provisions the singleton public chat if it does not
// already exist, so every handler can assume one is always there to
// find.
func (db *DB) Bootstrap(ctx context.Context) error {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM chats WHERE type = 'public' AND name = $1`, "public_chat").Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check public chat: %w", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO chats (name, type) VALUES ($1, 'public')`, "public_chat")
	if err != nil {
		return fmt.Errorf("create public chat: %w", err)
	}
	return nil
}

func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
