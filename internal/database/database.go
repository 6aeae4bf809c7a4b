// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package database implements the persistence layer on embedded DuckDB.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/metrics"
	"github.com/tomtom215/blockfeed/internal/recommend"
)

// Config configures the DuckDB connection.
type Config struct {
	// Path is the database file location. ":memory:" or empty opens an
	// in-memory database.
	Path string `koanf:"path"`

	// SeedDir, when set, points to a directory of CSV files loaded into
	// empty tables at startup.
	SeedDir string `koanf:"seed_dir"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `koanf:"max_open_conns"`
}

// DB wraps the DuckDB handle and implements recommend.Store.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

const schema = `
CREATE SEQUENCE IF NOT EXISTS interactions_id_seq;

CREATE TABLE IF NOT EXISTS users (
	id     INTEGER PRIMARY KEY,
	name   VARCHAR NOT NULL,
	block  VARCHAR NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS items (
	id          INTEGER PRIMARY KEY,
	title       VARCHAR NOT NULL,
	description VARCHAR NOT NULL DEFAULT '',
	community   VARCHAR NOT NULL DEFAULT '',
	created_at  TIMESTAMP
);

CREATE TABLE IF NOT EXISTS interactions (
	id               INTEGER PRIMARY KEY DEFAULT nextval('interactions_id_seq'),
	user_id          INTEGER NOT NULL,
	item_id          INTEGER NOT NULL,
	interaction_type VARCHAR NOT NULL,
	ts               TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, ts);
CREATE INDEX IF NOT EXISTS idx_interactions_item ON interactions(item_id);
`

// Open opens the database, applies the schema, and optionally loads CSV
// seed data into empty tables.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := cfg.Path
	if dsn == ":memory:" {
		dsn = ""
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "database").Logger(),
	}

	if err := db.conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if cfg.SeedDir != "" {
		if err := db.seed(ctx, cfg.SeedDir); err != nil {
			closeQuietly(conn)
			return nil, fmt.Errorf("seed data: %w", err)
		}
	}

	db.logger.Info().Str("path", cfg.Path).Msg("database ready")
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.conn.Close()
}

func closeQuietly(c *sql.DB) {
	_ = c.Close()
}

// seed loads CSV files into tables that are still empty. Seeding is
// idempotent across restarts against a persistent database file.
func (db *DB) seed(ctx context.Context, dir string) error {
	dir = strings.TrimRight(dir, "/")
	loads := []struct {
		table string
		file  string
	}{
		{"users", dir + "/users.csv"},
		{"items", dir + "/items.csv"},
		{"interactions", dir + "/interactions.csv"},
	}

	for _, l := range loads {
		var count int
		row := db.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", l.table))
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("count %s: %w", l.table, err)
		}
		if count > 0 {
			db.logger.Debug().Str("table", l.table).Int("rows", count).Msg("table already populated, skipping seed")
			continue
		}

		// DuckDB reads CSV natively, including header detection.
		query := fmt.Sprintf("INSERT INTO %s SELECT * FROM read_csv_auto('%s', header=true)", l.table, l.file)
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			db.logger.Warn().Err(err).Str("table", l.table).Str("file", l.file).Msg("seed file not loaded")
			continue
		}
		db.logger.Info().Str("table", l.table).Str("file", l.file).Msg("seeded table from csv")
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// GetUser returns a user by ID, or recommend.ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id int) (*recommend.User, error) {
	defer observe("get_user", time.Now())

	var u recommend.User
	row := db.conn.QueryRowContext(ctx, "SELECT id, name, block FROM users WHERE id = ?", id)
	if err := row.Scan(&u.ID, &u.Name, &u.Block); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recommend.ErrNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// GetItem returns an item by ID, or recommend.ErrNotFound.
func (db *DB) GetItem(ctx context.Context, id int) (*recommend.Item, error) {
	defer observe("get_item", time.Now())

	var (
		it        recommend.Item
		createdAt sql.NullTime
	)
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, description, community, created_at FROM items WHERE id = ?", id)
	if err := row.Scan(&it.ID, &it.Title, &it.Description, &it.Community, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recommend.ErrNotFound
		}
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	if createdAt.Valid {
		it.CreatedAt = createdAt.Time.UTC()
	}
	return &it, nil
}

// GetItems bulk-resolves items. Missing IDs are silently absent from the
// result map.
func (db *DB) GetItems(ctx context.Context, ids []int) (map[int]recommend.Item, error) {
	if len(ids) == 0 {
		return map[int]recommend.Item{}, nil
	}
	defer observe("get_items", time.Now())

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT id, title, description, community, created_at FROM items WHERE id IN (%s)",
		strings.Join(placeholders, ","))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]recommend.Item, len(ids))
	for rows.Next() {
		var (
			it        recommend.Item
			createdAt sql.NullTime
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Community, &createdAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if createdAt.Valid {
			it.CreatedAt = createdAt.Time.UTC()
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

// ListItems returns the full item corpus in ID order.
func (db *DB) ListItems(ctx context.Context) ([]recommend.Item, error) {
	defer observe("list_items", time.Now())

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, description, community, created_at FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []recommend.Item
	for rows.Next() {
		var (
			it        recommend.Item
			createdAt sql.NullTime
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Community, &createdAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if createdAt.Valid {
			it.CreatedAt = createdAt.Time.UTC()
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListInteractions returns all interactions in insertion order.
func (db *DB) ListInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	defer observe("list_interactions", time.Now())

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, user_id, item_id, interaction_type, ts FROM interactions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanInteractions(rows)
}

// RecentInteractionsByUser returns the user's n most recent interactions,
// newest first.
func (db *DB) RecentInteractionsByUser(ctx context.Context, userID, n int) ([]recommend.Interaction, error) {
	if n <= 0 {
		return nil, nil
	}
	defer observe("recent_interactions", time.Now())

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, user_id, item_id, interaction_type, ts FROM interactions WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?",
		userID, n)
	if err != nil {
		return nil, fmt.Errorf("recent interactions for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanInteractions(rows)
}

// InteractionStats returns engagement counts for an item.
func (db *DB) InteractionStats(ctx context.Context, itemID int) (recommend.InteractionStats, error) {
	defer observe("interaction_stats", time.Now())

	var stats recommend.InteractionStats
	row := db.conn.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE interaction_type IN ('like', 'book', 'attend')),
			count(*) FILTER (WHERE interaction_type = 'dismiss')
		FROM interactions WHERE item_id = ?`, itemID)
	if err := row.Scan(&stats.Total, &stats.Positive, &stats.Negative); err != nil {
		return recommend.InteractionStats{}, fmt.Errorf("interaction stats for item %d: %w", itemID, err)
	}
	return stats, nil
}

// InsertInteraction records a feedback event and returns its row ID.
func (db *DB) InsertInteraction(ctx context.Context, userID, itemID int, typ recommend.InteractionType, ts time.Time) (int, error) {
	defer observe("insert_interaction", time.Now())

	var id int
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO interactions (user_id, item_id, interaction_type, ts) VALUES (?, ?, ?, ?) RETURNING id",
		userID, itemID, string(typ), ts.UTC())
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert interaction: %w", err)
	}
	return id, nil
}

func scanInteractions(rows *sql.Rows) ([]recommend.Interaction, error) {
	var out []recommend.Interaction
	for rows.Next() {
		var (
			in  recommend.Interaction
			typ string
			ts  sql.NullTime
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.ItemID, &typ, &ts); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Type = recommend.InteractionType(typ)
		if ts.Valid {
			in.Timestamp = ts.Time.UTC()
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
