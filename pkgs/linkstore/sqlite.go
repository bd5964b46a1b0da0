package linkstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore/migrations"
)

const migrationTable = "schema_migrations"

// SQLite persists links in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the embedded migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	names, err := fs.Glob(migrationFS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		var applied int
		if err := db.QueryRow(`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}
		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, name, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// upSection returns the statements between "+migrate Up" and "+migrate Down".
func upSection(content string) string {
	if i := strings.Index(content, "-- +migrate Down"); i >= 0 {
		content = content[:i]
	}
	return strings.Replace(content, "-- +migrate Up", "", 1)
}

func (s *SQLite) Upsert(ctx context.Context, link Link) (Link, error) {
	link, err := prepare(link, time.Now())
	if err != nil {
		return Link{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wallet_links (id, wallet, provider, provider_user_id, username, display_name, linked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wallet, provider) DO UPDATE SET
			provider_user_id = excluded.provider_user_id,
			username = excluded.username,
			display_name = excluded.display_name,
			linked_at = excluded.linked_at`,
		link.ID, link.Wallet, link.Provider, link.ProviderUserID, link.Username, link.DisplayName, link.LinkedAt.UnixMilli(),
	)
	if err != nil {
		return Link{}, fmt.Errorf("upsert link: %w", err)
	}
	return s.Get(ctx, link.Wallet, link.Provider)
}

func (s *SQLite) Get(ctx context.Context, wallet, provider string) (Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, wallet, provider, provider_user_id, username, display_name, linked_at
		FROM wallet_links WHERE wallet = ? AND provider = ?`,
		strings.TrimSpace(wallet), strings.TrimSpace(provider),
	)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *SQLite) ListByWallet(ctx context.Context, wallet string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, wallet, provider, provider_user_id, username, display_name, linked_at
		FROM wallet_links WHERE wallet = ? ORDER BY provider`,
		strings.TrimSpace(wallet),
	)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (Link, error) {
	var (
		link     Link
		linkedAt int64
	)
	if err := row.Scan(&link.ID, &link.Wallet, &link.Provider, &link.ProviderUserID, &link.Username, &link.DisplayName, &linkedAt); err != nil {
		return Link{}, err
	}
	link.LinkedAt = time.UnixMilli(linkedAt).UTC()
	return link, nil
}
