package credential

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS credentials (
	id         TEXT PRIMARY KEY,
	realm      TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL DEFAULT '',
	password   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, realm string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, realm, username, password, updated_at FROM credentials WHERE realm = ?`, realm)

	var c Credential
	err := row.Scan(&c.ID, &c.Realm, &c.Username, &c.Password, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "realm %q", realm)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get credential %q", realm)
	}
	return &c, nil
}

func (s *SQLiteStore) Set(ctx context.Context, c *Credential) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, realm, username, password, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (realm) DO UPDATE SET username = excluded.username, password = excluded.password, updated_at = excluded.updated_at`,
		c.ID, c.Realm, c.Username, c.Password, c.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: set credential %q", c.Realm)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, realm, username, password, updated_at FROM credentials ORDER BY realm`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list credentials")
	}
	defer rows.Close() //nolint:errcheck

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.Realm, &c.Username, &c.Password, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan credential")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate credentials")
}
