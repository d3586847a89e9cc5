package credential

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geocoding-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a small connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 2
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS credentials (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	realm      TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL DEFAULT '',
	password   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

var credentialUpsert = db.UpsertConfig{
	Table:        "credentials",
	Columns:      []string{"id", "realm", "username", "password", "updated_at"},
	ConflictKeys: []string{"realm"},
	UpdateCols:   []string{"username", "password", "updated_at"},
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, realm string) (*Credential, error) {
	var c Credential
	err := s.pool.QueryRow(ctx,
		`SELECT id, realm, username, password, updated_at FROM credentials WHERE realm = $1`, realm,
	).Scan(&c.ID, &c.Realm, &c.Username, &c.Password, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "realm %q", realm)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get credential %q", realm)
	}
	return &c, nil
}

func (s *PostgresStore) Set(ctx context.Context, c *Credential) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := db.Upsert(ctx, s.pool, credentialUpsert,
		[]any{c.ID, c.Realm, c.Username, c.Password, c.UpdatedAt})
	return eris.Wrapf(err, "postgres: set credential %q", c.Realm)
}

func (s *PostgresStore) List(ctx context.Context) ([]Credential, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, realm, username, password, updated_at FROM credentials ORDER BY realm`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list credentials")
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.Realm, &c.Username, &c.Password, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan credential")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate credentials")
}
