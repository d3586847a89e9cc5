// Package credential stores provider API keys by realm so the key does not
// have to be passed on the command line.
package credential

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when no credential exists for a realm.
var ErrNotFound = eris.New("credential: not found")

// Credential is a username/password pair scoped to a realm. For the geocoder
// the password holds the API key.
type Credential struct {
	ID        string    `json:"id" yaml:"id"`
	Realm     string    `json:"realm" yaml:"realm"`
	Username  string    `json:"username" yaml:"username"`
	Password  string    `json:"password" yaml:"password"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Masked returns a copy of c with the password masked.
func (c Credential) Masked() Credential {
	c.Password = Mask(c.Password)
	return c
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// Store persists credentials. Set replaces any existing credential for the
// same realm.
type Store interface {
	Get(ctx context.Context, realm string) (*Credential, error)
	Set(ctx context.Context, c *Credential) error
	List(ctx context.Context) ([]Credential, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a migrated store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("credential: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func validate(c *Credential) error {
	if c == nil {
		return eris.New("credential: nil credential")
	}
	if strings.TrimSpace(c.Realm) == "" {
		return eris.New("credential: realm is required")
	}
	if c.Password == "" {
		return eris.New("credential: password is required")
	}
	return nil
}
