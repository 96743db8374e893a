package resolver

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/singleflight"

	"github.com/opelnic/dockerdns/config"
)

// Lookuper is the backing store contract. Lookup returns the stored value
// for a name, errNotFound when no row exists, any other error is a store
// failure.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (string, error)
	Close() error
}

// Store resolves names against the relational backing store.
type Store struct {
	db      *sql.DB
	query   string
	timeout time.Duration

	group singleflight.Group
}

var _ Lookuper = (*Store)(nil)

// NewStore opens the backing store pool. The pool connects lazily, a store
// that is down at startup only fails the queries that need it.
func NewStore(cfg *config.Config) (*Store, error) {
	dsn := cfg.DB.DSN
	if dsn == "" {
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = cfg.DB.Host
		mc.User = cfg.DB.User
		mc.Passwd = cfg.DB.Password
		mc.DBName = cfg.DB.Name
		mc.Timeout = cfg.Timeout.Duration
		dsn = mc.FormatDSN()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.DB.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(time.Minute)

	return &Store{
		db:      db,
		query:   cfg.DB.Query,
		timeout: cfg.Timeout.Duration,
	}, nil
}

// Lookup runs the configured query with name bound as the sole parameter.
// Concurrent lookups for the same name are collapsed into one round trip.
func (s *Store) Lookup(ctx context.Context, name string) (string, error) {
	v, err, _ := s.group.Do(name, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var value string
		if err := s.db.QueryRowContext(ctx, s.query, name).Scan(&value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", errNotFound
			}
			return "", err
		}

		return value, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
