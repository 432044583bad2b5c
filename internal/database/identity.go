package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrStoreConnection indicates the identity store could not be reached during startup.
var ErrStoreConnection = errors.New("identity store connection failed")

// IdentityStoreOptions describes how to reach the identity store.
type IdentityStoreOptions struct {
	Driver         string
	URL            string
	Database       string
	ConnectTimeout time.Duration
}

// OpenIdentityStore builds a gorm handle for the identity store and verifies it with a bounded ping.
// The handle is returned even when the ping fails so the caller can keep serving with a degraded store.
func OpenIdentityStore(ctx context.Context, opts IdentityStoreOptions) (*gorm.DB, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("identity store url must not be empty")
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite":
		dialector = sqlite.Open(opts.URL)
	case "", "postgres":
		dialector = postgres.Open(WithDatabaseName(opts.URL, opts.Database))
	default:
		return nil, fmt.Errorf("unsupported identity store driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing: true,
		TranslateError:       true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreConnection, err)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := Ping(pingCtx, db); err != nil {
		return db, err
	}

	return db, nil
}

// Ping checks that the underlying connection pool can reach the store.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrStoreConnection
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreConnection, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreConnection, err)
	}
	return nil
}

// Close releases the pool behind a gorm handle.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithDatabaseName points a postgres DSN at the named database. URL DSNs get their path replaced;
// keyword/value DSNs get a dbname entry unless they already carry one.
func WithDatabaseName(dsn, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		parsed.Path = "/" + name
		return parsed.String()
	}

	for _, field := range strings.Fields(dsn) {
		if strings.HasPrefix(field, "dbname=") {
			return dsn
		}
	}
	return strings.TrimSpace(dsn + " dbname=" + name)
}
