package cli

import (
	"context"
	"database/sql"
	"time"
)

// OpenDB opens and pings the configured database. Drivers must be registered
// by the caller.
func OpenDB(ctx context.Context, cfg *Config) (*sql.DB, error) {
	driver, err := cfg.SQLDriver()
	if err != nil {
		return nil, ConfigError("database", err)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, ConfigError("database", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, DBConnectError("opening database", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, DBConnectError("connecting to database", err)
	}
	return db, nil
}
