// Package db connects to PostgreSQL and applies the schema used by the
// PostgreSQL connection and session stores.
//
// # Configuration
//
// [Config] is loaded from environment variables:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: social_schema_migrations)
//
// # Usage
//
//	var cfg db.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := db.MigrateSchema(ctx, pool, logger); err != nil {
//		log.Fatal(err)
//	}
//
// [MigrateSchema] creates the social_connections and social_sessions tables.
// Hosts that manage their own migrations can copy the files returned by
// [Schema] or run [Migrate] with their own file system.
package db
