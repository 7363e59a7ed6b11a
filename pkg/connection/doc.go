// Package connection persists links between local user accounts and
// third-party identity provider accounts.
//
// A [Connection] records which provider account (provider id plus the
// provider-assigned user id) belongs to which local user, together with the
// OAuth credentials and a normalized profile snapshot.
//
// # Unit of work
//
// Callers obtain a request-scoped [Store] from a [Datastore]:
//
//	store, err := ds.Begin(ctx)
//	if err != nil {
//	    return err
//	}
//	defer store.Rollback(ctx)
//
//	conn, err := store.FindConnection(ctx, connection.Filter{
//	    ProviderID:     "twitter",
//	    ProviderUserID: "1234",
//	})
//	if errors.Is(err, connection.ErrNotFound) {
//	    // no account linked to this identity
//	}
//
//	return store.Commit(ctx)
//
// The PostgreSQL backend runs every operation of a unit inside one lazily
// started transaction. The MongoDB, Redis and in-memory backends write
// immediately; Commit and Rollback are no-ops for them.
//
// # Uniqueness
//
// A provider identity (provider id plus provider user id) can be linked to
// at most one local account. Every backend enforces this at the storage
// layer and reports a violation as [ErrDuplicate].
//
// # Backends
//
//   - [NewMemoryDatastore]: in-process maps, for tests and development
//   - [NewPostgresDatastore]: pgx pool, table social_connections
//   - [NewMongoDatastore]: MongoDB collection social_connections
//   - [NewRedisDatastore]: JSON records with set indexes
package connection
