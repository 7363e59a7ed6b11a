// Package social adds OAuth social login and account linking to a Go web
// application.
//
// A user can sign in with a third-party provider (Twitter, Facebook, Google,
// GitHub, LinkedIn, Foursquare, VK or any configured OAuth2 provider) and
// link or unlink provider accounts to an existing local account. The host
// application keeps its own user model; the extension stores only the
// Connection records that tie a local user id to a provider account.
//
// # Quick Start
//
//	pool, err := db.Connect(ctx, dbCfg)
//	if err != nil {
//	    return err
//	}
//	if err := db.MigrateSchema(ctx, pool, log); err != nil {
//	    return err
//	}
//
//	ext, err := social.New(
//	    social.WithLogger(log),
//	    social.WithDatastore(connection.NewPostgresDatastore(pool)),
//	    social.WithSessionStore(session.NewPostgresStore(pool)),
//	    social.WithMiddleware(middlewares.Recover(), middlewares.RequestID()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", ext)
//
// # Providers
//
// Providers are configured from the environment. A provider is enabled by
// setting its consumer key and secret:
//
//	SOCIAL_GITHUB_CONSUMER_KEY=...
//	SOCIAL_GITHUB_CONSUMER_SECRET=...
//	SOCIAL_GITHUB_SCOPES=read:user,user:email
//
// Ids that are not bundled providers are built as custom OAuth2 providers
// and need SOCIAL_<ID>_AUTHORIZE_URL, _ACCESS_TOKEN_URL and _PROFILE_URL.
// SOCIAL_PROVIDERS_FILE points at an optional YAML file with the same
// fields; environment values win.
//
// # Flows
//
// Login and connect forms POST to /login/{provider} and /connect/{provider};
// the provider redirects back with a GET to the same path. Unlinking uses
// DELETE /connect/{provider}[/{provider_user_id}], reachable from HTML forms
// with a _method field. Each outcome is reported as an Event to the
// configured notifiers and, unless disabled, as a flash message the host
// reads with Extension.Flashes.
//
// # Backends
//
// Connections live in PostgreSQL, MongoDB, Redis or memory
// (pkg/connection). Sessions live in PostgreSQL, Redis or memory
// (pkg/session). Events can be delivered asynchronously through River
// (pkg/job), which also schedules the removal of expired sessions.
package social
