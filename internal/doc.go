// Package internal provides the core types and implementation of the social
// login extension.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/social" instead, which re-exports the public API.
//
// # Core Types
//
//   - Extension: the mounted http.Handler serving the login, connect and
//     unlink flows, plus helpers the host application calls directly
//   - Context: request/response access, the server session and flash messages
//   - HandlerFunc, Middleware, ErrorHandler: the handler chain of every route
//   - Authenticator: bridges the flows to the host application's login state
//   - Config: settings loaded from SOCIAL_ environment variables
//
// # Routes
//
// With an empty URL prefix the extension serves:
//
//	POST   /login/{provider}                        start login
//	GET    /login/{provider}                        login callback
//	POST   /connect/{provider}                      start connect (login required)
//	GET    /connect/{provider}                      connect callback (login required)
//	POST   /reconnect/{provider}                    log out and restart login
//	DELETE /connect/{provider}                      remove every connection to provider
//	DELETE /connect/{provider}/{provider_user_id}   remove one connection
//
// HTML forms reach the DELETE routes with a _method form field or a
// __METHOD__ query parameter.
//
// # Context as context.Context
//
// Context embeds context.Context, so handlers pass it straight to the
// connection datastore and provider clients:
//
//	conn, err := store.FindConnection(c, connection.Filter{ProviderID: p.ID()})
//
// # Units of Work
//
// Each request that touches connections runs inside one datastore unit.
// The unit commits right before the response is written and rolls back when
// the handler fails first, so a redirect is never sent for an uncommitted
// change.
//
// # Sessions
//
// The authorization state, PKCE verifier and post-flow redirect targets live
// in a server-side session referenced by a signed cookie. Sessions are
// created lazily on the first write and saved before the response goes out.
//
// # Error Handling
//
// Handlers return errors. HTTPError carries a status code and a safe message;
// anything else is reported as 500. The default ErrorHandler logs the error
// and writes the status text.
package internal
