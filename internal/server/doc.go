// Package server provides HTTP routing, middleware, and the REST handlers
// for the music backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally; route
// patterns use ServeMux method prefixes and path wildcards.
//
// # Handlers
//
// Each resource group implements the [Handler] interface, which wraps the
// stdlib handler interface and adds routes, allowing handlers to register
// multiple routes and encapsulate route definitions within the
// implementation:
//
//   - [SongHandler]: song CRUD plus catalog track search under /api/song
//   - [PlaylistHandler]: playlist CRUD, song membership, catalog import, and
//     lazy song enrichment under /api/playlist
//   - [UserHandler]: profiles and library management under /api/user
//   - [AuthHandler]: signup, login, and logout under /api/auth
//
// # Sessions
//
// Authentication uses a signed JWT in an http-only cookie. Handlers validate
// the cookie per route; list and read routes are public, mutations require a
// session, and destructive account operations require the admin flag.
package server
