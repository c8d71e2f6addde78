// Package session manages the authentication session lifecycle for the
// RadPanel admin console: credential persistence, login/logout/refresh
// orchestration, bearer attachment on outbound API calls, and role or
// permission gated routing.
//
// Session lifecycle:
//   - A Controller is constructed once per application start and is the only
//     writer of session state. It walks a small phase machine (bootstrapping,
//     anonymous, authenticating, authenticated, refreshing) and keeps the
//     credential store consistent through every transition.
//   - The Gateway attaches the current access token to every outbound request
//     and owns the 401 -> refresh -> retry contract. Concurrent 401s coalesce
//     onto a single in-flight refresh so rotated refresh tokens are never
//     raced.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Controller to
//     describe login, logout, refresh, bootstrap, and profile events. Sinks
//     run best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
//   - Notifier is the user-facing counterpart: transient, non-blocking
//     notifications such as "signed in" or "session expired".
package session
