// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via
//     the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content
//     and clears the cookie.
//   - POST /users: self-service signup, open to unauthenticated callers.
//     GET /users lists accounts (admin only); GET /users/{id} returns a
//     profile to its owner or an admin. Payloads use the `userDTO` defined in
//     user_handler.go.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room catalogue endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Listing and lookup are available to
//     any authenticated principal while mutations require admin privileges.
//     DELETE deactivates the room rather than removing it.
//   - POST /bookings: creates a booking; the room is auto-assigned unless the
//     request names a preferred room. GET /bookings lists bookings across
//     users (admins unrestricted, others must scope by room or date).
//     GET /bookings/my lists the caller's bookings with an optional
//     range=all|upcoming|past query. GET/PATCH/DELETE /bookings/{id} fetch,
//     reschedule, and cancel a single booking. Payloads use the `bookingDTO`
//     defined in booking_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
