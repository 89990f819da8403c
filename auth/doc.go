// Package auth verifies session tokens and guards routes by identity and role.
//
// Tokens are HMAC-signed JWTs issued by the sign-in flow, which lives outside
// this service. They are read from the Authorization header or from the
// session cookie. The first authenticated request of a user provisions the
// user record; from then on the stored role is authoritative, so role changes
// apply without re-issuing tokens.
package auth
