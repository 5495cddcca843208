// Package jwt is the token codec: it signs and verifies the short-lived access
// tokens and long-lived refresh tokens handed to clients.
//
// A Manager is bound to one token Use and one key. The engine runs two of them
// with separate secrets so that leaking the access key cannot forge refresh
// tokens and vice versa. Verification is pure: it performs no I/O and reports
// every rejection as ErrInvalidToken.
package jwt
