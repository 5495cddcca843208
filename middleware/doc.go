// Package middleware adapts sessionauth.Engine to net/http.
//
// [Guard] reads the access token from the access cookie (or a Bearer
// header), calls Engine.Authorize, and injects the identity into the request
// context. [RateLimit] throttles auth endpoints per client.
//
// This package translates HTTP semantics into Engine calls. It does not parse
// tokens or touch the refresh store itself.
package middleware
