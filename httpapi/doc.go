// Package httpapi exposes the cookie-based auth endpoints:
//
//	POST /api/auth/register
//	POST /api/auth/login
//	POST /api/auth/refresh
//	POST /api/auth/logout
//	GET  /api/auth/me
//
// Tokens travel only in HttpOnly cookies; response bodies never carry them.
package httpapi
