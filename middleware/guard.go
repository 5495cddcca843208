package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessionauth"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by Guard.
func IdentityFromContext(ctx context.Context) (sessionauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(sessionauth.Identity)
	return id, ok
}

// WithIdentity attaches id to ctx the way Guard does.
func WithIdentity(ctx context.Context, id sessionauth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// Guard admits requests carrying a valid access token. The token is read
// from the access cookie named in the engine's cookie policy, falling back to
// an Authorization: Bearer header for non-browser clients.
func Guard(engine *sessionauth.Engine) func(http.Handler) http.Handler {
	var (
		cookieName string
		production = true
	)
	if engine != nil {
		cfg := engine.Config()
		cookieName = cfg.Cookie.AccessName
		production = cfg.Security.ProductionMode
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, sessionauth.ErrUnauthenticated, production)
				return
			}

			id, err := engine.Authorize(r.Context(), accessToken(r, cookieName))
			if err != nil {
				WriteError(w, err, production)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func accessToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
