package sessionauth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/refresh"
)

func exampleEngine() *sessionauth.Engine {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshPrivateKey = []byte(strings.Repeat("r", 32))

	engine, err := sessionauth.New().
		WithConfig(cfg).
		WithRefreshStore(refresh.NewMemoryStore(cfg.Store.Retention, time.Now)).
		WithIdentityProvider(sessionauth.IdentityProviderFunc(
			func(_ context.Context, id string) (sessionauth.Identity, error) {
				return sessionauth.Identity{SubjectID: id, Role: "user"}, nil
			},
		)).
		Build()
	if err != nil {
		panic(err)
	}
	return engine
}

func ExampleEngine_Refresh() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	pair, _ := engine.Issue(ctx, sessionauth.Identity{SubjectID: "u1", Role: "user"})

	rotated, err := engine.Refresh(ctx, pair.RefreshToken)
	fmt.Println(err == nil, rotated.RefreshToken != pair.RefreshToken)

	// The presented token is retired by the rotation.
	_, err = engine.Refresh(ctx, pair.RefreshToken)
	fmt.Println(errors.Is(err, sessionauth.ErrRevokedToken), sessionauth.HTTPStatus(err))
	// Output:
	// true true
	// true 403
}

func ExampleEngine_Authorize() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	pair, _ := engine.Issue(ctx, sessionauth.Identity{SubjectID: "u1", Role: "admin"})
	ident, err := engine.Authorize(ctx, pair.AccessToken)
	fmt.Println(ident.SubjectID, ident.Role, err)

	_, err = engine.Authorize(ctx, "")
	fmt.Println(sessionauth.HTTPStatus(err))
	// Output:
	// u1 admin <nil>
	// 401
}
