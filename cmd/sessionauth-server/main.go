// Command sessionauth-server serves the cookie-based register, login,
// refresh, logout and me endpoints on top of a sessionauth Engine.
//
// Configuration comes from the environment; see config.go. With no Redis
// address and STORE_DRIVER unset it runs against an embedded miniredis, which
// is fine for local development and nothing else.
package main

import (
	"log"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
