// Command token issues a bearer token for an existing rider id, for use
// with curl against a running server.
package main

import (
	"flag"
	"fmt"
	"os"

	"olago/internal/config"
	"olago/internal/identity"
)

func main() {
	riderID := flag.String("rider", "", "rider id to issue a token for")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer).Issue(*riderID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
