package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dave817/sereniowebapp/internal/auth"
	"github.com/dave817/sereniowebapp/internal/config"
)

func main() {
	userID := flag.Int64("user", 0, "User id the token is issued for")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default TOKEN_TTL)")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: token -user <id> [-ttl 1h]")
		fmt.Fprintln(os.Stderr, "  Signs with JWT_SECRET from the environment or .env")
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.UsingDevJWT {
		fmt.Fprintln(os.Stderr, "warning: JWT_SECRET not set, signing with the development secret")
	}

	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewTokenIssuer(cfg.JWTSecret, lifetime).Issue(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("Expires: %s\n", time.Now().Add(lifetime).UTC().Format(time.RFC3339))
}
