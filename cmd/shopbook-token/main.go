// Command shopbook-token mints bearer tokens for local development and
// bootstrapping the first admin account.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"shopbook/backend/internal/auth"
	"shopbook/backend/internal/config"
	"shopbook/backend/internal/domain"
)

func main() {
	defaults, err := config.LoadAuth()
	if err != nil {
		fatal(err.Error())
	}

	var (
		userID = flag.String("user-id", "", "user id to issue the token for")
		email  = flag.String("email", "", "email claim")
		role   = flag.String("role", string(domain.RoleCustomer), "customer or admin")
		ttl    = flag.Duration("ttl", defaults.TokenTTL, "token lifetime (SHOPBOOK_AUTH_TOKEN_TTL)")
		secret = flag.String("secret", defaults.JWTSecret, "HS256 signing secret (SHOPBOOK_AUTH_JWT_SECRET or JWT_SECRET)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}
	if strings.TrimSpace(*userID) == "" {
		fatal("-user-id is required")
	}

	r := domain.Role(strings.ToLower(strings.TrimSpace(*role)))
	if r != domain.RoleCustomer && r != domain.RoleAdmin {
		fatal(fmt.Sprintf("unknown role %q", *role))
	}

	token, err := auth.Sign(domain.Caller{
		ID:    strings.TrimSpace(*userID),
		Email: strings.TrimSpace(*email),
		Role:  r,
	}, *secret, *ttl, time.Now().UTC())
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(token)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
