// token-gen mints HS256 access tokens for local testing of the clinic API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pawdesk/pawdesk/libs/auth"
)

func main() {
	var (
		sub    = flag.String("sub", getenv("TOKEN_SUB", "1"), "user id (token subject)")
		role   = flag.String("role", getenv("TOKEN_ROLE", "client"), "role: client|doctor|admin")
		secret = flag.String("secret", getenv("JWT_SECRET", ""), "signing secret")
		ttl    = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  *sub,
		Role: *role,
		Iat:  now.Unix(),
		Exp:  now.Add(*ttl).Unix(),
	}, *secret)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(token)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "token-gen: "+msg)
	os.Exit(1)
}
