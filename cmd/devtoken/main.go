// Command devtoken prints a bearer token for local testing of the
// reservation API.  The secret is read from JWT_SECRET (or .env).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "customer subject to embed in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *sub == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -sub <id> [-ttl 1h]")
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(secret, *sub, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
