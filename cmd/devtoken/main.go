// Command devtoken prints a signed bearer token for local testing against
// a ledger that shares its JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	userID := flag.Int64("user", 1, "user_id claim")
	role := flag.String("role", string(auth.RoleClient), "role claim: admin, teller, customer_service or client")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	r := auth.Role(*role)
	if !r.Valid() {
		slog.Error("unknown role", "role", *role)
		os.Exit(2)
	}

	token, err := auth.NewJWTAuthorizer(cfg.JWTSecret).Sign(auth.Identity{UserID: *userID, Role: r}, fmt.Sprintf("user-%d", *userID), *ttl)
	if err != nil {
		slog.Error("failed to sign token", "error", err.Error())
		os.Exit(1)
	}
	fmt.Println(token)
}
