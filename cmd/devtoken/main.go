package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/roadside-assist-api/internal/repository"
	"github.com/noah-isme/roadside-assist-api/internal/service"
	"github.com/noah-isme/roadside-assist-api/pkg/config"
	"github.com/noah-isme/roadside-assist-api/pkg/database"
	"github.com/noah-isme/roadside-assist-api/pkg/logger"
)

// devtoken signs an access token for an existing active user. Authentication flows are owned by the
// identity service; this exists for local testing and operator scripts.
func main() {
	userID := flag.String("user", "", "user id to issue the token for")
	email := flag.String("email", "", "email of the user to issue the token for")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()
	if (*userID == "") == (*email == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -user or -email is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}
	auth := service.NewAuthService(repository.NewUserRepository(db), logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: expiry,
	})
	var (
		token     string
		expiresAt time.Time
	)
	if *email != "" {
		token, expiresAt, err = auth.IssueTokenForEmail(ctx, *email)
	} else {
		token, expiresAt, err = auth.IssueToken(ctx, *userID)
	}
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
}
