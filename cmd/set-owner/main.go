package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cottagebook/internal/auth"
	"cottagebook/pkg/database"
)

// Creates or rotates the single owner credential. Rotating bumps the token
// version, so every outstanding session token stops working.
func main() {
	var (
		username = flag.String("username", "", "owner username")
		password = flag.String("password", "", "owner password (8-72 chars)")
	)
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}
	if len(*password) < 8 || len(*password) > 72 {
		log.Fatal("password must be 8-72 chars")
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := auth.NewRepo(db)
	if err := repo.SetCredential(ctx, *username, string(hash)); err != nil {
		log.Fatalf("set owner failed: %v", err)
	}

	log.Printf("owner credential set for %q", *username)
}
