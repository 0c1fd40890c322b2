package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"farmtable/internal/auth"
	"farmtable/internal/config"
	"farmtable/internal/db"
	"farmtable/internal/domain"
	"farmtable/internal/repository/product"
	"farmtable/internal/repository/profile"
	"farmtable/internal/seed"
)

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev tokens")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	profiles, err := seed.Apply(ctx, profile.NewPostgres(pool, logger), product.NewPostgres(pool, logger))
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	for _, p := range profiles {
		tok, err := tokens.Issue(domain.Identity{UserID: p.ID, Role: p.Role}, *tokenTTL)
		if err != nil {
			logger.Fatalf("issue token for %s: %v", p.Email, err)
		}
		logger.Printf("%s %s id=%s token=%s", p.Role, p.Email, p.ID, tok)
	}

	logger.Println("seed applied")
}
