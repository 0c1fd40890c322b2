package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"farmtable/internal/config"
	"farmtable/internal/db"
	"farmtable/internal/importer"
	"farmtable/internal/repository/product"
	"farmtable/internal/repository/profile"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to produce CSV (seller_email,key,name,description,price_cents,unit)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), profile.NewPostgres(pool, logger))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d products: %v", count, err)
	}

	logger.Printf("imported %d products in %s", count, time.Since(start).Truncate(time.Millisecond))
}
