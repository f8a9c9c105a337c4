package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"asset-inventory-api/internal/schema"
	"asset-inventory-api/pkg/importer"
)

func main() {
	var (
		kind      = flag.String("kind", "", "Import kind, e.g. assets or asset-types")
		file      = flag.String("file", "", "Path to the CSV file")
		mapping   = flag.String("mapping", "", "Optional YAML header mapping file")
		maxErrors = flag.Int("max-errors", importer.DefaultMaxErrors, "Cap on reported row errors")
	)
	flag.Parse()

	if *kind == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ent, ok := schema.ByKind(*kind)
	if !ok {
		kinds := ""
		for _, e := range schema.All() {
			kinds += " " + e.Kind
		}
		log.Fatalf("Unknown kind %q, available:%s", *kind, kinds)
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}
	defer pool.Close()

	opts := importer.Options{MaxErrors: *maxErrors}
	if *mapping != "" {
		mf, err := os.Open(*mapping)
		if err != nil {
			log.Fatal("Failed to open mapping file:", err)
		}
		m, err := importer.LoadMapping(mf)
		mf.Close()
		if err != nil {
			log.Fatal("Failed to parse mapping file:", err)
		}
		opts.Aliases = m.Aliases(ent.Kind)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal("Failed to open CSV file:", err)
	}
	defer f.Close()

	result, err := importer.Run(ctx, pool, ent, f, opts)
	if err != nil {
		log.Fatalf("Import aborted, nothing committed: %v", err)
	}

	fmt.Printf("Imported %s: accepted=%d skipped=%d\n", ent.Kind, result.Accepted, result.Skipped)
	for _, msg := range result.Errors {
		fmt.Println("  -", msg)
	}
}
