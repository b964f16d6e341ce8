package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/seed"
	"github.com/sqlask/sqlask/internal/storage"
	s3store "github.com/sqlask/sqlask/internal/storage/s3"
	"github.com/sqlask/sqlask/internal/store"
)

func main() {
	defects := flag.String("defects", "", "parquet source for defects rows (local path or s3://key); empty uses the built-in sample")
	products := flag.String("products", "", "parquet source for products rows (local path or s3://key); empty uses the built-in sample")
	exportDefects := flag.String("export-defects", "", "write the built-in defects sample to this parquet target and exit")
	exportProducts := flag.String("export-products", "", "write the built-in products sample to this parquet target and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall seed timeout")
	flag.Parse()

	cfg, err := config.LoadFromEnv("sqlask-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireStore(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dialect, err := store.ParseDialect(cfg.Store.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var objects storage.ObjectStore
	if usesObjectStore(*defects, *products, *exportDefects, *exportProducts) {
		objectStore, err := s3store.New(s3store.FromConfig(cfg.ObjectStore))
		if err != nil {
			fmt.Fprintf(os.Stderr, "object store error: %v\n", err)
			os.Exit(1)
		}
		objects = objectStore
	}
	seeder := seed.NewSeeder(dialect, objects, logger)

	if *exportDefects != "" || *exportProducts != "" {
		if err := seeder.Export(ctx, *exportDefects, *exportProducts); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("exported built-in sample data")
		return
	}

	if dialect != store.DialectPostgres {
		if dir := filepath.Dir(cfg.Store.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "create data dir: %v\n", err)
				os.Exit(1)
			}
		}
	}
	relational, err := store.New(store.Config{
		Dialect:         dialect,
		DSN:             cfg.Store.DSN,
		ConnectTimeout:  cfg.Store.ConnectTimeout,
		CreateIfMissing: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		os.Exit(1)
	}

	var report seed.Report
	err = relational.WithConn(ctx, func(db *sql.DB) error {
		var runErr error
		report, runErr = seeder.Run(ctx, db, seed.Options{DefectsSource: *defects, ProductsSource: *products})
		return runErr
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %s store at %s: %d/%d defects and %d/%d products inserted\n",
		dialect.EngineName(), cfg.Store.DSN,
		report.DefectsInserted, report.DefectsRead,
		report.ProductsInserted, report.ProductsRead,
	)
}

func usesObjectStore(locations ...string) bool {
	for _, location := range locations {
		if strings.HasPrefix(strings.TrimSpace(location), "s3://") {
			return true
		}
	}
	return false
}
