package seed

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlask/sqlask/internal/storage"
	"github.com/sqlask/sqlask/internal/store"
)

// Options selects replacement inputs. An empty source keeps the built-in sample rows.
type Options struct {
	DefectsSource  string
	ProductsSource string
}

type Report struct {
	ScriptsApplied   int   `json:"scripts_applied"`
	DefectsRead      int   `json:"defects_read"`
	DefectsInserted  int64 `json:"defects_inserted"`
	ProductsRead     int   `json:"products_read"`
	ProductsInserted int64 `json:"products_inserted"`
}

// Seeder creates the practice tables and fills them. Re-running it is safe:
// tables are created only when missing and rows whose unique key already exists are skipped.
type Seeder struct {
	Dialect store.Dialect
	// Objects resolves "s3://" sources and targets; nil rejects them.
	Objects storage.ObjectStore
	Logger  *slog.Logger

	scripts fs.FS
}

func NewSeeder(dialect store.Dialect, objects storage.ObjectStore, logger *slog.Logger) *Seeder {
	return &Seeder{Dialect: dialect, Objects: objects, Logger: logger, scripts: embeddedFS}
}

func (s *Seeder) Run(ctx context.Context, db *sql.DB, opts Options) (Report, error) {
	var report Report

	scripts, err := loadScripts(s.scriptFS(), s.Dialect)
	if err != nil {
		return report, err
	}
	defects := SampleDefects()
	if strings.TrimSpace(opts.DefectsSource) != "" {
		if defects, err = readSource[Defect](ctx, s.Objects, opts.DefectsSource); err != nil {
			return report, fmt.Errorf("load defects: %w", err)
		}
	}
	products := SampleProducts()
	if strings.TrimSpace(opts.ProductsSource) != "" {
		if products, err = readSource[Product](ctx, s.Objects, opts.ProductsSource); err != nil {
			return report, fmt.Errorf("load products: %w", err)
		}
	}
	report.DefectsRead = len(defects)
	report.ProductsRead = len(products)

	if err := applyScripts(ctx, db, scripts); err != nil {
		return report, err
	}
	report.ScriptsApplied = len(scripts)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if report.DefectsInserted, err = s.insertDefects(ctx, tx, defects); err != nil {
		return report, err
	}
	if report.ProductsInserted, err = s.insertProducts(ctx, tx, products); err != nil {
		return report, err
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit seed rows: %w", err)
	}

	s.logger().InfoContext(ctx, "seed_completed",
		slog.String("dialect", string(s.Dialect)),
		slog.Int("scripts_applied", report.ScriptsApplied),
		slog.Int64("defects_inserted", report.DefectsInserted),
		slog.Int64("products_inserted", report.ProductsInserted),
	)
	return report, nil
}

// Export writes the built-in sample rows as parquet files, which makes a
// starting point for replacement inputs. An empty target is skipped.
func (s *Seeder) Export(ctx context.Context, defectsTarget, productsTarget string) error {
	if strings.TrimSpace(defectsTarget) != "" {
		if err := writeTarget(ctx, s.Objects, defectsTarget, SampleDefects()); err != nil {
			return fmt.Errorf("export defects: %w", err)
		}
	}
	if strings.TrimSpace(productsTarget) != "" {
		if err := writeTarget(ctx, s.Objects, productsTarget, SampleProducts()); err != nil {
			return fmt.Errorf("export products: %w", err)
		}
	}
	return nil
}

func (s *Seeder) insertDefects(ctx context.Context, tx *sql.Tx, defects []Defect) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO defects (serial_no, product, defect_type, found_date, operator, status)
VALUES (%s) ON CONFLICT (serial_no) DO NOTHING`, s.placeholders(6))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare defect insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for i, item := range defects {
		if err := item.validate(); err != nil {
			return inserted, fmt.Errorf("defect %d: %w", i, err)
		}
		status := item.Status
		if strings.TrimSpace(status) == "" {
			status = defaultStatus
		}
		result, err := stmt.ExecContext(ctx, item.SerialNo, item.Product, item.DefectType, item.FoundDate, nullable(item.Operator), status)
		if err != nil {
			return inserted, fmt.Errorf("insert defect %q: %w", item.SerialNo, err)
		}
		inserted += rowsAffected(result)
	}
	return inserted, nil
}

func (s *Seeder) insertProducts(ctx context.Context, tx *sql.Tx, products []Product) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO products (product_name, category, line)
VALUES (%s) ON CONFLICT (product_name) DO NOTHING`, s.placeholders(3))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare product insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for i, item := range products {
		if strings.TrimSpace(item.Name) == "" {
			return inserted, fmt.Errorf("product %d: product_name is required", i)
		}
		result, err := stmt.ExecContext(ctx, item.Name, nullable(item.Category), nullable(item.Line))
		if err != nil {
			return inserted, fmt.Errorf("insert product %q: %w", item.Name, err)
		}
		inserted += rowsAffected(result)
	}
	return inserted, nil
}

func (d Defect) validate() error {
	switch {
	case strings.TrimSpace(d.SerialNo) == "":
		return fmt.Errorf("serial_no is required")
	case strings.TrimSpace(d.Product) == "":
		return fmt.Errorf("product is required")
	case strings.TrimSpace(d.DefectType) == "":
		return fmt.Errorf("defect_type is required")
	case strings.TrimSpace(d.FoundDate) == "":
		return fmt.Errorf("found_date is required")
	}
	return nil
}

func (s *Seeder) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = s.Dialect.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

func (s *Seeder) scriptFS() fs.FS {
	if s.scripts == nil {
		return embeddedFS
	}
	return s.scripts
}

func (s *Seeder) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func readSource[T any](ctx context.Context, objects storage.ObjectStore, raw string) ([]T, error) {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	var data []byte
	if loc.Remote {
		if objects == nil {
			return nil, fmt.Errorf("%s: object store is not configured", loc)
		}
		body, err := objects.Get(ctx, loc.Key)
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()
		if data, err = io.ReadAll(body); err != nil {
			return nil, fmt.Errorf("read %s: %w", loc, err)
		}
	} else {
		if data, err = os.ReadFile(loc.Path); err != nil {
			return nil, fmt.Errorf("read %s: %w", loc, err)
		}
	}
	rows, err := DecodeParquet[T](data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	return rows, nil
}

func writeTarget[T any](ctx context.Context, objects storage.ObjectStore, raw string, rows []T) error {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return err
	}
	data, err := EncodeParquet(rows)
	if err != nil {
		return err
	}
	if !loc.Remote {
		if dir := filepath.Dir(loc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(loc.Path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", loc, err)
		}
		return nil
	}
	if objects == nil {
		return fmt.Errorf("%s: object store is not configured", loc)
	}
	if _, err := objects.Put(ctx, loc.Key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType}); err != nil {
		return err
	}
	return nil
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func rowsAffected(result sql.Result) int64 {
	n, err := result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
