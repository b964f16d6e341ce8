package seed

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sqlask/sqlask/internal/storage"
	"github.com/sqlask/sqlask/internal/store"
)

func TestRunSeedsSampleRowsIdempotently(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "factory.db")
	db := openSQLite(t, dbPath)
	seeder := NewSeeder(store.DialectSQLite, nil, nil)

	report, err := seeder.Run(context.Background(), db, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ScriptsApplied != 2 || report.DefectsInserted != 40 || report.ProductsInserted != 6 {
		t.Fatalf("first report = %+v", report)
	}

	again, err := seeder.Run(context.Background(), db, Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if again.DefectsInserted != 0 || again.ProductsInserted != 0 {
		t.Fatalf("second report = %+v", again)
	}
	if got := countRows(t, db, "defects"); got != 40 {
		t.Fatalf("defects = %d, want 40", got)
	}

	var open int
	if err := db.QueryRow(`SELECT COUNT(*) FROM defects WHERE product = 'Model-X' AND status = '開放'`).Scan(&open); err != nil {
		t.Fatalf("count open Model-X: %v", err)
	}
	if open != 2 {
		t.Fatalf("open Model-X defects = %d, want 2", open)
	}
}

func TestRunSchemaMatchesDescribedStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "factory.db")
	db := openSQLite(t, dbPath)
	if _, err := NewSeeder(store.DialectSQLite, nil, nil).Run(context.Background(), db, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s, err := store.New(store.Config{Dialect: store.DialectSQLite, DSN: dbPath})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	schema, err := s.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	text := schema.String()
	for _, want := range []string{
		"Table defects: id (INTEGER), serial_no (TEXT), product (TEXT), defect_type (TEXT), found_date (TEXT), operator (TEXT), status (TEXT)",
		"Table products: id (INTEGER), product_name (TEXT), category (TEXT), line (TEXT)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("schema %q missing %q", text, want)
		}
	}
}

func TestRunReadsLocalParquetSources(t *testing.T) {
	dir := t.TempDir()
	defectsPath := filepath.Join(dir, "defects.parquet")
	writeParquetFile(t, defectsPath, []Defect{
		{SerialNo: "QA-1", Product: "Model-Q", DefectType: "尺寸異常", FoundDate: "2025-03-01"},
		{SerialNo: "QA-2", Product: "Model-Q", DefectType: "外觀刮傷", FoundDate: "2025-03-02", Operator: "張小明", Status: "關閉"},
	})

	db := openSQLite(t, filepath.Join(dir, "factory.db"))
	report, err := NewSeeder(store.DialectSQLite, nil, nil).Run(context.Background(), db, Options{DefectsSource: defectsPath})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.DefectsRead != 2 || report.DefectsInserted != 2 || report.ProductsInserted != 6 {
		t.Fatalf("report = %+v", report)
	}

	var status string
	var operator sql.NullString
	if err := db.QueryRow(`SELECT status, operator FROM defects WHERE serial_no = 'QA-1'`).Scan(&status, &operator); err != nil {
		t.Fatalf("query QA-1: %v", err)
	}
	if status != defaultStatus || operator.Valid {
		t.Fatalf("QA-1 status/operator = %q/%v", status, operator)
	}
}

func TestRunReadsObjectStoreSource(t *testing.T) {
	data, err := EncodeParquet([]Product{{Name: "Model-Q", Category: "測試件", Line: "Q線"}})
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	objects := &fakeObjects{objects: map[string][]byte{"fixtures/products.parquet": data}}

	db := openSQLite(t, filepath.Join(t.TempDir(), "factory.db"))
	report, err := NewSeeder(store.DialectSQLite, objects, nil).Run(context.Background(), db, Options{ProductsSource: "s3://fixtures/products.parquet"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ProductsInserted != 1 || report.DefectsInserted != 40 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunRejectsObjectSourceWithoutStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = NewSeeder(store.DialectSQLite, nil, nil).Run(context.Background(), db, Options{DefectsSource: "s3://defects.parquet"})
	if err == nil || !strings.Contains(err.Error(), "object store is not configured") {
		t.Fatalf("Run() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected sql activity: %v", err)
	}
}

func TestRunRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS defects`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectPrepare(`(?s)INSERT INTO defects .*VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\) ON CONFLICT \(serial_no\) DO NOTHING`).
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = NewSeeder(store.DialectPostgres, nil, nil).Run(context.Background(), db, Options{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Run() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRunRejectsDefectWithoutSerial(t *testing.T) {
	dir := t.TempDir()
	defectsPath := filepath.Join(dir, "defects.parquet")
	writeParquetFile(t, defectsPath, []Defect{{Product: "Model-Q", DefectType: "尺寸異常", FoundDate: "2025-03-01"}})

	db := openSQLite(t, filepath.Join(dir, "factory.db"))
	_, err := NewSeeder(store.DialectSQLite, nil, nil).Run(context.Background(), db, Options{DefectsSource: defectsPath})
	if err == nil || !strings.Contains(err.Error(), "serial_no is required") {
		t.Fatalf("Run() error = %v", err)
	}
	if got := countRows(t, db, "defects"); got != 0 {
		t.Fatalf("defects = %d after failed run, want 0", got)
	}
}

func TestExportWritesLocalAndObjectTargets(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{}}
	localPath := filepath.Join(t.TempDir(), "out", "defects.parquet")

	seeder := NewSeeder(store.DialectSQLite, objects, nil)
	if err := seeder.Export(context.Background(), localPath, "s3://fixtures/products.parquet"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	defects, err := DecodeParquet[Defect](data)
	if err != nil {
		t.Fatalf("DecodeParquet() error = %v", err)
	}
	if len(defects) != 40 || defects[39] != SampleDefects()[39] {
		t.Fatalf("exported defects = %d rows, last %+v", len(defects), defects[len(defects)-1])
	}

	products, err := DecodeParquet[Product](objects.objects["fixtures/products.parquet"])
	if err != nil {
		t.Fatalf("DecodeParquet() error = %v", err)
	}
	if len(products) != 6 || products[0].Name != "Model-X" {
		t.Fatalf("exported products = %+v", products)
	}
	if objects.lastContentType != parquetContentType {
		t.Fatalf("content type = %q", objects.lastContentType)
	}
}

func TestDecodeParquetRejectsEmptyInput(t *testing.T) {
	if _, err := DecodeParquet[Defect](nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Dialect: store.DialectSQLite, DSN: path, CreateIfMissing: true})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func writeParquetFile[T any](t *testing.T, path string, rows []T) {
	t.Helper()
	data, err := EncodeParquet(rows)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

type fakeObjects struct {
	objects         map[string][]byte
	lastContentType string
}

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = data
	f.lastContentType = opts.ContentType
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
