package seed

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/sqlask/sqlask/internal/store"
)

func TestLoadScriptsSortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/sqlite/000002_two.sql": {Data: []byte("SELECT 2")},
		"sql/sqlite/000001_one.sql": {Data: []byte("SELECT 1")},
		"sql/sqlite/README.md":      {Data: []byte("ignored")},
		"sql/duckdb/000001_one.sql": {Data: []byte("SELECT 'other dialect'")},
	}

	items, err := loadScripts(fsys, store.DialectSQLite)
	if err != nil {
		t.Fatalf("loadScripts() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected script order: %+v", items)
	}
}

func TestLoadScriptsRejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/sqlite/000001_one.sql":   {Data: []byte("SELECT 1")},
		"sql/sqlite/000001_again.sql": {Data: []byte("SELECT 1")},
	}
	_, err := loadScripts(fsys, store.DialectSQLite)
	if err == nil || !strings.Contains(err.Error(), "share version 1") {
		t.Fatalf("loadScripts() error = %v", err)
	}
}

func TestLoadScriptsRejectsEmptyScript(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/sqlite/000001_one.sql": {Data: []byte("  \n")},
	}
	if _, err := loadScripts(fsys, store.DialectSQLite); err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestEmbeddedScriptsExistForEveryDialect(t *testing.T) {
	for _, dialect := range []store.Dialect{store.DialectSQLite, store.DialectDuckDB, store.DialectPostgres} {
		items, err := loadScripts(embeddedFS, dialect)
		if err != nil {
			t.Fatalf("loadScripts(%s) error = %v", dialect, err)
		}
		var joined strings.Builder
		for _, item := range items {
			joined.WriteString(item.SQL)
		}
		for _, table := range []string{"defects", "products"} {
			if !strings.Contains(joined.String(), "CREATE TABLE IF NOT EXISTS "+table) {
				t.Fatalf("%s scripts do not create %s", dialect, table)
			}
		}
	}
}
