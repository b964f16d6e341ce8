package seed

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sqlask/sqlask/internal/store"
)

//go:embed sql/*/*.sql
var embeddedFS embed.FS

var scriptNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.sql$`)

type script struct {
	Version int64
	Name    string
	SQL     string
}

// loadScripts returns the DDL scripts for one dialect in version order.
// Every script holds a single idempotent statement.
func loadScripts(fsys fs.FS, dialect store.Dialect) ([]script, error) {
	dir := path.Join("sql", string(dialect))
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s scripts: %w", dialect, err)
	}

	seen := map[int64]string{}
	scripts := make([]script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := scriptNamePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse script version for %q: %w", entry.Name(), err)
		}
		if other, ok := seen[version]; ok {
			return nil, fmt.Errorf("scripts %q and %q share version %d", other, entry.Name(), version)
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read script %q: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, fmt.Errorf("script %q is empty", entry.Name())
		}
		scripts = append(scripts, script{Version: version, Name: entry.Name(), SQL: string(body)})
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no %s scripts found", dialect)
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

func applyScripts(ctx context.Context, db *sql.DB, scripts []script) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range scripts {
		if _, err := tx.ExecContext(ctx, item.SQL); err != nil {
			return fmt.Errorf("apply script %s: %w", item.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scripts: %w", err)
	}
	return nil
}
