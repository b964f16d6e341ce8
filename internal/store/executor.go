package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sqlask/sqlask/internal/observability"
)

const (
	ErrorKey = "error"
	SQLKey   = "sql"
)

type Row map[string]any

// Result is the materialized output of one statement. A failed execution is a single
// descriptor row holding ErrorKey and SQLKey.
type Result []Row

func ErrorResult(statement string, err error) Result {
	return Result{{ErrorKey: err.Error(), SQLKey: statement}}
}

func (r Result) Failed() bool {
	if len(r) != 1 || len(r[0]) != 2 {
		return false
	}
	_, hasError := r[0][ErrorKey]
	_, hasSQL := r[0][SQLKey]
	return hasError && hasSQL
}

// Execute runs statement on a fresh connection. Statement failures (query, scan,
// iterate) are folded into the result as a descriptor row. A connection that cannot
// be opened is returned as an error wrapping ErrUnavailable.
func (s *Store) Execute(ctx context.Context, statement string) (Result, error) {
	var (
		result  Result
		execErr error
	)
	if err := s.WithConn(ctx, func(db *sql.DB) error {
		result, execErr = query(ctx, db, statement)
		return nil
	}); err != nil {
		observability.ObserveSQLExecution(observability.OutcomeError)
		return nil, err
	}
	if execErr != nil {
		observability.ObserveSQLExecution(observability.OutcomeError)
		s.logger().WarnContext(ctx, "sql_execution_failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("sql", statement),
			slog.String("error", execErr.Error()),
		)
		return ErrorResult(statement, execErr), nil
	}
	observability.ObserveSQLExecution(observability.OutcomeOK)
	return result, nil
}

func query(ctx context.Context, db *sql.DB, statement string) (Result, error) {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := make(Result, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func normalizeValue(value any) any {
	if typed, ok := value.([]byte); ok {
		return string(typed)
	}
	return value
}
