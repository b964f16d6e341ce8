package api

import (
	"net/http"
	"strings"

	"github.com/sqlask/sqlask/internal/store"
)

type questionRequest struct {
	Question string `json:"question"`
}

type runSQLRequest struct {
	SQL string `json:"sql"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	outcome, err := deps.Pipeline.Translate(r.Context(), question)
	if err != nil {
		writeCoreError(deps, w, r, err)
		return
	}
	if outcome.Result == nil {
		outcome.Result = store.Result{}
	}
	writeJSON(w, http.StatusOK, outcome)
}

func handleGenerateSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATE_NOT_CONFIGURED", "sql generation is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	sql, err := deps.Generator.ToSQL(r.Context(), question)
	if err != nil {
		writeCoreError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question": question,
		"sql":      sql,
	})
}

func handleRunSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RUN_SQL_NOT_CONFIGURED", "sql execution is not configured", false, nil)
		return
	}
	var req runSQLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid run-sql request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Runner.Execute(r.Context(), req.SQL)
	if err != nil {
		writeCoreError(deps, w, r, err)
		return
	}
	if result == nil {
		result = store.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sql":    req.SQL,
		"result": result,
		"count":  len(result),
	})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema reader is not configured", false, nil)
		return
	}
	schema, err := deps.Schema.Describe(r.Context())
	if err != nil {
		writeCoreError(deps, w, r, err)
		return
	}
	tables := schema.Tables
	if tables == nil {
		tables = []store.Table{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables": tables,
		"text":   schema.String(),
	})
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	return req.Question, true
}
