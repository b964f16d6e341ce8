package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/store"
)

var ErrMalformedCompletion = errors.New("malformed completion")

type SchemaSource interface {
	Describe(ctx context.Context) (store.Schema, error)
	Dialect() store.Dialect
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns a question into one SQL statement for the live schema.
type Synthesizer struct {
	Schema   SchemaSource
	Oracle   Completer
	Glossary Glossary
	Logger   *slog.Logger
}

func NewSynthesizer(schema SchemaSource, oracle Completer, glossary Glossary) *Synthesizer {
	return &Synthesizer{Schema: schema, Oracle: oracle, Glossary: glossary}
}

func (s *Synthesizer) ToSQL(ctx context.Context, question string) (string, error) {
	schema, err := s.Schema.Describe(ctx)
	if err != nil {
		return "", err
	}
	prompt := BuildPrompt(s.Schema.Dialect().EngineName(), schema.String(), s.Glossary.String(), question)

	raw, err := s.Oracle.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	sql, err := Sanitize(raw)
	if err != nil {
		s.logger().WarnContext(ctx, "malformed_completion",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("completion", raw),
		)
		return "", err
	}
	s.logger().DebugContext(ctx, "sql_synthesized",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("sql", sql),
	)
	return sql, nil
}

func BuildPrompt(engine, schema, glossary, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in %s databases.\n", engine)
	fmt.Fprintf(&b, "Using the database structure below, convert the user's question into one correct %s SQL statement.\n\n", engine)
	b.WriteString("[Database structure]\n")
	b.WriteString(schema)
	b.WriteString("\n\n")
	if strings.TrimSpace(glossary) != "" {
		b.WriteString("[Column glossary]\n")
		b.WriteString(glossary)
		b.WriteString("\n\n")
	}
	b.WriteString("[User question]\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString("[Rules]\n")
	b.WriteString("- Return only the SQL statement. No explanation and no other text.\n")
	b.WriteString("- Do not end the statement with a semicolon.\n")
	fmt.Fprintf(&b, "- Use %s syntax.\n", engine)
	b.WriteString("- Do not add LIMIT unless the user explicitly asks for a single row or the top result.\n")
	b.WriteString("- For ranking or comparison questions, return every group sorted so the caller can decide.\n")
	return b.String()
}

// Sanitize extracts the statement from a completion. Unfenced text is used as is. A
// fenced completion must open with the fence and close with a bare fence line.
func Sanitize(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if !strings.Contains(trimmed, "```") {
		if trimmed == "" {
			return "", fmt.Errorf("%w: empty statement", ErrMalformedCompletion)
		}
		return trimmed, nil
	}
	if !strings.HasPrefix(trimmed, "```") {
		return "", fmt.Errorf("%w: text outside the fenced block", ErrMalformedCompletion)
	}

	lines := strings.Split(trimmed, "\n")
	info := strings.TrimPrefix(lines[0], "```")
	if strings.Contains(info, "`") || strings.ContainsAny(strings.TrimSpace(info), " \t") {
		return "", fmt.Errorf("%w: statement on the opening fence line", ErrMalformedCompletion)
	}
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return "", fmt.Errorf("%w: missing closing fence", ErrMalformedCompletion)
	}

	statement := strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
	if strings.Contains(statement, "```") {
		return "", fmt.Errorf("%w: text outside the fenced block", ErrMalformedCompletion)
	}
	if statement == "" {
		return "", fmt.Errorf("%w: empty statement", ErrMalformedCompletion)
	}
	return statement, nil
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
