package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/store"
)

type Outcome struct {
	Question string       `json:"question"`
	SQL      string       `json:"sql"`
	Result   store.Result `json:"result"`
	Count    int          `json:"count"`
	Answer   string       `json:"answer"`
}

type Translator interface {
	ToSQL(ctx context.Context, question string) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, statement string) (store.Result, error)
}

type Answerer interface {
	Summarize(ctx context.Context, question string, result store.Result) (string, error)
}

// Pipeline runs question -> SQL -> rows -> answer for one request.
type Pipeline struct {
	Translator Translator
	Executor   Executor
	Answerer   Answerer
	Logger     *slog.Logger
}

func New(translator Translator, executor Executor, answerer Answerer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{Translator: translator, Executor: executor, Answerer: answerer, Logger: logger}
}

func (p *Pipeline) Translate(ctx context.Context, question string) (outcome Outcome, err error) {
	start := time.Now()
	traceID := observability.TraceIDFromContext(ctx)
	defer func() {
		result := observability.OutcomeOK
		if err != nil {
			result = observability.OutcomeError
		}
		observability.ObserveTranslation(result, time.Since(start))
	}()

	p.Logger.InfoContext(ctx, "translate_question", slog.String("trace_id", traceID), slog.String("question", question))

	sql, err := p.Translator.ToSQL(ctx, question)
	if err != nil {
		return Outcome{}, err
	}
	p.Logger.InfoContext(ctx, "translate_sql", slog.String("trace_id", traceID), slog.String("sql", sql))

	result, err := p.Executor.Execute(ctx, sql)
	if err != nil {
		return Outcome{}, err
	}
	p.Logger.InfoContext(ctx, "translate_result",
		slog.String("trace_id", traceID),
		slog.Int("rows", len(result)),
		slog.Bool("failed", result.Failed()),
	)

	answer, err := p.Answerer.Summarize(ctx, question, result)
	if err != nil {
		return Outcome{}, err
	}
	p.Logger.InfoContext(ctx, "translate_answer", slog.String("trace_id", traceID), slog.Int("answer_chars", len([]rune(answer))))

	return Outcome{
		Question: question,
		SQL:      sql,
		Result:   result,
		Count:    len(result),
		Answer:   answer,
	}, nil
}
