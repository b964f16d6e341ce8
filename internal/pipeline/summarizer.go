package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/store"
)

// NoDataAnswer is returned for an empty result without consulting the oracle. It is
// written in DefaultAnswerLanguage.
const NoDataAnswer = "查詢結果為空，沒有符合條件的資料。"

// NoDataAnswerEnglish replaces NoDataAnswer when the answer language is English.
const NoDataAnswerEnglish = "The query returned no rows; no records match the question."

const DefaultAnswerLanguage = "Traditional Chinese"

type Summarizer struct {
	Oracle   nl2sql.Completer
	Language string
}

func NewSummarizer(oracle nl2sql.Completer, language string) *Summarizer {
	return &Summarizer{Oracle: oracle, Language: language}
}

func (s *Summarizer) Summarize(ctx context.Context, question string, result store.Result) (string, error) {
	if len(result) == 0 {
		return s.noDataAnswer(), nil
	}
	prompt, err := s.Prompt(question, result)
	if err != nil {
		return "", err
	}
	answer, err := s.Oracle.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (s *Summarizer) noDataAnswer() string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s.Language)), "english") {
		return NoDataAnswerEnglish
	}
	return NoDataAnswer
}

func (s *Summarizer) Prompt(question string, result store.Result) (string, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result for summary: %w", err)
	}
	language := strings.TrimSpace(s.Language)
	if language == "" {
		language = DefaultAnswerLanguage
	}
	return fmt.Sprintf(
		"The user asked: \"%s\"\nThe query returned these rows (JSON):\n%s\n\n"+
			"Answer the user's question briefly and clearly in %s.\n"+
			"Do not show SQL; explain the result directly from the data. "+
			"If the rows contain an \"error\" field, say the query could not be run.\n",
		question, string(encoded), language,
	), nil
}
