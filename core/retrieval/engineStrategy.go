package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// Search returns up to k results with at most one result per source.
// k <= 0 falls back to the configured top k.
func (e *Engine) Search(ctx context.Context, question string, k int) ([]*model.RetrievalResult, error) {
	if k <= 0 {
		k = e.config.TopK
	}

	snapshot, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot.Len() == 0 {
		return []*model.RetrievalResult{}, nil
	}

	query, err := e.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := snapshot.Index.Search(query, e.strategy.Depth(k, snapshot.Len()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}

	candidates := resultsFromHits(snapshot, hits)
	results := e.strategy.Apply(candidates, k)

	e.log.Debug("Searched index",
		slog.Int("k", k),
		slog.Int("hits", len(hits)),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// Retrieve searches the index and answers question from the retrieved context.
// Generation failures are reported in the answer, never as an error.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) (*model.Answer, error) {
	if k <= 0 {
		k = e.config.TopK
	}

	results, err := e.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}

	contextText, citations := BuildContext(results, k)
	answer := &model.Answer{
		Question:  question,
		Citations: citations,
		Results:   results,
		Context:   contextText,
	}

	if len(results) == 0 {
		answer.Text = model.UnknownAnswer
		return answer, nil
	}

	if e.generator == nil {
		answer.LLMError = fmt.Errorf("%w: no LLM provider is configured", model.ErrConfiguration)
		answer.Text = sentinelAnswer(answer.LLMError)
		e.log.Error("Answer generation skipped", slog.Any("error", answer.LLMError))
		return answer, nil
	}

	text, err := e.generator.Generate(ctx, SystemInstruction, BuildPrompt(question, contextText))
	if err != nil {
		answer.LLMError = err
		answer.Text = sentinelAnswer(err)
		e.log.Error("Answer generation failed", slog.Any("error", err), slog.Int("citations", len(citations)))
		return answer, nil
	}

	answer.Text = strings.TrimSpace(text)
	return answer, nil
}

func (e *Engine) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, helper.NewError("embed question", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one question", model.ErrConfiguration, len(vectors))
	}

	query := append([]float32(nil), vectors[0]...)
	index.Normalize(query)
	return query, nil
}

// resultsFromHits maps hits to records, skipping ordinals outside the snapshot.
func resultsFromHits(snapshot *index.Snapshot, hits []index.Hit) []*model.RetrievalResult {
	results := make([]*model.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if h.Ordinal < 0 || h.Ordinal >= snapshot.Len() {
			continue
		}
		results = append(results, &model.RetrievalResult{
			Record: snapshot.Records[h.Ordinal],
			Score:  float64(h.Score),
		})
	}
	return results
}
