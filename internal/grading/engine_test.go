package grading

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/interview-grader/internal/rubric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbedder maps texts to fixed vectors so similarities are fully
// controlled by the test.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := s.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = s.fallback
	}
	return out, nil
}

func entryWithLevels(id int, levels ...rubric.Level) rubric.Entry {
	return rubric.Entry{ID: id, Levels: levels}
}

func TestGradeBatchPicksBestMatchingLevel(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the answer":  {1, 0},
		"full answer": {1, 0},
		"weak answer": {0, 1},
	}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{"the answer"},
		[]rubric.Entry{entryWithLevels(1,
			rubric.Level{Score: 4, Description: "full answer"},
			rubric.Level{Score: 2, Description: "weak answer"},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].Score)
	assert.Equal(t, "full answer.", results[0].Reason)
}

func TestGradeBatchIsDeterministic(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the answer":  {0.6, 0.8},
		"full answer": {0.8, 0.6},
		"weak answer": {0.5, 0.5},
	}}

	engine := NewEngine(embedder, zap.NewNop())
	transcripts := []string{"the answer"}
	entries := []rubric.Entry{entryWithLevels(1,
		rubric.Level{Score: 4, Description: "full answer"},
		rubric.Level{Score: 2, Description: "weak answer"},
	)}

	first, err := engine.GradeBatch(context.Background(), transcripts, entries)
	require.NoError(t, err)
	second, err := engine.GradeBatch(context.Background(), transcripts, entries)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGradeBatchTieBreaksOnFirstLevel(t *testing.T) {
	// Both descriptions embed identically; the earlier level must win.
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the answer": {1, 0},
	}, fallback: []float32{1, 0}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{"the answer"},
		[]rubric.Entry{entryWithLevels(1,
			rubric.Level{Score: 3, Description: "first description"},
			rubric.Level{Score: 1, Description: "second description"},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Score)
	assert.Equal(t, "first description.", results[0].Reason)
}

func TestGradeBatchNoRubricDescriptions(t *testing.T) {
	engine := NewEngine(&stubEmbedder{}, zap.NewNop())

	results, err := engine.GradeBatch(context.Background(),
		[]string{"anything at all"},
		[]rubric.Entry{entryWithLevels(1,
			rubric.Level{Score: 4, Description: ""},
			rubric.Level{Score: 2, Description: ""},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Score)
	assert.Equal(t, "no rubric description available", results[0].Reason)
}

func TestGradeBatchIrrelevantAnswer(t *testing.T) {
	// Orthogonal-ish vectors: similarity percent stays below the
	// relevance threshold of 15.
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"off topic answer": {1, 0},
		"full answer":      {0.1, 0.995},
	}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{"off topic answer"},
		[]rubric.Entry{entryWithLevels(12,
			rubric.Level{Score: 4, Description: "full answer"},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Score)
	assert.Equal(t, "Answer 12 was found to be irrelevant to any of the rubric criteria.", results[0].Reason)
}

func TestGradeBatchTruncatesLongReason(t *testing.T) {
	longDescription := strings.Repeat("a", 150)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the answer":    {1, 0},
		longDescription: {1, 0},
	}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{"the answer"},
		[]rubric.Entry{entryWithLevels(1,
			rubric.Level{Score: 4, Description: longDescription},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, strings.Repeat("a", 100)+".", results[0].Reason)
}

func TestGradeBatchEmptyTranscript(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"":            {0, 0},
		"full answer": {1, 0},
	}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{""},
		[]rubric.Entry{entryWithLevels(3,
			rubric.Level{Score: 4, Description: "full answer"},
		)},
	)

	require.NoError(t, err)
	require.Len(t, results, 1)
	// A zero vector yields zero similarity, which lands under the
	// relevance threshold.
	assert.Equal(t, 1, results[0].Score)
}

func TestGradeBatchStopsAtRubricLength(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 0}, vectors: map[string][]float32{}}

	engine := NewEngine(embedder, zap.NewNop())
	results, err := engine.GradeBatch(context.Background(),
		[]string{"one", "two", "three"},
		[]rubric.Entry{entryWithLevels(1, rubric.Level{Score: 4, Description: "full answer"})},
	)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestGradeBatchEmbedderFailureAborts(t *testing.T) {
	engine := NewEngine(&stubEmbedder{err: errors.New("quota exceeded")}, zap.NewNop())

	_, err := engine.GradeBatch(context.Background(),
		[]string{"the answer"},
		[]rubric.Entry{entryWithLevels(1, rubric.Level{Score: 4, Description: "full answer"})},
	)

	require.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
