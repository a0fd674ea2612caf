package grading

import (
	"context"
	"fmt"
	"math"

	"github.com/spigell/interview-grader/internal/logger"
	"github.com/spigell/interview-grader/internal/rubric"

	"go.uber.org/zap"
)

const (
	// relevanceThreshold is the minimum similarity percentage below which
	// an answer is treated as off-topic regardless of rubric match.
	relevanceThreshold = 15.0

	reasonExcerptLimit = 100

	noRubricScore   = 0
	irrelevantScore = 1

	defaultMaxLogLength = 200
)

// Embedder turns texts into fixed-length vectors. The same embedder
// instance must be used for transcripts and rubric descriptions within one
// grading run to keep similarity comparisons meaningful.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is the grade for a single answer.
type Result struct {
	Score  int
	Reason string
}

// Engine grades transcripts against rubric entries by embedding both into
// a shared vector space and scoring with cosine similarity.
type Engine struct {
	embedder  Embedder
	logger    *zap.Logger
	maxLogLen int
}

func NewEngine(embedder Embedder, log *zap.Logger) *Engine {
	return &Engine{
		embedder:  embedder,
		logger:    log,
		maxLogLen: defaultMaxLogLength,
	}
}

// GradeBatch grades transcripts in canonical index order, stopping when
// the rubric list is exhausted. Grading is deterministic: the same
// transcript and rubric texts always yield the same result. Unlike the
// acquisition stages, an embedding failure aborts the batch since every
// remaining grade would depend on the same broken service.
func (e *Engine) GradeBatch(ctx context.Context, transcripts []string, entries []rubric.Entry) ([]Result, error) {
	results := make([]Result, 0, len(transcripts))

	for i, transcript := range transcripts {
		if i >= len(entries) {
			break
		}

		result, err := e.grade(ctx, transcript, entries[i])
		if err != nil {
			return nil, fmt.Errorf("grading answer %d: %w", entries[i].ID, err)
		}

		e.logger.Info("answer graded",
			zap.Int("rubric_id", entries[i].ID),
			zap.Int("score", result.Score),
		)

		results = append(results, result)
	}

	return results, nil
}

func (e *Engine) grade(ctx context.Context, transcript string, entry rubric.Entry) (Result, error) {
	levels := entry.UsableLevels()
	if len(levels) == 0 {
		return Result{Score: noRubricScore, Reason: "no rubric description available"}, nil
	}

	e.logger.Debug("grading transcript",
		zap.Int("rubric_id", entry.ID),
		zap.Int("levels", len(levels)),
		zap.String("transcript_preview", logger.TruncateForLog(transcript, e.maxLogLen)),
	)

	// An empty transcript is embedded like any other text; it just tends
	// to score poorly.
	answerVecs, err := e.embedder.Embed(ctx, []string{transcript})
	if err != nil {
		return Result{}, fmt.Errorf("embedding transcript: %w", err)
	}
	if len(answerVecs) != 1 {
		return Result{}, fmt.Errorf("expected 1 transcript embedding, got %d", len(answerVecs))
	}

	descriptions := make([]string, len(levels))
	for i, level := range levels {
		descriptions[i] = level.Description
	}

	descVecs, err := e.embedder.Embed(ctx, descriptions)
	if err != nil {
		return Result{}, fmt.Errorf("embedding rubric descriptions: %w", err)
	}
	if len(descVecs) != len(descriptions) {
		return Result{}, fmt.Errorf("expected %d description embeddings, got %d", len(descriptions), len(descVecs))
	}

	// Stable argmax: the first maximum wins, so ties resolve to the level
	// listed earliest in the rubric.
	best := 0
	bestSim := cosineSimilarity(answerVecs[0], descVecs[0])
	for i := 1; i < len(descVecs); i++ {
		if sim := cosineSimilarity(answerVecs[0], descVecs[i]); sim > bestSim {
			best = i
			bestSim = sim
		}
	}

	similarityPercent := bestSim * 100

	e.logger.Debug("best rubric match",
		zap.Int("rubric_id", entry.ID),
		zap.Int("matched_level", levels[best].Score),
		zap.Float64("similarity_percent", similarityPercent),
	)

	if similarityPercent < relevanceThreshold {
		return Result{
			Score:  irrelevantScore,
			Reason: fmt.Sprintf("Answer %d was found to be irrelevant to any of the rubric criteria.", entry.ID),
		}, nil
	}

	return Result{
		Score:  levels[best].Score,
		Reason: excerpt(levels[best].Description) + ".",
	}, nil
}

// excerpt truncates a matched description to the reason length limit.
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= reasonExcerptLimit {
		return s
	}
	return string(runes[:reasonExcerptLimit])
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero-norm vectors yield 0 rather than NaN.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
