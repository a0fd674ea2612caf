package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/interview-grader/internal/grading"
	"github.com/spigell/interview-grader/internal/media"
	"github.com/spigell/interview-grader/internal/payload"
	"github.com/spigell/interview-grader/internal/report"
	"github.com/spigell/interview-grader/internal/rubric"

	"go.uber.org/zap"
)

// ErrNoVideoLinks means the submission carries no link to a recognized
// video host. This is a user-facing validation error, not a system fault.
var ErrNoVideoLinks = errors.New("submission contains no supported video links")

// Splitter demuxes the linked recordings into per-index artifact pairs.
type Splitter interface {
	Split(ctx context.Context, links []payload.VideoLink) []media.Pair
}

// Transcriber turns per-index audio paths into per-index transcripts.
type Transcriber interface {
	TranscribeBatch(ctx context.Context, audioPaths []string) []string
}

// Grader scores per-index transcripts against the rubric.
type Grader interface {
	GradeBatch(ctx context.Context, transcripts []string, entries []rubric.Entry) ([]grading.Result, error)
}

// Pipeline runs the assessment stages in order. Every stage consumes a
// collection aligned by the canonical index and produces one of equal
// length; per-item failures surface as sentinels (empty paths, empty
// transcripts) and never shift other indices.
type Pipeline struct {
	splitter    Splitter
	transcriber Transcriber
	grader      Grader
	logger      *zap.Logger
}

func New(splitter Splitter, transcriber Transcriber, grader Grader, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		splitter:    splitter,
		transcriber: transcriber,
		grader:      grader,
		logger:      logger,
	}
}

// Run processes the submission end to end and returns the final report.
func (p *Pipeline) Run(ctx context.Context, submission *payload.Submission, entries []rubric.Entry) (*report.Final, error) {
	links := submission.ExtractLinks()
	if len(links) == 0 {
		return nil, ErrNoVideoLinks
	}

	p.logStage("extract_links", len(links), 0)

	pairs := p.splitter.Split(ctx, links)
	if len(pairs) != len(links) {
		return nil, fmt.Errorf("media splitter broke index alignment: %d pairs for %d links", len(pairs), len(links))
	}

	audioPaths := make([]string, len(pairs))
	failed := 0
	for i, pair := range pairs {
		audioPaths[i] = pair.AudioPath
		if pair.AudioPath == "" {
			failed++
		}
	}

	p.logStage("media_split", len(pairs), failed)

	transcripts := p.transcriber.TranscribeBatch(ctx, audioPaths)
	if len(transcripts) != len(audioPaths) {
		return nil, fmt.Errorf("transcription broke index alignment: %d transcripts for %d audio files", len(transcripts), len(audioPaths))
	}

	failed = 0
	for _, t := range transcripts {
		if t == "" {
			failed++
		}
	}

	p.logStage("transcription", len(transcripts), failed)

	results, err := p.grader.GradeBatch(ctx, transcripts, entries)
	if err != nil {
		return nil, fmt.Errorf("grading: %w", err)
	}

	p.logStage("grading", len(results), 0)

	return report.Build(submission, transcripts, results), nil
}

func (p *Pipeline) logStage(name string, items, failed int) {
	p.logger.Info("pipeline stage",
		zap.String("name", name),
		zap.Int("items", items),
		zap.Int("failed", failed),
	)
}
