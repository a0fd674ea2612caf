package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spigell/interview-grader/internal/grading"
	"github.com/spigell/interview-grader/internal/payload"
)

const (
	// maxQuestionScore is the fixed per-question maximum of the rubric.
	maxQuestionScore = 4

	projectWeight   = 0.7
	interviewWeight = 0.3

	defaultDecision     = "Need Human"
	defaultProjectScore = 100

	strongNote       = "Candidate demonstrates strong understanding."
	basicNote        = "Candidate shows basic understanding."
	insufficientNote = "Candidate answers are insufficient."
)

// QuestionScore is a single entry of the per-question detail list.
type QuestionScore struct {
	ID             int    `json:"id"`
	Score          int    `json:"score"`
	Reason         string `json:"reason"`
	Transcriptions string `json:"transcriptions"`
}

type ScoresOverview struct {
	Project   float64 `json:"project"`
	Interview float64 `json:"interview"`
	Total     float64 `json:"total"`
}

type InterviewResults struct {
	MinScore int             `json:"minScore"`
	MaxScore int             `json:"maxScore"`
	Scores   []QuestionScore `json:"scores"`
}

type ChecklistResult struct {
	Project    []any            `json:"project"`
	Interviews InterviewResults `json:"interviews"`
}

// Final is the graded assessment report. It is computed once per
// invocation and never mutated afterwards.
type Final struct {
	AssessorProfile       map[string]any  `json:"assessorProfile"`
	Decision              string          `json:"decision"`
	ReviewedAt            string          `json:"reviewedAt"`
	ScoresOverview        ScoresOverview  `json:"scoresOverview"`
	ReviewChecklistResult ChecklistResult `json:"reviewChecklistResult"`
	OverallNotes          string          `json:"Overall notes"`
}

// Build combines the prior-review data of the submission with the grading
// results into the final weighted report. It performs no I/O and tolerates
// a missing or malformed review section by substituting defaults.
func Build(submission *payload.Submission, transcripts []string, results []grading.Result) *Final {
	assessor := map[string]any{}
	decision := defaultDecision
	reviewedAt := ""
	projectScore := float64(defaultProjectScore)

	if review, ok := submission.LatestReview(); ok {
		if review.AssessorProfile != nil {
			assessor = review.AssessorProfile
		}
		// Defaults apply only when a key is absent; an explicit empty
		// decision or zero project score is kept as written.
		if review.Decision != nil {
			decision = *review.Decision
		}
		reviewedAt = review.ReviewedAt
		if review.ScoresOverview.Project != nil {
			projectScore = *review.ScoresOverview.Project
		}
	}

	var sum int
	for _, result := range results {
		sum += result.Score
	}

	var interview, average float64
	if len(results) > 0 {
		interview = float64(sum) / float64(maxQuestionScore*len(results)) * 100
		average = float64(sum) / float64(len(results))
	}

	total := projectWeight*projectScore + interviewWeight*interview

	notes := fmt.Sprintf("Average Score: %.1f. ", average)
	switch {
	case average >= 3.0:
		notes += strongNote
	case average >= 2.0:
		notes += basicNote
	default:
		notes += insufficientNote
	}

	interviews := submission.SortedInterviews()

	scores := make([]QuestionScore, 0, len(results))
	for i, result := range results {
		// Fall back to a sequential id when the checklist is shorter than
		// the score list.
		id := i + 1
		if i < len(interviews) {
			id = interviews[i].PositionID
		}

		transcript := ""
		if i < len(transcripts) {
			transcript = transcripts[i]
		}

		scores = append(scores, QuestionScore{
			ID:             id,
			Score:          result.Score,
			Reason:         result.Reason,
			Transcriptions: transcript,
		})
	}

	return &Final{
		AssessorProfile: assessor,
		Decision:        decision,
		ReviewedAt:      reviewedAt,
		ScoresOverview: ScoresOverview{
			Project:   projectScore,
			Interview: round1(interview),
			Total:     round1(total),
		},
		ReviewChecklistResult: ChecklistResult{
			Project: []any{},
			Interviews: InterviewResults{
				MinScore: 0,
				MaxScore: maxQuestionScore,
				Scores:   scores,
			},
		},
		OverallNotes: notes,
	}
}

// WriteFile writes the report as pretty-printed JSON, the format offered
// for download.
func (f *Final) WriteFile(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report to %q: %w", path, err)
	}

	return nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
