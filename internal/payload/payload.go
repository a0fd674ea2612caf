package payload

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

// videoHostMarkers is the allow-list of recognized video hosting domains.
// Links pointing anywhere else are ignored by ExtractLinks.
var videoHostMarkers = []string{"drive.google.com", "youtube"}

// schema describes the minimal shape a submission document must have to be
// processed at all. Everything below `data` is optional: missing checklist
// or review sections degrade to empty results, not errors.
const schema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "object",
			"properties": {
				"reviewChecklists": {
					"type": "object",
					"properties": {
						"interviews": {
							"type": "array",
							"items": {
								"type": "object",
								"properties": {
									"positionId": {"type": "integer"},
									"recordedVideoUrl": {"type": "string"}
								}
							}
						}
					}
				},
				"pastReviews": {"type": "array"}
			}
		}
	}
}`

// Submission is the decoded interview submission document. It is immutable
// once loaded.
type Submission struct {
	Data Data `mapstructure:"data"`
}

type Data struct {
	ReviewChecklists ReviewChecklists `mapstructure:"reviewChecklists"`
	PastReviews      []PastReview     `mapstructure:"pastReviews"`
}

type ReviewChecklists struct {
	Interviews []InterviewEntry `mapstructure:"interviews"`
}

// InterviewEntry is a single checklist item pointing at a recorded answer.
type InterviewEntry struct {
	PositionID       int    `mapstructure:"positionId"`
	RecordedVideoURL string `mapstructure:"recordedVideoUrl"`
}

// PastReview holds the prior human review data carried along with the
// submission. AssessorProfile is kept loosely typed since its shape is
// owned by the upstream review system. Decision and the project score are
// pointers so a missing key can be told apart from an explicit zero value
// when the report substitutes defaults.
type PastReview struct {
	AssessorProfile map[string]any `mapstructure:"assessorProfile"`
	Decision        *string        `mapstructure:"decision"`
	ReviewedAt      string         `mapstructure:"reviewedAt"`
	ScoresOverview  ScoresOverview `mapstructure:"scoresOverview"`
}

type ScoresOverview struct {
	Project *float64 `mapstructure:"project"`
}

// VideoLink pairs a checklist position with its recorded video URL.
type VideoLink struct {
	PositionID int
	URL        string
}

// Load reads and validates a submission document from path.
func Load(path string) (*Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse validates the raw document against the submission schema and
// decodes it into a typed Submission.
func Parse(data []byte) (*Submission, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validating payload: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, fmt.Errorf("payload does not match the submission schema: %s", strings.Join(details, "; "))
	}

	var submission Submission
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &submission,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building payload decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	return &submission, nil
}

// ExtractLinks returns the video links of the submission in ascending
// positionId order. That order establishes the canonical index used by
// every later pipeline stage. Entries whose URL does not belong to a
// recognized video host are skipped; a submission without any usable link
// yields an empty slice, not an error.
func (s *Submission) ExtractLinks() []VideoLink {
	if s == nil {
		return nil
	}

	links := make([]VideoLink, 0, len(s.Data.ReviewChecklists.Interviews))
	for _, item := range s.Data.ReviewChecklists.Interviews {
		if item.RecordedVideoURL == "" || !recognizedHost(item.RecordedVideoURL) {
			continue
		}
		links = append(links, VideoLink{PositionID: item.PositionID, URL: item.RecordedVideoURL})
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].PositionID < links[j].PositionID
	})

	return links
}

// LatestReview returns the most recent prior review record, if any.
func (s *Submission) LatestReview() (PastReview, bool) {
	if s == nil || len(s.Data.PastReviews) == 0 {
		return PastReview{}, false
	}
	return s.Data.PastReviews[0], true
}

// SortedInterviews returns the checklist entries in ascending positionId
// order, matching the canonical index of ExtractLinks.
func (s *Submission) SortedInterviews() []InterviewEntry {
	if s == nil {
		return nil
	}

	items := make([]InterviewEntry, len(s.Data.ReviewChecklists.Interviews))
	copy(items, s.Data.ReviewChecklists.Interviews)

	sort.Slice(items, func(i, j int) bool {
		return items[i].PositionID < items[j].PositionID
	})

	return items
}

func recognizedHost(url string) bool {
	for _, marker := range videoHostMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}
