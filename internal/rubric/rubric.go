package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Level is one scoring level of a rubric entry: an integer score paired
// with a description of what an answer at that level looks like.
type Level struct {
	Score       int
	Description string
}

// Entry is the rubric for a single interview question. Levels keep the
// order in which they appear in the rubric document; that order drives the
// tie-break when two levels score the same similarity.
type Entry struct {
	ID     int
	Levels []Level
}

// Load reads a rubric document from path. The document is a JSON array of
// entries, index-aligned with the interview questions.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rubric file %q: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing rubric file %q: %w", path, err)
	}

	return entries, nil
}

// UnmarshalJSON decodes an entry while preserving the written order of the
// rubric levels. encoding/json exposes objects as unordered maps, so the
// level mapping is walked token by token instead.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID     int             `json:"id"`
		Rubric json.RawMessage `json:"rubric"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.ID = aux.ID
	e.Levels = nil

	if len(aux.Rubric) == 0 || bytes.Equal(bytes.TrimSpace(aux.Rubric), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(aux.Rubric))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("rubric entry %d: levels must be an object, got %v", e.ID, tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("rubric entry %d: unexpected key token %v", e.ID, keyTok)
		}

		score, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("rubric entry %d: score level %q is not an integer", e.ID, key)
		}

		var description *string
		if err := dec.Decode(&description); err != nil {
			return fmt.Errorf("rubric entry %d: level %d description: %w", e.ID, score, err)
		}

		level := Level{Score: score}
		if description != nil {
			level.Description = *description
		}

		e.Levels = append(e.Levels, level)
	}

	return nil
}

// UsableLevels returns the levels with a non-empty description, keeping
// their original order.
func (e Entry) UsableLevels() []Level {
	usable := make([]Level, 0, len(e.Levels))
	for _, level := range e.Levels {
		if level.Description != "" {
			usable = append(usable, level)
		}
	}
	return usable
}
