package rubric

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPreservesLevelOrder(t *testing.T) {
	data := []byte(`[{
		"id": 7,
		"rubric": {
			"4": "excellent answer",
			"3": "good answer",
			"2": "weak answer",
			"1": "poor answer"
		}
	}]`)

	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, 7, entry.ID)
	require.Len(t, entry.Levels, 4)

	// Order must match the document, not numeric order of the keys.
	assert.Equal(t, []Level{
		{Score: 4, Description: "excellent answer"},
		{Score: 3, Description: "good answer"},
		{Score: 2, Description: "weak answer"},
		{Score: 1, Description: "poor answer"},
	}, entry.Levels)
}

func TestUsableLevelsSkipsEmptyDescriptions(t *testing.T) {
	data := []byte(`{
		"id": 1,
		"rubric": {
			"4": "full answer",
			"3": "",
			"2": null,
			"1": "poor answer"
		}
	}`)

	var entry Entry
	require.NoError(t, json.Unmarshal(data, &entry))
	require.Len(t, entry.Levels, 4)

	usable := entry.UsableLevels()
	require.Len(t, usable, 2)
	assert.Equal(t, 4, usable[0].Score)
	assert.Equal(t, 1, usable[1].Score)
}

func TestUnmarshalNullRubric(t *testing.T) {
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(`{"id": 2, "rubric": null}`), &entry))
	assert.Empty(t, entry.Levels)
	assert.Empty(t, entry.UsableLevels())
}

func TestUnmarshalRejectsNonIntegerLevel(t *testing.T) {
	var entry Entry
	err := json.Unmarshal([]byte(`{"id": 3, "rubric": {"high": "great"}}`), &entry)
	require.Error(t, err)
}

func TestUnmarshalRejectsNonObjectRubric(t *testing.T) {
	var entry Entry
	err := json.Unmarshal([]byte(`{"id": 4, "rubric": ["a"]}`), &entry)
	require.Error(t, err)
}
