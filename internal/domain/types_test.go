package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNameListDecoding(t *testing.T) {
	t.Run("plain strings", func(t *testing.T) {
		var a Agent
		err := json.Unmarshal([]byte(`{"id":"a1","tools":["search","calc"]}`), &a)
		require.NoError(t, err)
		assert.Equal(t, NameList{"search", "calc"}, a.Tools)
	})

	t.Run("objects with name field", func(t *testing.T) {
		var a Agent
		err := json.Unmarshal([]byte(`{"id":"a1","tools":[{"name":"search"},"calc",{"id":"t9"},{}]}`), &a)
		require.NoError(t, err)
		assert.Equal(t, NameList{"search", "calc", "t9"}, a.Tools)
	})

	t.Run("single string", func(t *testing.T) {
		var l NameList
		require.NoError(t, json.Unmarshal([]byte(`"search"`), &l))
		assert.Equal(t, NameList{"search"}, l)
	})

	t.Run("missing field stays empty", func(t *testing.T) {
		var a Agent
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a1"}`), &a))
		assert.Empty(t, a.Tools)
		assert.Nil(t, a.Performance)
	})

	t.Run("yaml mixed list", func(t *testing.T) {
		src := `
id: a1
name: planner
tools:
  - search
  - name: calc
`
		var a Agent
		require.NoError(t, yaml.Unmarshal([]byte(src), &a))
		assert.Equal(t, NameList{"search", "calc"}, a.Tools)
	})
}

func TestResultKey(t *testing.T) {
	assert.Equal(t, "t1", ResultKey("", "t1"))
	assert.Equal(t, "t1", ResultKey("  ", "t1"))
	assert.Equal(t, "s1-t1", ResultKey("s1", "t1"))

	tc := TestCase{ID: "t1", SessionID: "s1"}
	assert.Equal(t, "s1-t1", tc.Key())
	r := TestResult{TestID: "t1"}
	assert.Equal(t, "t1", r.Key())
}

func TestTestStatusFailed(t *testing.T) {
	assert.True(t, TestStatusFailed.Failed())
	assert.True(t, TestStatusError.Failed())
	assert.False(t, TestStatusWarning.Failed())
	assert.False(t, TestStatusPassed.Failed())
}

func TestToolKeyAndDisplayName(t *testing.T) {
	assert.Equal(t, "t1", Tool{ID: "t1", Name: "search"}.Key())
	assert.Equal(t, "search", Tool{Name: "search"}.Key())
	assert.Equal(t, "a1", Agent{ID: "a1"}.DisplayName())
	assert.Equal(t, "Planner", Agent{ID: "a1", Name: "Planner"}.DisplayName())
}
