package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode() *Node {
	return &Node{
		ID:          "node-1",
		URL:         "http://10.0.0.1:5555/wd/hub",
		Tags:        []string{"x", "y"},
		MaxSessions: 6,
	}
}

func TestMatches(t *testing.T) {
	node := testNode()

	t.Run("nil requirement matches every node", func(t *testing.T) {
		assert.True(t, Matches(node, nil))
		assert.True(t, Matches(&Node{}, nil))
	})

	t.Run("leaf equality", func(t *testing.T) {
		assert.True(t, Matches(node, IDIs("node-1")))
		assert.False(t, Matches(node, IDIs("node-2")))
		assert.True(t, Matches(node, URLIs("http://10.0.0.1:5555/wd/hub")))
		assert.False(t, Matches(node, URLIs("http://10.0.0.2:5555/wd/hub")))
	})

	t.Run("tag membership", func(t *testing.T) {
		assert.True(t, Matches(node, TagIs("x")))
		assert.True(t, Matches(node, TagIs("y")))
		assert.False(t, Matches(node, TagIs("z")))
	})

	t.Run("empty combinators", func(t *testing.T) {
		assert.True(t, Matches(node, And{}))
		assert.False(t, Matches(node, Or{}))
	})

	t.Run("and requires every sub-requirement", func(t *testing.T) {
		assert.True(t, Matches(node, And{TagIs("x"), TagIs("y")}))
		assert.False(t, Matches(node, And{TagIs("x"), TagIs("z")}))
	})

	t.Run("or requires any sub-requirement", func(t *testing.T) {
		assert.True(t, Matches(node, Or{TagIs("x"), TagIs("z")}))
		assert.False(t, Matches(node, Or{TagIs("z"), TagIs("w")}))
	})

	t.Run("double negation", func(t *testing.T) {
		for _, req := range []Requirement{TagIs("x"), TagIs("z"), IDIs("node-1"), And{}, Or{}} {
			assert.Equal(t, Matches(node, req), Matches(node, Not{Sub: Not{Sub: req}}))
		}
	})

	t.Run("nested tree", func(t *testing.T) {
		req := And{
			Or{TagIs("z"), TagIs("x")},
			Not{Sub: TagIs("w")},
			URLIs("http://10.0.0.1:5555/wd/hub"),
		}
		assert.True(t, Matches(node, req))
	})
}

func TestParseRequirement(t *testing.T) {
	node := testNode()

	t.Run("empty and null yield nil", func(t *testing.T) {
		for _, raw := range []string{"", "null", "  "} {
			req, err := ParseRequirement(json.RawMessage(raw))
			require.NoError(t, err)
			assert.Nil(t, req)
		}
	})

	t.Run("leaves", func(t *testing.T) {
		req, err := ParseRequirement(json.RawMessage(`["tag", "x"]`))
		require.NoError(t, err)
		assert.Equal(t, TagIs("x"), req)

		req, err = ParseRequirement(json.RawMessage(`["id", "node-1"]`))
		require.NoError(t, err)
		assert.Equal(t, IDIs("node-1"), req)

		req, err = ParseRequirement(json.RawMessage(`["url", "http://10.0.0.1:5555/wd/hub"]`))
		require.NoError(t, err)
		assert.Equal(t, URLIs("http://10.0.0.1:5555/wd/hub"), req)
	})

	t.Run("combinators", func(t *testing.T) {
		req, err := ParseRequirement(json.RawMessage(`["and", [["tag","x"], ["not", ["tag","z"]]]]`))
		require.NoError(t, err)
		assert.True(t, Matches(node, req))

		req, err = ParseRequirement(json.RawMessage(`["or", [["tag","z"], ["tag","w"]]]`))
		require.NoError(t, err)
		assert.False(t, Matches(node, req))

		req, err = ParseRequirement(json.RawMessage(`["and", []]`))
		require.NoError(t, err)
		assert.True(t, Matches(node, req))
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, raw := range []string{
			`["tag"]`,
			`["tag", "x", "y"]`,
			`["frobnicate", "x"]`,
			`{"tag": "x"}`,
			`["and", ["tag","x"]]`,
			`["tag", 42]`,
		} {
			_, err := ParseRequirement(json.RawMessage(raw))
			assert.Error(t, err, "input %s", raw)
		}
	})
}

func TestHasTag(t *testing.T) {
	node := testNode()
	assert.True(t, node.HasTag("x"))
	assert.False(t, node.HasTag("z"))
	assert.False(t, (&Node{}).HasTag("x"))
}
