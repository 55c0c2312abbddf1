package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/issue-tally/internal/domain"
)

func TestBarRenderer_Render(t *testing.T) {
	ranking := []domain.TallyEntry{
		{Rank: 1, Login: "alice", Count: 7},
		{Rank: 2, Login: "bob", Count: 3},
	}
	var buf bytes.Buffer

	require.NoError(t, NewBarRenderer().Render(&buf, "Closed issues in osrf/ros2_test_cases (jazzy)", ranking))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Closed issues in osrf/ros2_test_cases (jazzy)")
	assert.Contains(t, html, "alice")
	assert.Contains(t, html, "bob")
	assert.Contains(t, html, "2 contributors")
}

func TestBarRenderer_RenderEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewBarRenderer().Render(&buf, "empty", nil))

	assert.Contains(t, buf.String(), "0 contributors")
}
