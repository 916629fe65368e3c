package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/colligo/internal/models"
)

func TestParseAggregatesActiveFlag(t *testing.T) {
	rows := [][]string{
		{"A", "Y", "1", "https://example.com/1"},
		{"A", "N", "1", "https://example.com/2"},
		{"B", "N", "2", "https://example.com/3"},
		{"B", "n", "2", "https://example.com/4"},
	}

	cat := Parse(rows, "youtube")

	require.NotNil(t, cat.Get("A"))
	assert.True(t, cat.Get("A").Active, "any active row makes the cluster active")
	assert.False(t, cat.Get("B").Active, "all inactive rows keep the cluster inactive")
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2"}, cat.Get("A").Items)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	rows := [][]string{
		{"A", "Y", "1", "https://example.com/1"},
		{"short", "Y", "1"},                      // too few columns
		{"", "Y", "1", "https://example.com/2"},  // empty name
		{"C", "Y", "x", "https://example.com/3"}, // unparseable order
		{"D", "Y", "2", ""},                      // empty value
		{"E", "Y", "3", "https://example.com/4", "tiktok"}, // wrong platform
	}

	cat := Parse(rows, "youtube")

	assert.Equal(t, 1, cat.Len(), "only the well-formed matching row survives")
	assert.NotNil(t, cat.Get("A"))
}

func TestParsePlatformModes(t *testing.T) {
	rows := [][]string{
		{"A", "Y", "1", "https://example.com/1", "youtube"},
		{"B", "Y", "2", "https://example.com/2", "youtube_collect"},
		{"C", "Y", "3", "music podcast", "youtube_discover"},
		{"D", "Y", "4", "finance tips", "youtube_keyword"},
		{"E", "Y", "5", "https://example.com/5"}, // no platform tag
	}

	cat := Parse(rows, "youtube")

	assert.Equal(t, models.CollectByURL, cat.Get("A").Mode)
	assert.Equal(t, models.CollectByURL, cat.Get("B").Mode)
	assert.Equal(t, models.DiscoverByKeyword, cat.Get("C").Mode)
	assert.Equal(t, models.DiscoverByKeyword, cat.Get("D").Mode)
	assert.Equal(t, models.CollectByURL, cat.Get("E").Mode)
}

func TestParseFirstSeenOrderWins(t *testing.T) {
	rows := [][]string{
		{"A", "Y", "5", "https://example.com/1"},
		{"A", "Y", "1", "https://example.com/2"},
	}

	cat := Parse(rows, "")

	assert.Equal(t, 5, cat.Get("A").Order)
}

func TestActiveOrdered(t *testing.T) {
	rows := [][]string{
		{"C", "Y", "2", "https://example.com/c"},
		{"A", "Y", "1", "https://example.com/a"},
		{"B", "N", "1", "https://example.com/b"},
		{"D", "Y", "2", "https://example.com/d"},
	}

	cat := Parse(rows, "")
	ordered := cat.ActiveOrdered()

	require.Len(t, ordered, 3)
	assert.Equal(t, "A", ordered[0].Name)
	// C and D share order 2; C was encountered first
	assert.Equal(t, "C", ordered[1].Name)
	assert.Equal(t, "D", ordered[2].Name)
	assert.Less(t, ordered[1].Position, ordered[2].Position)
}

func TestParseEmpty(t *testing.T) {
	cat := Parse(nil, "youtube")
	assert.Equal(t, 0, cat.Len())
	assert.Empty(t, cat.ActiveOrdered())
}
