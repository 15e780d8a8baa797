package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	list := Defaults()
	require.Len(t, list, 10)

	seen := map[string]bool{}
	for _, s := range list {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.URL)
		assert.False(t, seen[s.URL], "duplicate url %s", s.URL)
		seen[s.URL] = true
	}

	// callers get a copy
	list[0].Name = "changed"
	assert.Equal(t, "TechCrunch", Defaults()[0].Name)
}

func TestByCategory(t *testing.T) {
	list := Defaults()
	assert.Len(t, ByCategory(list, "tech"), 5)
	assert.Len(t, ByCategory(list, "BUSINESS"), 5)
	assert.Len(t, ByCategory(list, ""), 10)
	assert.Empty(t, ByCategory(list, "sports"))
}

func TestFind(t *testing.T) {
	s, ok := Find(Defaults(), "hacker news")
	require.True(t, ok)
	assert.Equal(t, "https://hnrss.org/frontpage", s.URL)

	_, ok = Find(Defaults(), "nope")
	assert.False(t, ok)
}
