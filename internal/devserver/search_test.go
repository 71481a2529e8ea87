package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "cafe ole", fold("  Café   Olé "))
	assert.Equal(t, "", fold("   "))
}

func TestLeagueIndex_Search(t *testing.T) {
	index, err := NewLeagueIndex()
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.IndexAll([]domain.League{
		{ID: "L1", Name: "Flat Four", Description: "upstairs"},
		{ID: "L2", Name: "Château Chores", Description: "the big house"},
		{ID: "L3", Name: "Garden Gang", Description: "weeding and mowing"},
	}))

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"exact word", "flat", "L1"},
		{"accent folded", "chateau", "L2"},
		{"prefix", "gard", "L3"},
		{"typo", "gardan", "L3"},
		{"description", "mowing", "L3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := index.Search(tt.query)
			require.NoError(t, err)
			require.NotEmpty(t, ids)
			assert.Equal(t, tt.want, ids[0])
		})
	}
}

func TestLeagueIndex_BlankQuery(t *testing.T) {
	index, err := NewLeagueIndex()
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.Index(domain.League{ID: "L1", Name: "Flat"}))

	ids, err := index.Search("  ")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
