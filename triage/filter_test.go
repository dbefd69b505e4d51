package triage_test

import (
	"testing"

	"deps-triage/triage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	cat := newEngine().Catalog

	for _, id := range []string{"high-risk", "stale", "few-contributors", "popular"} {
		def, err := cat.Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, id, def.ID)
		assert.NotEmpty(t, def.Label)
		assert.NotNil(t, def.Predicate)
	}

	_, err := cat.Lookup("abandoned")
	assert.ErrorIs(t, err, triage.ErrUnknownFilter)
	assert.Contains(t, err.Error(), "abandoned")
}

func TestCatalogDefinitionsIsCopy(t *testing.T) {
	cat := newEngine().Catalog
	defs := cat.Definitions()
	require.Len(t, defs, 4)
	defs[0].ID = "mutated"

	_, err := cat.Lookup("high-risk")
	assert.NoError(t, err)
	assert.Equal(t, "high-risk", cat.Definitions()[0].ID)
}

func TestCompose(t *testing.T) {
	cat := newEngine().Catalog
	lp, ax := leftPad(), axios()

	tests := []struct {
		name   string
		search string
		ids    []string
		want   map[string]bool
	}{
		{
			name: "no search no filters passes everything",
			want: map[string]bool{"left-pad": true, "axios": true},
		},
		{
			name: "and of two filters",
			ids:  []string{"high-risk", "few-contributors"},
			want: map[string]bool{"left-pad": true, "axios": false},
		},
		{
			name: "duplicates collapse",
			ids:  []string{"popular", "popular"},
			want: map[string]bool{"left-pad": true, "axios": true},
		},
		{
			name:   "search is case insensitive",
			search: "LEFT",
			want:   map[string]bool{"left-pad": true, "axios": false},
		},
		{
			name:   "search and filter",
			search: "xio",
			ids:    []string{"high-risk"},
			want:   map[string]bool{"left-pad": false, "axios": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := cat.Compose(tt.search, tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want["left-pad"], pred(lp))
			assert.Equal(t, tt.want["axios"], pred(ax))
		})
	}
}

func TestComposeUnknownFilterFailsClosed(t *testing.T) {
	cat := newEngine().Catalog
	pred, err := cat.Compose("", []string{"popular", "nope"})
	assert.ErrorIs(t, err, triage.ErrUnknownFilter)
	assert.Nil(t, pred)
}

func TestSearchMatcherFoldsUnicode(t *testing.T) {
	match := triage.SearchMatcher("STRASSE")
	assert.True(t, match(&triage.DependencyRecord{Name: "straße-utils"}))
}
