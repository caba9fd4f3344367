package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLists() []KeywordList {
	return []KeywordList{
		{Name: "demo_consolidated", Keywords: []string{"restricted holdings", "flagged"}},
		{Name: "demo_watch", Keywords: []string{"shadow trade"}},
	}
}

func TestSanctionsNoMatch(t *testing.T) {
	a := NewSanctionsAdapter(testLists())

	out, err := a.Verify(context.Background(), Identifier{DisplayName: "Ordinary Logistics GmbH"})
	require.NoError(t, err)
	assert.Equal(t, StatusValid, out.Status)
	assert.Empty(t, out.MatchedLists)
}

func TestSanctionsMatchIsCaseInsensitiveSubstring(t *testing.T) {
	a := NewSanctionsAdapter(testLists())

	out, err := a.Verify(context.Background(), Identifier{DisplayName: "RESTRICTED Holdings International Ltd"})
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, []string{"demo_consolidated"}, out.MatchedLists)
}

func TestSanctionsMatchesMultipleLists(t *testing.T) {
	a := NewSanctionsAdapter(testLists())

	out, err := a.Verify(context.Background(), Identifier{DisplayName: "Flagged Shadow Trade Partners"})
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, []string{"demo_consolidated", "demo_watch"}, out.MatchedLists)
}

func TestSanctionsListsAreHotSwappable(t *testing.T) {
	a := NewSanctionsAdapter(testLists())

	out, _ := a.Verify(context.Background(), Identifier{DisplayName: "Newly Listed Corp"})
	assert.Equal(t, StatusValid, out.Status)

	a.UpdateLists([]KeywordList{{Name: "fresh", Keywords: []string{"newly listed"}}})

	out, _ = a.Verify(context.Background(), Identifier{DisplayName: "Newly Listed Corp"})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, []string{"fresh"}, out.MatchedLists)
}

func TestSanctionsEmptyKeywordsNeverMatch(t *testing.T) {
	a := NewSanctionsAdapter([]KeywordList{{Name: "sloppy", Keywords: []string{"  ", ""}}})

	out, _ := a.Verify(context.Background(), Identifier{DisplayName: "Anyone At All"})
	assert.Equal(t, StatusValid, out.Status)
}
