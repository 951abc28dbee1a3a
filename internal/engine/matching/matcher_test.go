package matching

import (
	"testing"

	"quote-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(vendor string, descriptions ...string) []Item {
	out := make([]Item, len(descriptions))
	for i, d := range descriptions {
		out[i] = Item{Vendor: vendor, Index: i, Description: d}
	}
	return out
}

func constant(score float64) SimilarityFunc {
	return func(a, b string) float64 { return score }
}

// ==========================
// Normalization
// ==========================

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"The Widget, 24-Pack (Blue)", []string{"widget", "blue"}},
		{"ＷＩＤＧＥＴ ｂｌｕｅ", []string{"widget", "blue"}},
		{"M8 bolts, box of 100", []string{"m8", "bolts"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.in))
		})
	}
}

// ==========================
// Similarity
// ==========================

func TestTokenSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"office chair ergonomic", "ergonomic office chair"},
		{"copy paper a4", "a4 copy paper 80gsm"},
		{"stapler", "staples"},
		{"widget", "widget blue"},
		{"", "widget"},
	}
	for _, p := range pairs {
		assert.Equal(t, TokenSimilarity(p[0], p[1]), TokenSimilarity(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestTokenSimilarity_Ranges(t *testing.T) {
	assert.Equal(t, 1.0, TokenSimilarity("widget", "widget"))
	assert.Equal(t, 0.0, TokenSimilarity("", "widget"))
	assert.GreaterOrEqual(t, TokenSimilarity("office chair ergonomic", "ergonomic office chair"), DefaultThreshold)
	assert.Less(t, TokenSimilarity("stapler", "printer paper"), DefaultThreshold)
}

// ==========================
// Grouping
// ==========================

func TestTokenMatcher_GroupsEquivalentItems(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)

	groups := m.Match([][]Item{
		items("A", "Office Chair, Ergonomic", "Stapler"),
		items("B", "Ergonomic office chair", "Printer paper A4"),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "office chair ergonomic", groups[0].Key)
	assert.Len(t, groups[0].Members, 2)
	assert.True(t, groups[0].HasVendor("B"))
	assert.Len(t, groups[1].Members, 1, "unmatched item stays a singleton")
	assert.Len(t, groups[2].Members, 1)
}

func TestTokenMatcher_PrefersHighestSimilarity(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)

	groups := m.Match([][]Item{
		items("A", "Blue pen"),
		items("B", "Blue pen fine tip", "Blue pen"),
	})

	require.Len(t, groups, 2)
	member, ok := groups[0].Member("B")
	require.True(t, ok)
	assert.Equal(t, 1, member.Index)
}

func TestTokenMatcher_TieBreaks(t *testing.T) {
	t.Run("shorter edit distance wins", func(t *testing.T) {
		m := NewTokenMatcher(0.5, WithSimilarity(constant(0.9)))
		groups := m.Match([][]Item{
			items("A", "abc"),
			items("B", "xyzw", "abd"),
		})
		member, ok := groups[0].Member("B")
		require.True(t, ok)
		assert.Equal(t, 1, member.Index)
	})

	t.Run("first seen group wins", func(t *testing.T) {
		m := NewTokenMatcher(0.5, WithSimilarity(constant(0.9)))
		groups := m.Match([][]Item{
			items("A", "aaa", "ccc"),
			items("C", "bbb"),
		})
		require.Len(t, groups, 2)
		assert.True(t, groups[0].HasVendor("C"))
		assert.False(t, groups[1].HasVendor("C"))
	})
}

func TestTokenMatcher_OneLinePerVendorPerGroup(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)

	groups := m.Match([][]Item{
		items("A", "Widget", "Widget"),
		items("B", "Widget"),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "widget", groups[0].Key)
	assert.Equal(t, "widget#2", groups[1].Key)
	assert.Len(t, groups[0].Members, 2)
	assert.Len(t, groups[1].Members, 1)
}

func TestTokenMatcher_Symmetry(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)
	a := items("V1", "Copy paper A4 80gsm", "Black toner cartridge")
	b := items("V2", "Toner cartridge black", "A4 copy paper")

	forward := m.Match([][]Item{a, b})
	backward := m.Match([][]Item{b, a})

	for _, x := range a {
		for _, y := range b {
			assert.Equal(t, SameGroup(forward, x, y), SameGroup(forward, y, x))
			assert.Equal(t, SameGroup(forward, x, y), SameGroup(backward, y, x),
				"%q / %q", x.Description, y.Description)
		}
	}
	assert.True(t, SameGroup(forward, a[0], b[1]))
	assert.True(t, SameGroup(forward, a[1], b[0]))
}

func TestTokenMatcher_Deterministic(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)
	batch := [][]Item{
		items("A", "Widget", "Gadget large", "Cable 2m"),
		items("B", "Gadget, large", "Widget", "USB cable 2 m"),
		items("C", "Widget blue", "Sprocket"),
	}
	assert.Equal(t, m.Match(batch), m.Match(batch))
}

func TestTokenMatcher_SkipsEmptyVendors(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)
	groups := m.Match([][]Item{nil, items("B", "Widget")})
	require.Len(t, groups, 1)
	assert.Equal(t, "B", groups[0].Members[0].Vendor)
}

func TestNewTokenMatcher_InvalidThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewTokenMatcher(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewTokenMatcher(1.5).Threshold())
	assert.Equal(t, 0.8, NewTokenMatcher(0.8).Threshold())
}

// ==========================
// Missing items
// ==========================

func TestMissingItemIssues(t *testing.T) {
	m := NewTokenMatcher(DefaultThreshold)
	groups := m.Match([][]Item{
		items("A", "Widget", "Gadget"),
		items("B", "Widget"),
	})

	issues := MissingItemIssues(groups, []string{"A", "B"}, nil)

	require.Len(t, issues, 1)
	assert.Equal(t, "B", issues[0].Vendor)
	assert.Equal(t, models.KindMissingItem, issues[0].Kind)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
	assert.Nil(t, issues[0].ItemIndex)

	assert.Empty(t, MissingItemIssues(groups, []string{"A"}, nil), "single vendor has nothing to miss")
	assert.Empty(t, MissingItemIssues(groups, []string{"A", "B"}, func(g Group) bool { return g.Key == "gadget" }))
}
