package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name    string
		message string
		want    Kind
	}{
		{name: "profit", message: "How can I increase profit this quarter?", want: KindProfit},
		{name: "profit beats sales wording", message: "What earnings did my sales bring?", want: KindProfit},
		{name: "popular items", message: "What are my best selling dishes?", want: KindPopularItems},
		{name: "sales", message: "Show me my revenue for last month", want: KindSales},
		{name: "regional with trigger", message: "I'm a new merchant, what cuisine should I sell in my area?", want: KindRegional},
		{name: "regional keyword without trigger falls through", message: "Is my city busy?", want: KindGeneral},
		{name: "popular yields to regional phrasing", message: "Recommend the top items to sell as a new merchant in this city", want: KindRegional},
		{name: "general", message: "Hello there", want: KindGeneral},
		{name: "case insensitive", message: "WHAT ARE MY TOP ITEMS?", want: KindPopularItems},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, c.Classify(tc.message))
		})
	}
}

func TestTimePeriod(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "explicit week", message: "sales for last week please", want: "last_7_days"},
		{name: "explicit month", message: "how did last month go", want: "last_30_days"},
		{name: "explicit quarter", message: "show the last 3 months", want: "last_90_days"},
		{name: "past 90 days", message: "past 90 days of orders", want: "last_90_days"},
		{name: "recommendation defaults long", message: "what do you recommend I sell?", want: "last_90_days"},
		{name: "plain question defaults to month", message: "how are my top items doing?", want: "last_30_days"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, c.TimePeriod(tc.message))
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		r, err := LoadRules("")
		require.NoError(t, err)
		require.Equal(t, DefaultRules(), r)
	})

	t.Run("file overrides one list and keeps the rest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "intents.yaml")
		require.NoError(t, os.WriteFile(path, []byte("popular_items:\n  - trending\n"), 0o644))

		r, err := LoadRules(path)
		require.NoError(t, err)
		require.Equal(t, []string{"trending"}, r.PopularItems)
		require.Equal(t, DefaultRules().Sales, r.Sales)

		c := NewClassifier(r)
		require.Equal(t, KindPopularItems, c.Classify("what is trending right now"))
		require.Equal(t, KindGeneral, c.Classify("what is popular right now"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "intents.yaml")
		require.NoError(t, os.WriteFile(path, []byte("popular_items: {"), 0o644))
		_, err := LoadRules(path)
		require.Error(t, err)
	})
}
