package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	t.Run("header selects columns", func(t *testing.T) {
		data := "category,answer,question\nrates,Interchange plus,What are Clearent rates?\n"
		entries, skipped, err := ParseTable(strings.NewReader(data))
		require.NoError(t, err)
		assert.Zero(t, skipped)
		require.Len(t, entries, 1)
		assert.Equal(t, "What are Clearent rates?", entries[0].Question)
		assert.Equal(t, "Interchange plus", entries[0].Answer)
	})

	t.Run("no header uses first two columns", func(t *testing.T) {
		data := "How do I reach TSYS support?,Call the ISO desk\n"
		entries, _, err := ParseTable(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Call the ISO desk", entries[0].Answer)
	})

	t.Run("bad rows are skipped", func(t *testing.T) {
		data := strings.Join([]string{
			"question,answer",
			"only one column",
			",answer without question",
			`Does "Clover" need Wi-Fi?,Ethernet works too`,
			"Which POS suits a restaurant?,SkyTab or Clover",
		}, "\n")
		entries, skipped, err := ParseTable(strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 2, skipped)
		require.Len(t, entries, 2)
		assert.Equal(t, `Does "Clover" need Wi-Fi?`, entries[0].Question)
		assert.Equal(t, "Which POS suits a restaurant?", entries[1].Question)
		assert.Equal(t, 1, entries[1].Row)
	})

	t.Run("empty input", func(t *testing.T) {
		entries, skipped, err := ParseTable(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Zero(t, skipped)
	})
}
