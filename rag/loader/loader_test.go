package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLoader(t *testing.T) {
	ctx := context.Background()
	content := "Line 1\nLine 2\n\tLine 3  "
	tmpFile := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	t.Run("Basic Load", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile).Load(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, content, docs[0].Content)
		assert.Equal(t, tmpFile, docs[0].Metadata["source"])
		assert.Equal(t, "text", docs[0].Metadata["type"])
	})

	t.Run("Load with Metadata", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile, WithMetadata(map[string]any{"source": "test.txt"})).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test.txt", docs[0].Source())
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := NewTextLoader(filepath.Join(t.TempDir(), "nope.txt")).Load(ctx)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestHTMLLoader(t *testing.T) {
	page := `<html><head><title>Losses</title><style>td{color:red}</style></head>
<body>
  <h1>Insured losses</h1>
  <script>alert("x")</script>
  <table><tr><td>2019</td><td>52 bn</td></tr></table>
</body></html>`
	tmpFile := filepath.Join(t.TempDir(), "page.HTML")
	require.NoError(t, os.WriteFile(tmpFile, []byte(page), 0644))

	docs, err := ForFile(tmpFile).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	text := docs[0].Content
	assert.Contains(t, text, "Insured losses")
	assert.Contains(t, text, "2019")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.Equal(t, "html", docs[0].Metadata["type"])
}

func TestForFilePicksTextByDefault(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(tmpFile, []byte("<b>kept</b>"), 0644))

	docs, err := ForFile(tmpFile).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<b>kept</b>", docs[0].Content)
}
