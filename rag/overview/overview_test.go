package overview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smallnest/insightgraph/llms/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, m *llmtest.Model) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "data", "documents_summary.txt"), m)
	require.NoError(t, err)
	return c
}

func TestReadEmpty(t *testing.T) {
	c := newCache(t, llmtest.New())
	got, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, EmptyOverview, got)
}

func TestAppend(t *testing.T) {
	c := newCache(t, llmtest.New())
	require.NoError(t, c.Append("hurricane losses 2000-2020"))
	require.NoError(t, c.Append("auto premiums by state\n"))

	got, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, "hurricane losses 2000-2020\nauto premiums by state\n", got)
}

func TestRecomputeReplacesFile(t *testing.T) {
	m := llmtest.New(llmtest.Text("Data about insurance losses.\n- Which year had the most losses?"))
	c := newCache(t, m)
	require.NoError(t, c.Append("fragment one"))
	require.NoError(t, c.Append("fragment two"))

	require.NoError(t, c.Recompute(context.Background()))

	got, err := c.Read()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Data about"))
	assert.NotContains(t, got, "fragment")

	calls := m.Calls()
	require.Len(t, calls, 1)
	prompt := llmtest.LastText(calls[0].Messages)
	assert.Contains(t, prompt, "fragment one\nfragment two")
	assert.Contains(t, prompt, `"Data about..."`)

	entries, err := os.ReadDir(filepath.Dir(c.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".overview-"), "temp file %s left behind", e.Name())
	}
}

func TestRecomputeFailureLeavesFileUntouched(t *testing.T) {
	m := llmtest.New(llmtest.Fail(errors.New("model unavailable")))
	c := newCache(t, m)
	require.NoError(t, c.Append("fragment one"))

	err := c.Recompute(context.Background())
	require.Error(t, err)

	got, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, "fragment one\n", got)
}

func TestRecomputeEmptySkipsModel(t *testing.T) {
	m := llmtest.New()
	c := newCache(t, m)
	require.NoError(t, c.Recompute(context.Background()))
	assert.Empty(t, m.Calls())
}

func TestConcurrentAppendAndRecompute(t *testing.T) {
	m := llmtest.Repeat(llmtest.Text("Data about everything."))
	c := newCache(t, m)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				assert.NoError(t, c.Recompute(context.Background()))
				return
			}
			assert.NoError(t, c.Append("fragment"))
		}(i)
	}
	wg.Wait()

	got, err := c.Read()
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
		assert.Contains(t, []string{"Data about everything.", "fragment"}, line)
	}
}
