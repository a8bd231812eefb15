package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyKnowledge/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSourcesCommand(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
feeds:
  - category: Tech
    feeds:
      - source: Hacker News
        rss_url: https://hnrss.org/frontpage
`)
	var out, errOut bytes.Buffer
	root := NewRootCommand(NewPrinterWithWriters(&out, &errOut, false))
	root.SetArgs([]string{"--config", path, "sources"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Hacker News")
	assert.NotContains(t, out.String(), "BBC")
}

func TestCommandArgs(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewPrinterWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"note", "only-id"})

	require.Error(t, root.Execute())
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Describe(&domain.ConfigError{Err: domain.ErrNotConfigured}), "LLM_API_KEY")
	assert.Contains(t, Describe(domain.ErrInsufficientData), "no bookmarks yet")
	assert.Contains(t, Describe(fmt.Errorf("insight x: %w", domain.ErrNotFound)), "not found")
	assert.Equal(t, "boom", Describe(fmt.Errorf("boom")))
}
